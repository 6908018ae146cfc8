package main

import (
	"context"
	"fmt"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
)

func sessionCmd(ctx context.Context, conf configurations, args []string) int {
	if len(args) < 1 {
		ancli.PrintErr("session requires a base URL argument\n")
		return 1
	}
	c, err := connectClient(ctx, conf, args[0])
	if err != nil {
		ancli.PrintErr(fmt.Sprintf("%v\n", err))
		return 1
	}
	defer c.Close()

	if conf.Raw {
		fmt.Println(c.SessionID())
		return 0
	}
	ancli.Okf("session id: %v\n", c.SessionID())
	return 0
}
