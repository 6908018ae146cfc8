package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/mcprobe/internal/probe"
)

func toolsCmd(ctx context.Context, conf configurations, args []string) int {
	if len(args) < 1 {
		ancli.PrintErr("tools requires a base URL argument\n")
		return 1
	}
	c, err := connectClient(ctx, conf, args[0])
	if err != nil {
		ancli.PrintErr(fmt.Sprintf("%v\n", err))
		return 1
	}
	defer c.Close()

	tools, err := probe.List(ctx, c, conf.callTimeout())
	if err != nil {
		ancli.PrintErr(fmt.Sprintf("%v\n", err))
		return 1
	}

	if conf.Raw {
		if err := json.NewEncoder(os.Stdout).Encode(tools); err != nil {
			ancli.PrintErr(fmt.Sprintf("failed to encode tool listing: %v\n", err))
			return 1
		}
		return 0
	}

	if len(tools) == 0 {
		ancli.PrintWarn("server advertises no tools\n")
		return 0
	}
	ancli.Okf("found %v tool(s):\n", len(tools))
	for i, tool := range tools {
		fmt.Printf("%v. %v: %v\n", i+1, ancli.ColoredMessage(ancli.CYAN, tool.Name), firstLine(tool.Description))
	}
	return 0
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
