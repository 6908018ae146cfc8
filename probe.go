package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/mcprobe/internal/probe"
)

func probeCmd(ctx context.Context, conf configurations, args []string) int {
	if len(args) < 2 {
		ancli.PrintErr("probe requires a base URL and a comma separated list of tool names\n")
		return 1
	}
	names := strings.Split(args[1], ",")

	c, err := connectClient(ctx, conf, args[0])
	if err != nil {
		ancli.PrintErr(fmt.Sprintf("%v\n", err))
		return 1
	}
	defer c.Close()

	reports, err := probe.Unlisted(ctx, c, names, conf.callTimeout())
	if err != nil {
		ancli.PrintErr(fmt.Sprintf("%v\n", err))
		return 1
	}

	// Every report is informative regardless of how the server reacted,
	// so the probe itself succeeds as long as the reports came back
	for _, report := range reports {
		listed := report.Listed
		printOutcome(conf, report.Name, &listed, report.Outcome)
	}
	return 0
}
