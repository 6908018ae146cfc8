package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/go_away_boilerplate/pkg/debug"
	"github.com/baalimago/mcprobe/internal/mcp"
	"github.com/baalimago/mcprobe/internal/probe"
)

func callCmd(ctx context.Context, conf configurations, args []string) int {
	if len(args) < 2 {
		ancli.PrintErr("call requires a base URL and a tool name argument\n")
		return 1
	}
	var toolArgs map[string]any
	if len(args) > 2 {
		if err := json.Unmarshal([]byte(args[2]), &toolArgs); err != nil {
			ancli.PrintErr(fmt.Sprintf("failed to parse json-args: %v\n", err))
			return 1
		}
	}

	c, err := connectClient(ctx, conf, args[0])
	if err != nil {
		ancli.PrintErr(fmt.Sprintf("%v\n", err))
		return 1
	}
	defer c.Close()

	outcome := probe.CallTool(ctx, c, args[1], toolArgs, conf.callTimeout())
	return printOutcome(conf, args[1], nil, outcome)
}

// outcomeJSON is the raw-mode rendering of one resolved call.
type outcomeJSON struct {
	Name     string        `json:"name"`
	State    string        `json:"state"`
	Listed   *bool         `json:"listed,omitempty"`
	Response *mcp.Response `json:"response,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// printOutcome renders one outcome and translates it to an exit status.
// An application error is a successful probe of the remote tool, so it
// exits 0, only timeouts and transport failures exit non-zero.
func printOutcome(conf configurations, name string, listed *bool, outcome mcp.Outcome) int {
	if conf.Raw {
		out := outcomeJSON{
			Name:     name,
			State:    outcome.State.String(),
			Listed:   listed,
			Response: outcome.Response,
		}
		if outcome.Err != nil {
			out.Error = outcome.Err.Error()
		}
		if err := json.NewEncoder(os.Stdout).Encode(out); err != nil {
			ancli.PrintErr(fmt.Sprintf("failed to encode outcome: %v\n", err))
			return 1
		}
		if outcome.State == mcp.Completed {
			return 0
		}
		return 1
	}

	prefix := name
	if listed != nil {
		prefix = fmt.Sprintf("%v (listed: %v)", name, *listed)
	}
	switch outcome.State {
	case mcp.Completed:
		if outcome.Response.Error != nil {
			ancli.PrintWarn(fmt.Sprintf("%v: application error %v: %v\n",
				prefix, outcome.Response.Error.Code, outcome.Response.Error.Message))
			return 0
		}
		ancli.Okf("%v: completed\n", prefix)
		fmt.Println(debug.IndentedJsonFmt(outcome.Response.Result))
		return 0
	case mcp.TimedOut:
		ancli.PrintErr(fmt.Sprintf("%v: no reply within %v\n", prefix, conf.callTimeout()))
		return 1
	default:
		ancli.PrintErr(fmt.Sprintf("%v: transport error: %v\n", prefix, outcome.Err))
		return 1
	}
}
