package main

import (
	"context"
	"fmt"
	"os"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/go_away_boilerplate/pkg/misc"
	"github.com/baalimago/go_away_boilerplate/pkg/shutdown"
)

const usage = `mcprobe - (m)odel (c)ontext (p)rotocol probe

Diagnose remote MCP servers speaking JSON-RPC over the SSE transport.
mcprobe opens the event stream, extracts the session id from the first
endpoint event, dispatches calls on the session scoped message endpoint
and correlates the asynchronous replies back by request id.

Usage: mcprobe [flags] <command>

Flags:
  -to, -timeout int            Set the per-call deadline in milliseconds. (default %v)
  -cto, -connect-timeout int   Set the session establishment deadline in milliseconds. (default %v)
  -r, -raw bool                Set to true to print machine readable json instead of colored text. (default %v)
  -H, -header string           Add an extra 'Key: Value' header to all requests. May be repeated.

Commands:
  h|help                                    Display this help message
  v|version                                 Print version and build information
  s|session <baseURL>                       Connect and print the extracted session id
  t|tools   <baseURL>                       List the tools advertised by the server
  c|call    <baseURL> <tool> [json-args]    Call one tool and classify the outcome
  p|probe   <baseURL> <name>[,<name>...]    Call possibly-unlisted tools and report what comes back

Examples:
  - mcprobe tools https://axiom-mcp-server.fly.dev
  - mcprobe -to 10000 call https://axiom-mcp-server.fly.dev echo '{"text":"hello"}'
  - mcprobe probe https://axiom-mcp-server.fly.dev logs_deleteBeforeDate,logs_getDatasetInfo,logs_clearAll
  - mcprobe -H 'Authorization: Bearer s3cr3t' -raw tools https://example.com
`

func printUsage() {
	fmt.Printf(usage, defaultConf.TimeoutMs, defaultConf.ConnectTimeoutMs, defaultConf.Raw)
}

func run(args []string) int {
	conf, rest, err := parseFlags(defaultConf, args)
	if err != nil {
		ancli.PrintErr(fmt.Sprintf("failed to parse flags: %v\n", err))
		return 1
	}
	if len(rest) == 0 {
		printUsage()
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { shutdown.Monitor(cancel) }()

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "h", "help":
		printUsage()
		return 0
	case "v", "version":
		return printVersion()
	case "s", "session":
		return sessionCmd(ctx, conf, cmdArgs)
	case "t", "tools":
		return toolsCmd(ctx, conf, cmdArgs)
	case "c", "call":
		return callCmd(ctx, conf, cmdArgs)
	case "p", "probe":
		return probeCmd(ctx, conf, cmdArgs)
	default:
		ancli.PrintErr(fmt.Sprintf("unknown command: '%v', run 'mcprobe help' for usage\n", cmd))
		return 1
	}
}

func main() {
	ancli.SetupSlog()
	statusCode := run(os.Args[1:])
	if statusCode == 0 && misc.Truthy(os.Getenv("DEBUG")) {
		ancli.PrintOK("all done, bye bye!\n")
	}
	os.Exit(statusCode)
}
