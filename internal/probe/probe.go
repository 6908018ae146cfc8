// Package probe sequences diagnostic operations against an MCP server:
// listing its tools, calling one, and empirically classifying how the
// server reacts to tool names it never advertised.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/baalimago/mcprobe/internal/mcp"
)

// Tool is one entry of a tools/list result.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// List fetches the server's advertised tools.
func List(ctx context.Context, c *mcp.Client, timeout time.Duration) ([]Tool, error) {
	outcome := c.Call(ctx, "tools/list", map[string]any{}, timeout)
	switch outcome.State {
	case mcp.TimedOut:
		return nil, fmt.Errorf("tools/list timed out after %v", timeout)
	case mcp.TransportError:
		return nil, fmt.Errorf("tools/list failed: %w", outcome.Err)
	}
	if outcome.Response.Error != nil {
		return nil, fmt.Errorf("tools/list rejected: %w", outcome.Response.Error)
	}
	var result struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(outcome.Response.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to decode tool listing: %w", err)
	}
	return result.Tools, nil
}

// CallTool invokes a named tool once. The empty arguments map is sent as
// an object, never null, some servers reject null arguments.
func CallTool(ctx context.Context, c *mcp.Client, name string, args map[string]any, timeout time.Duration) mcp.Outcome {
	if args == nil {
		args = map[string]any{}
	}
	return c.Call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	}, timeout)
}

// Report is the observed behavior for one probed tool name.
type Report struct {
	Name    string
	Listed  bool
	Outcome mcp.Outcome
}

// Unlisted calls each name regardless of whether the server lists it and
// reports what came back. Whether an unknown tool yields a JSON-RPC
// error, a timeout or silence is a property of the remote server, so it
// is observed rather than assumed.
func Unlisted(ctx context.Context, c *mcp.Client, names []string, timeout time.Duration) ([]Report, error) {
	tools, err := List(ctx, c, timeout)
	if err != nil {
		return nil, err
	}
	listed := make(map[string]bool, len(tools))
	for _, tool := range tools {
		listed[tool.Name] = true
	}

	reports := make([]Report, 0, len(names))
	for _, name := range names {
		reports = append(reports, Report{
			Name:    name,
			Listed:  listed[name],
			Outcome: CallTool(ctx, c, name, nil, timeout),
		})
	}
	return reports, nil
}
