package main

import (
	"context"
	"fmt"
	"os"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/go_away_boilerplate/pkg/misc"
	"github.com/baalimago/mcprobe/internal/mcp"
)

func connectClient(ctx context.Context, conf configurations, baseURL string) (*mcp.Client, error) {
	header, err := conf.header()
	if err != nil {
		return nil, err
	}
	c, err := mcp.Connect(ctx, baseURL,
		mcp.WithStartupTimeout(conf.connectTimeout()),
		mcp.WithHeader(header),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to '%v': %w", baseURL, err)
	}
	if misc.Truthy(os.Getenv("DEBUG")) {
		ancli.Noticef("connected to %v, session id: %v\n", baseURL, c.SessionID())
	}
	return c, nil
}
