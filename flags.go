package main

import (
	"flag"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type configurations struct {
	TimeoutMs        int
	ConnectTimeoutMs int
	Raw              bool
	Headers          headerFlags
}

var defaultConf = configurations{
	TimeoutMs:        5000,
	ConnectTimeoutMs: 10000,
}

// headerFlags collects repeated -H/-header flags.
type headerFlags []string

func (h *headerFlags) String() string {
	return strings.Join(*h, ", ")
}

func (h *headerFlags) Set(v string) error {
	*h = append(*h, v)
	return nil
}

func parseFlags(defaults configurations, args []string) (configurations, []string, error) {
	conf := defaults
	fs := flag.NewFlagSet("mcprobe", flag.ContinueOnError)
	fs.IntVar(&conf.TimeoutMs, "to", defaults.TimeoutMs, "Set the per-call deadline in milliseconds. Same as -timeout.")
	fs.IntVar(&conf.TimeoutMs, "timeout", defaults.TimeoutMs, "Set the per-call deadline in milliseconds. Same as -to.")
	fs.IntVar(&conf.ConnectTimeoutMs, "cto", defaults.ConnectTimeoutMs, "Set the session establishment deadline in milliseconds. Same as -connect-timeout.")
	fs.IntVar(&conf.ConnectTimeoutMs, "connect-timeout", defaults.ConnectTimeoutMs, "Set the session establishment deadline in milliseconds. Same as -cto.")
	fs.BoolVar(&conf.Raw, "r", defaults.Raw, "Set to true to print machine readable json. Same as -raw.")
	fs.BoolVar(&conf.Raw, "raw", defaults.Raw, "Set to true to print machine readable json. Same as -r.")
	fs.Var(&conf.Headers, "H", "Add an extra 'Key: Value' header to all requests. Same as -header, may be repeated.")
	fs.Var(&conf.Headers, "header", "Add an extra 'Key: Value' header to all requests. Same as -H, may be repeated.")
	if err := fs.Parse(args); err != nil {
		return conf, nil, err
	}
	return conf, fs.Args(), nil
}

func (c configurations) callTimeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c configurations) connectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

func (c configurations) header() (http.Header, error) {
	header := http.Header{}
	for _, raw := range c.Headers {
		key, value, found := strings.Cut(raw, ":")
		if !found || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("malformed header flag: '%v', expected format: 'Key: Value'", raw)
		}
		header.Add(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return header, nil
}
