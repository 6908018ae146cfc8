package mcp

import (
	"encoding/json"
	"fmt"
)

// Request is a single JSON-RPC request. IDs must be unique among
// outstanding requests on the same session, the client hands them out
// from a monotonic counter.
type Request struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// Response is a JSON-RPC response as delivered over the event stream.
// Exactly one of Result and Error is set on a well-formed reply.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the error member of a JSON-RPC response. It's a reported
// failure from the remote tool, not a transport fault.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %v: %v", e.Code, e.Message)
}
