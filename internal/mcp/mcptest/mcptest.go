// Package mcptest runs an in-process MCP server over the SSE transport,
// for exercising the client against real HTTP connections in tests.
package mcptest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/baalimago/mcprobe/internal/mcp"
)

// Handler produces the JSON-RPC reply for one POSTed request. Returning
// ok false suppresses the reply entirely, leaving the caller to time out.
type Handler func(id int, method string, params json.RawMessage) (result any, rpcErr *mcp.Error, ok bool)

// Server is a scriptable SSE+JSON-RPC server bound to an httptest server.
// Swap Handler before issuing calls to script replies.
type Server struct {
	HTTP    *httptest.Server
	Handler Handler

	mu         sync.Mutex
	sessionSeq int
	sessions   map[string]chan []byte
}

// NewServer starts a server with the echo handler. It's torn down with
// the test.
func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		Handler:  EchoHandler(),
		sessions: make(map[string]chan []byte),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/sse", s.handleSSE)
	mux.HandleFunc("/message", s.handleMessage)
	s.HTTP = httptest.NewServer(mux)
	t.Cleanup(s.HTTP.Close)
	return s
}

// URL is the base URL clients should connect to.
func (s *Server) URL() string {
	return s.HTTP.URL
}

// PushRaw delivers an arbitrary data payload to every live session,
// for injecting junk or fabricated replies.
func (s *Server) PushRaw(data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, queue := range s.sessions {
		queue <- []byte(data)
	}
}

// EndSessions closes every live session's stream from the server side.
func (s *Server) EndSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, queue := range s.sessions {
		close(queue)
		delete(s.sessions, id)
	}
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.sessionSeq++
	sessionID := fmt.Sprintf("session-%v", s.sessionSeq)
	queue := make(chan []byte, 16)
	s.sessions[sessionID] = queue
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if _, live := s.sessions[sessionID]; live {
			delete(s.sessions, sessionID)
		}
		s.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	fmt.Fprintf(w, "event: endpoint\ndata: /message?sessionId=%v\n\n", sessionID)
	fl.Flush()

	for {
		select {
		case msg, ok := <-queue:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			fl.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	s.mu.Lock()
	queue, ok := s.sessions[sessionID]
	handler := s.Handler
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	var req struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      int             `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	fmt.Fprint(w, "Accepted")

	result, rpcErr, reply := handler(req.ID, req.Method, req.Params)
	if !reply {
		return
	}
	envelope := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		envelope["error"] = rpcErr
	} else {
		envelope["result"] = result
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return
	}
	// Re-check liveness under the lock, EndSessions may have run meanwhile
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, live := s.sessions[sessionID]; !live {
		return
	}
	select {
	case queue <- body:
	default:
	}
}

// SilentForMethod behaves like the echo handler, except that requests
// for the given method are accepted but never answered.
func SilentForMethod(method string) Handler {
	echo := EchoHandler()
	return func(id int, m string, params json.RawMessage) (any, *mcp.Error, bool) {
		if m == method {
			return nil, nil, false
		}
		return echo(id, m, params)
	}
}

// EchoHandler serves a single 'echo' tool, mirroring the conventional
// minimal MCP server: tools/list lists it, tools/call echoes the text
// argument back and unknown tools or methods yield JSON-RPC errors.
func EchoHandler() Handler {
	return func(id int, method string, params json.RawMessage) (any, *mcp.Error, bool) {
		switch method {
		case "tools/list":
			return map[string]any{
				"tools": []map[string]any{
					{
						"name":        "echo",
						"description": "echo text",
						"inputSchema": map[string]any{
							"type":     "object",
							"required": []string{"text"},
							"properties": map[string]any{
								"text": map[string]any{
									"type":        "string",
									"description": "text to echo",
								},
							},
						},
					},
				},
			}, nil, true
		case "tools/call":
			var p struct {
				Name      string         `json:"name"`
				Arguments map[string]any `json:"arguments"`
			}
			json.Unmarshal(params, &p)
			if p.Name != "echo" {
				return nil, &mcp.Error{Code: -32602, Message: fmt.Sprintf("unknown tool: %v", p.Name)}, true
			}
			text, _ := p.Arguments["text"].(string)
			return map[string]any{
				"content": []map[string]any{{"type": "text", "text": text}},
				"isError": false,
			}, nil, true
		default:
			return nil, &mcp.Error{Code: -32601, Message: "method not found"}, true
		}
	}
}
