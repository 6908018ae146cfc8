// Package mcp implements a session-correlated JSON-RPC client for MCP
// servers using the SSE transport. Replies to POSTed requests arrive
// asynchronously on the event stream and are matched back by request id.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/go_away_boilerplate/pkg/debug"
	"github.com/baalimago/go_away_boilerplate/pkg/misc"
	"github.com/baalimago/mcprobe/internal/sse"
)

var (
	// ErrSessionEstablishment is returned by Connect when no session id
	// is observed before the startup timeout, or the stream ends first.
	ErrSessionEstablishment = errors.New("session establishment failed")
	// ErrClosed resolves pending calls when the session's stream has
	// ended, server-initiated or via Close.
	ErrClosed = errors.New("session closed")
)

const defaultStartupTimeout = time.Second * 10

// Client is one session against an MCP server. The event stream is
// drained by a single goroutine started at Connect time, callers only
// POST and wait on private per-call slots populated by the drainer.
type Client struct {
	baseURL        string
	sessionID      string
	header         http.Header
	httpClient     *http.Client
	startupTimeout time.Duration
	stream         *sse.Stream
	seq            atomic.Int64
	drained        chan struct{}

	mu        sync.Mutex
	pending   map[int]chan Outcome
	closed    bool
	streamErr error
}

// Option modifies a Client before it connects.
type Option func(*Client)

// WithStartupTimeout bounds how long Connect waits for the endpoint event.
func WithStartupTimeout(d time.Duration) Option {
	return func(c *Client) { c.startupTimeout = d }
}

// WithHeader merges extra headers, for example Authorization, into both
// the stream GET and the message POSTs.
func WithHeader(h http.Header) Option {
	return func(c *Client) { c.header = h }
}

// Connect opens the event stream at {baseURL}/sse, waits for the session
// discovery event and starts the drainer. The drainer is guaranteed to be
// running before Connect returns, so a Call can never miss a fast reply.
func Connect(ctx context.Context, baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		httpClient:     &http.Client{},
		startupTimeout: defaultStartupTimeout,
		pending:        make(map[int]chan Outcome),
	}
	for _, opt := range opts {
		opt(c)
	}

	stream, err := sse.Open(ctx, c.baseURL+"/sse", c.header)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	c.stream = stream

	startupTimer := time.NewTimer(c.startupTimeout)
	defer startupTimer.Stop()
	for {
		select {
		case ev, ok := <-stream.Events():
			if !ok {
				if streamErr := stream.Err(); streamErr != nil {
					return nil, fmt.Errorf("%w: stream ended: %v", ErrSessionEstablishment, streamErr)
				}
				return nil, fmt.Errorf("%w: stream closed before any endpoint event", ErrSessionEstablishment)
			}
			id, ok := sessionID(ev)
			if !ok {
				continue
			}
			c.sessionID = id
			c.drained = make(chan struct{})
			go c.drain()
			return c, nil
		case <-startupTimer.C:
			stream.Close()
			return nil, fmt.Errorf("%w: no endpoint event within %v", ErrSessionEstablishment, c.startupTimeout)
		case <-ctx.Done():
			stream.Close()
			return nil, fmt.Errorf("%w: %v", ErrSessionEstablishment, ctx.Err())
		}
	}
}

// sessionID extracts the session identifier from a session discovery
// event. Servers either tag the event 'endpoint' or, lacking event types,
// send a URL-like payload carrying a sessionId query parameter.
func sessionID(ev sse.Event) (string, bool) {
	if ev.Type != "" && ev.Type != "endpoint" {
		return "", false
	}
	_, after, found := strings.Cut(ev.Data, "sessionId=")
	if !found {
		return "", false
	}
	id, _, _ := strings.Cut(after, "&")
	if id == "" {
		return "", false
	}
	return id, true
}

// SessionID returns the identifier extracted at Connect time.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Call POSTs a fresh request to the session's message endpoint and waits
// for the correlated reply on the event stream. The POST status is only
// an acceptance signal, the authoritative answer always arrives via the
// stream. Concurrent calls on the same client are supported, replies
// arriving out of issue order resolve their own callers.
func (c *Client) Call(ctx context.Context, method string, params map[string]any, timeout time.Duration) Outcome {
	if params == nil {
		params = map[string]any{}
	}
	id := int(c.seq.Add(1))
	slot := make(chan Outcome, 1)

	// Register interest before dispatching, so that a reply arriving
	// faster than this goroutine resumes can't be missed
	c.mu.Lock()
	if c.closed {
		streamErr := c.streamErr
		c.mu.Unlock()
		return Outcome{State: TransportError, Err: streamErr}
	}
	c.pending[id] = slot
	c.mu.Unlock()

	req := Request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := c.post(ctx, req); err != nil {
		c.abandon(id)
		return Outcome{State: TransportError, Err: err}
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case outcome := <-slot:
		return outcome
	case <-deadline.C:
		c.abandon(id)
		return Outcome{State: TimedOut}
	case <-ctx.Done():
		c.abandon(id)
		return Outcome{State: TransportError, Err: ctx.Err()}
	}
}

// Close releases the underlying stream and waits for the drainer to
// stop. Pending calls resolve to TransportError. Idempotent.
func (c *Client) Close() {
	c.stream.Close()
	<-c.drained
}

func (c *Client) post(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	if misc.Truthy(os.Getenv("DEBUG_CALL")) {
		ancli.Noticef("mcp.Call req: %v", debug.IndentedJsonFmt(req))
	}

	postURL := fmt.Sprintf("%v/message?sessionId=%v", c.baseURL, url.QueryEscape(c.sessionID))
	postReq, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create POST request: %w", err)
	}
	postReq.Header.Set("Content-Type", "application/json")
	for k, vals := range c.header {
		for _, v := range vals {
			postReq.Header.Add(k, v)
		}
	}

	postResp, err := c.httpClient.Do(postReq)
	if err != nil {
		return fmt.Errorf("failed to send POST request: %w", err)
	}
	postResp.Body.Close()

	if postResp.StatusCode != http.StatusOK && postResp.StatusCode != http.StatusAccepted {
		ancli.Warnf("mcp: POST accepted with unexpected status: %d\n", postResp.StatusCode)
	}
	return nil
}

// abandon drops interest in a call id without affecting other pending
// calls. A reply already buffered in the slot is discarded with it.
func (c *Client) abandon(id int) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// drain is the sole reader of the event stream. It runs from Connect
// until the stream ends, resolving pending calls by id and dropping
// everything else.
func (c *Client) drain() {
	defer close(c.drained)
	for ev := range c.stream.Events() {
		var resp Response
		if err := json.Unmarshal([]byte(ev.Data), &resp); err != nil {
			if misc.Truthy(os.Getenv("DEBUG")) {
				ancli.Noticef("mcp: dropping non-json event payload: %v\n", err)
			}
			continue
		}
		if resp.Result == nil && resp.Error == nil {
			// Server-pushed notification or junk, nothing to correlate
			continue
		}

		c.mu.Lock()
		slot, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if !ok {
			if misc.Truthy(os.Getenv("DEBUG")) {
				ancli.Noticef("mcp: dropping reply with no pending call, id: %v\n", resp.ID)
			}
			continue
		}
		slot <- Outcome{State: Completed, Response: &resp}
	}

	// Stream is gone, fail everything still waiting
	streamErr := c.stream.Err()
	if streamErr == nil {
		streamErr = ErrClosed
	}
	c.mu.Lock()
	c.closed = true
	c.streamErr = streamErr
	for id, slot := range c.pending {
		delete(c.pending, id)
		slot <- Outcome{State: TransportError, Err: streamErr}
	}
	c.mu.Unlock()
}
