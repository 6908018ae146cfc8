// Package sse reads server-sent event streams. It only implements the
// event/data framing needed to talk to MCP style servers, it's not a full
// SSE implementation.
package sse

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/go_away_boilerplate/pkg/misc"
)

// ErrConnection is returned by Open when the initial handshake fails,
// either on connection refusal or a non-2xx status.
var ErrConnection = errors.New("sse connection failed")

// Event is one decoded server-sent event. Type is empty when the server
// omitted the 'event:' field. Multi-line data fields are joined with newlines.
type Event struct {
	Type string
	Data string
}

// Stream is one long-lived event stream connection. Consume events from
// Events(); once that channel closes, Err reports how the stream ended.
// A Stream isn't restartable, reconnect with a new Open.
type Stream struct {
	events chan Event
	body   io.ReadCloser
	done   chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
}

// Open establishes a streaming GET against url and starts decoding events.
// Extra headers, for example Authorization, are merged into the request.
func Open(ctx context.Context, url string, header http.Header) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: unexpected status code: %v", ErrConnection, resp.StatusCode)
	}

	s := &Stream{
		events: make(chan Event),
		body:   resp.Body,
		done:   make(chan struct{}),
	}
	go s.drain()
	return s, nil
}

// Events returns the lazy sequence of decoded events. The channel closes
// when the connection ends, check Err afterwards to tell a clean server
// close from a transport failure.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Err is valid once Events() has closed. It's nil after a clean close,
// either server-initiated or via Close, and non-nil after a mid-stream
// disconnect.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close releases the underlying connection and ends iteration. Idempotent.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.done)
	s.body.Close()
}

func (s *Stream) drain() {
	defer func() {
		s.body.Close()
		close(s.events)
	}()

	scanner := bufio.NewScanner(s.body)
	var eventType string
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			// End of event, flush if any data was collected
			if len(data) > 0 {
				select {
				case s.events <- Event{Type: eventType, Data: strings.Join(data, "\n")}:
				case <-s.done:
					return
				}
			}
			eventType = ""
			data = nil
			continue
		}

		if after, ok := strings.CutPrefix(line, "event: "); ok {
			eventType = after
		} else if after, ok := strings.CutPrefix(line, "data: "); ok {
			// 'data: ' with empty payload is a continuation separator
			if after != "" {
				data = append(data, after)
			}
		} else if misc.Truthy(os.Getenv("DEBUG")) {
			ancli.Noticef("sse: ignoring unrecognized line: '%v'\n", line)
		}
	}

	if err := scanner.Err(); err != nil {
		s.mu.Lock()
		// A read error caused by Close is a clean shutdown, not a disconnect
		if !s.closed {
			s.err = fmt.Errorf("stream disconnected: %w", err)
		}
		s.mu.Unlock()
	}
}
