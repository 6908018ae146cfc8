package sse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/baalimago/go_away_boilerplate/pkg/testboil"
)

// testStream is a fixed logical stream exercising every framing rule:
// typed events, untyped data, empty data continuation separators,
// unrecognized fields and multi-line data
const testStream = "event: endpoint\n" +
	"data: /message?sessionId=abc123\n" +
	"\n" +
	"data: {\"jsonrpc\":\"2.0\"}\n" +
	"\n" +
	"event: ping\n" +
	"data: \n" +
	"\n" +
	": keepalive comment\n" +
	"retry: 2000\n" +
	"\n" +
	"event: multi\n" +
	"data: first\n" +
	"data: second\n" +
	"\n"

var wantTestStreamEvents = []Event{
	{Type: "endpoint", Data: "/message?sessionId=abc123"},
	{Type: "", Data: "{\"jsonrpc\":\"2.0\"}"},
	{Type: "multi", Data: "first\nsecond"},
}

func collect(t *testing.T, s *Stream) []Event {
	t.Helper()
	var got []Event
	timeout := time.After(time.Second * 5)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("timed out collecting events, got so far: %v", got)
		}
	}
}

func Test_Open_ConnectionRefused(t *testing.T) {
	_, err := Open(context.Background(), "http://127.0.0.1:1/sse", nil)
	if err == nil {
		t.Fatal("expected error on connection refusal")
	}
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("expected ErrConnection, got: %v", err)
	}
}

func Test_Open_Non2xxStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := Open(context.Background(), ts.URL, nil)
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("expected ErrConnection, got: %v", err)
	}
}

func Test_Open_ForwardsHeaders(t *testing.T) {
	gotAuth := make(chan string, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("missing accept header, got: %v", r.Header.Get("Accept"))
		}
	}))
	defer ts.Close()

	header := http.Header{}
	header.Set("Authorization", "Bearer test-token")
	s, err := Open(context.Background(), ts.URL, header)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	testboil.FailTestIfDiff(t, <-gotAuth, "Bearer test-token")
}

func Test_Events_Framing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, testStream)
	}))
	defer ts.Close()

	s, err := Open(context.Background(), ts.URL, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	got := collect(t, s)
	testboil.FailTestIfDiff(t, fmt.Sprintf("%v", got), fmt.Sprintf("%v", wantTestStreamEvents))
	if s.Err() != nil {
		t.Fatalf("expected clean close, got: %v", s.Err())
	}
}

func Test_Events_ChunkingInvariance(t *testing.T) {
	for _, chunkSize := range []int{1, 2, 3, 5, 16, len(testStream)} {
		t.Run(fmt.Sprintf("chunk_size_%v", chunkSize), func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				fl, ok := w.(http.Flusher)
				if !ok {
					t.Error("response writer is not a flusher")
					return
				}
				for i := 0; i < len(testStream); i += chunkSize {
					end := min(i+chunkSize, len(testStream))
					fmt.Fprint(w, testStream[i:end])
					fl.Flush()
				}
			}))
			defer ts.Close()

			s, err := Open(context.Background(), ts.URL, nil)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			got := collect(t, s)
			testboil.FailTestIfDiff(t, fmt.Sprintf("%v", got), fmt.Sprintf("%v", wantTestStreamEvents))
		})
	}
}

func Test_Close_EndsIteration(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		fmt.Fprint(w, "data: first\n\n")
		fl.Flush()
		// Hold the connection open until the client hangs up
		<-r.Context().Done()
	}))
	defer ts.Close()

	s, err := Open(context.Background(), ts.URL, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	select {
	case ev := <-s.Events():
		testboil.FailTestIfDiff(t, ev.Data, "first")
	case <-time.After(time.Second * 5):
		t.Fatal("timed out waiting for first event")
	}

	s.Close()
	s.Close() // idempotent

	select {
	case _, ok := <-s.Events():
		if ok {
			t.Fatal("expected events channel to close")
		}
	case <-time.After(time.Second * 5):
		t.Fatal("timed out waiting for channel close")
	}
	if s.Err() != nil {
		t.Fatalf("expected clean shutdown on Close, got: %v", s.Err())
	}
}

func Test_MidstreamDisconnect(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("response writer is not a hijacker")
			return
		}
		conn, buf, err := hj.Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		// Advertise more content than is sent, then drop the connection
		// so that the client observes a transport failure, not EOF
		buf.WriteString("HTTP/1.1 200 OK\r\nContent-Type: text/event-stream\r\nContent-Length: 4096\r\n\r\ndata: truncated")
		buf.Flush()
		conn.Close()
	}))
	defer ts.Close()

	s, err := Open(context.Background(), ts.URL, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	got := collect(t, s)
	if len(got) != 0 {
		t.Fatalf("expected no complete events, got: %v", got)
	}
	if s.Err() == nil {
		t.Fatal("expected transport error after mid-stream disconnect")
	}
}
