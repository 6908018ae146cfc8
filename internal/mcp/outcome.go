package mcp

// State is the terminal state of a dispatched call.
type State int

const (
	// Completed means a reply with a matching id arrived. The reply may
	// still carry an application-level error, check Response.Error.
	Completed State = iota
	// TimedOut means no matching reply arrived within the deadline. The
	// POST has already been sent and isn't cancelled, the caller just
	// stops waiting.
	TimedOut
	// TransportError means the session's stream ended, or the dispatch
	// itself failed, before a matching reply was observed.
	TransportError
)

func (s State) String() string {
	switch s {
	case Completed:
		return "completed"
	case TimedOut:
		return "timed out"
	case TransportError:
		return "transport error"
	default:
		return "unknown"
	}
}

// Outcome is the resolution of one call. Response is set when State is
// Completed, Err when State is TransportError.
type Outcome struct {
	State    State
	Response *Response
	Err      error
}
