package remote

import "fmt"

// Kind classifies a fetch failure. Every remote operation fails with
// exactly one of these; callers switch on Kind exhaustively instead of
// string-matching errors.
type Kind int

const (
	// Unreachable: no connection or a transport-level failure.
	Unreachable Kind = iota
	// Timeout: the request ran out of time.
	Timeout
	// Server: the remote answered with a non-2xx status; Code carries it.
	Server
	// Malformed: the response could not be parsed into the expected shape.
	Malformed
)

func (k Kind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case Timeout:
		return "timeout"
	case Server:
		return "server"
	case Malformed:
		return "malformed"
	}
	return "unknown"
}

// Error is the typed failure returned by every Client operation.
type Error struct {
	Kind Kind
	// Code is the HTTP status for Kind == Server, zero otherwise.
	Code int
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == Server {
		return fmt.Sprintf("remote %s (status %d): %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("remote %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
