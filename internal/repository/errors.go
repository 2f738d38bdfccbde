package repository

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/lostintravel/travelsync/internal/remote"
)

// Kind classifies every failure the repository surfaces to callers.
// Expected outcomes — offline, cache miss, not found — are kinds here,
// never panics or stringly-typed errors.
type Kind int

const (
	// Network: the remote was unreachable or timed out.
	Network Kind = iota
	// Server: the remote rejected the request; Code carries the status.
	Server
	// NotFound: resource absent, either a server 404 or a by-id cache
	// miss while offline.
	NotFound
	// NoCachedData: a category read with an empty cache and no
	// connectivity.
	NoCachedData
	// Storage: the local store failed. Fatal to the operation, no
	// fallback exists for a broken local store.
	Storage
	// Unknown: parse failures and anything unexpected.
	Unknown
)

func (k Kind) String() string {
	switch k {
	case Network:
		return "network"
	case Server:
		return "server"
	case NotFound:
		return "not_found"
	case NoCachedData:
		return "no_cached_data"
	case Storage:
		return "storage"
	case Unknown:
		return "unknown"
	}
	return "unknown"
}

// Error is the repository's typed failure.
type Error struct {
	Kind Kind
	// Code is the upstream HTTP status for Kind == Server, zero otherwise.
	Code int
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == Server {
		return fmt.Sprintf("%s error (status %d): %v", e.Kind, e.Code, e.Err)
	}
	if e.Err == nil {
		return e.Kind.String() + " error"
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts a repository *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func storageErr(err error) *Error {
	return &Error{Kind: Storage, Err: err}
}

// mapRemote translates a fetcher failure into the caller-facing taxonomy.
func mapRemote(err error) *Error {
	var re *remote.Error
	if !errors.As(err, &re) {
		return &Error{Kind: Unknown, Err: err}
	}

	switch re.Kind {
	case remote.Unreachable, remote.Timeout:
		return &Error{Kind: Network, Err: err}
	case remote.Server:
		if re.Code == http.StatusNotFound {
			return &Error{Kind: NotFound, Code: re.Code, Err: err}
		}
		return &Error{Kind: Server, Code: re.Code, Err: err}
	case remote.Malformed:
		return &Error{Kind: Unknown, Err: err}
	}
	return &Error{Kind: Unknown, Err: err}
}
