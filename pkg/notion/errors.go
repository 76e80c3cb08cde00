package notion

import (
	"errors"
	"fmt"
)

var (
	// ErrPageNotFound means the requested page block was absent from the
	// upstream response.
	ErrPageNotFound = errors.New("page block not found")
	// ErrNoCollection means the page carries no collection record.
	ErrNoCollection = errors.New("no collection on page")
	// ErrMalformedResponse means the upstream payload was missing an
	// expected shape (e.g. no record map at all).
	ErrMalformedResponse = errors.New("malformed upstream response")
	// ErrInvalidPageID means the caller-supplied ID could not be normalized.
	ErrInvalidPageID = errors.New("invalid page id")
)

// UpstreamError reports a failed call to the record store: a non-2xx status,
// a transport failure, or a timeout. It is fatal for the primary page and
// collection fetches and swallowed everywhere else.
type UpstreamError struct {
	Resource string
	Status   int
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("notion %s: http %d", e.Resource, e.Status)
	}
	return fmt.Sprintf("notion %s: %v", e.Resource, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsUpstreamError reports whether err originated from a record store call.
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
