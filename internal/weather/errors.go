package weather

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when no record matches a lookup.
var ErrNotFound = errors.New("weather record not found")

// FetchError covers transport failures and non-2xx responses.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a malformed payload. Index is -1 for document-level
// problems.
type ParseError struct {
	Index int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	switch {
	case e.Index >= 0 && e.Field != "":
		return fmt.Sprintf("parse forecast entry %d: field %q: %v", e.Index, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("parse forecast: field %q: %v", e.Field, e.Err)
	default:
		return fmt.Sprintf("parse forecast: %v", e.Err)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// StoreError wraps a persistence failure. It is surfaced to Sync callers.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
