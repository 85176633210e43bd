package crawler

import (
	"fmt"
	"net/http"
)

// NetworkError reports a page that could not be fetched. It aborts the run.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d (%s): %v", e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError reports a page missing an element required to continue.
type ParseError struct {
	URL     string
	Element string
	Reason  string
}

func (e *ParseError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("parse %s: %s", e.Element, e.Reason)
	}
	return fmt.Sprintf("parse %s at %s: %s", e.Element, e.URL, e.Reason)
}
