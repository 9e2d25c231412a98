package fetcher

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindTimeout    Kind = "timeout"
	KindHTTPStatus Kind = "http_status"
)

// FetchError describes why a page could not be retrieved.
type FetchError struct {
	Kind       Kind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// asFetchError unwraps err into a *FetchError when it is one.
func asFetchError(err error) (*FetchError, bool) {
	var target *FetchError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
