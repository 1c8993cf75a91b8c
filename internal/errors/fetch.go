package errors

import (
	stdErrors "errors"
	"fmt"
)

// FetchError is returned once every attempt to GET a URL has failed.
// It wraps the error of the final attempt.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a FetchError for url
func NewFetchError(url string, attempts int, err error) *FetchError {
	return &FetchError{URL: url, Attempts: attempts, Err: err}
}

// IsFetchError reports whether err is a FetchError (even when wrapped).
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return stdErrors.As(err, &fetchErr)
}
