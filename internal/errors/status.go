package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxStatusBody caps how much of an error response body is kept in the message
const maxStatusBody = 512

// StatusError represents a non-2xx HTTP response
type StatusError struct {
	StatusCode int
	Body       string // Leading part of the response body, if any
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// NewStatusError creates a StatusError, trimming and truncating the body
func NewStatusError(statusCode int, body string) *StatusError {
	body = strings.TrimSpace(body)
	if len(body) > maxStatusBody {
		n := maxStatusBody
		// cut on a rune boundary
		for n > 0 && !utf8.RuneStart(body[n]) {
			n--
		}
		body = body[:n]
	}
	return &StatusError{StatusCode: statusCode, Body: body}
}

// IsStatusError checks if error is a StatusError
func IsStatusError(err error) bool {
	var statusErr *StatusError
	return stdErrors.As(err, &statusErr)
}
