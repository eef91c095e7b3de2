package transit

import (
	"errors"
	"fmt"
)

// RequestError is returned for every failed call to the transit service:
// transport errors, timeouts, non-2xx statuses and undecodable bodies.
// StatusCode is zero when no response was received.
type RequestError struct {
	Op         string
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 && e.Err == nil {
		if e.Body != "" {
			return fmt.Sprintf("%s: %s %s returned status %d: %s", e.Op, e.Method, e.URL, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("%s: %s %s returned status %d", e.Op, e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Op, e.Method, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsRequestError reports whether err came from a failed transit call
func IsRequestError(err error) bool {
	var target *RequestError
	return errors.As(err, &target)
}
