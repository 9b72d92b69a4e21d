package idp

import (
	"errors"
	"fmt"
	"net/http"
)

// TransientError marks a failure that is worth retrying: transport
// errors, rate limiting, and provider-side 5xx responses. When retries
// are exhausted the last TransientError is surfaced to the caller.
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("idp: transient failure (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("idp: transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a remote rejection that retrying cannot fix
// (validation failures, missing records). It is surfaced immediately.
type PermanentError struct {
	Status int
	Body   string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("idp: request rejected (status %d): %s", e.Status, e.Body)
}

// IsNotFound reports whether err is a permanent 404 from the provider.
func IsNotFound(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe) && pe.Status == http.StatusNotFound
}
