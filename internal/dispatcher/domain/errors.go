package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueUnavailable marks transport and protocol failures talking to the
	// queue service. A poll that fails this way is treated as "no jobs".
	ErrQueueUnavailable = errors.New("queue service unavailable")

	// ErrInvalidJob is returned when a polled job is missing required fields
	ErrInvalidJob = errors.New("invalid job")
)

// HTTPError wraps a non-2xx response so callers can inspect the status code
type HTTPError struct {
	StatusCode int
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
