package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork means no response was received: dial failure, timeout or reset.
	ErrNetwork = errors.New("backend unreachable")
	// ErrMalformed means a 2xx response whose body could not be decoded.
	ErrMalformed = errors.New("malformed backend response")
)

// RejectedError is a non-2xx response from the backend.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("backend rejected request: status %d: %s", e.StatusCode, e.Body)
}

func IsNetwork(err error) bool { return errors.Is(err, ErrNetwork) }

func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
