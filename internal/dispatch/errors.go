package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors. Unreachable covers transport failures, timeouts and
// 5xx-class responses and triggers failover; Rejected covers request-shape
// problems (bad payload, auth) where trying another endpoint cannot help.
var (
	ErrEndpointUnreachable   = errors.New("vlm-mux: endpoint unreachable")
	ErrEndpointRejected      = errors.New("vlm-mux: endpoint rejected request")
	ErrNoEndpointAvailable   = errors.New("vlm-mux: no endpoint available")
	ErrAllEndpointsExhausted = errors.New("vlm-mux: all endpoints exhausted")
)

// Error is the terminal failure of one WorkItem, carrying routing context.
type Error struct {
	Err      error
	Endpoint string
	Attempts int
}

func (e *Error) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("vlm-mux: attempts=%d: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("vlm-mux: endpoint=%s attempts=%d: %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the failure should trigger failover to a
// different endpoint.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrEndpointUnreachable)
}

// IsFatal reports whether the failure aborts the attempt sequence: the
// request itself is at fault, so no other endpoint would accept it.
func IsFatal(err error) bool {
	return errors.Is(err, ErrEndpointRejected)
}
