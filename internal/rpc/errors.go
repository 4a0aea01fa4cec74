package rpc

import "fmt"

// UnavailableError reports an endpoint that never became ready.
type UnavailableError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("RPC at %s not available after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
