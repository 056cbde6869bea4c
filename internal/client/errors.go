package client

import "fmt"

// NetworkError wraps a transport-level failure: DNS, refused connection,
// timeout. The request never produced an HTTP status.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError is a non-2xx response without a structured error body.
type StatusError struct {
	Op     string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Op, e.URL, e.Status)
}

// ValidationError is a 4xx response carrying the service's structured
// {"detail": "..."} body. Detail is safe to show to the operator verbatim.
type ValidationError struct {
	Status int
	Detail string
}

func (e *ValidationError) Error() string { return e.Detail }
