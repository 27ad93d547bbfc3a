package gateway

import "errors"

// ErrAuthRequired aborts a call that needs a token when none is stored.
var ErrAuthRequired = errors.New("Authentication required.")

// APIError is a non-2xx response. Message is what the user sees.
type APIError struct {
	Message string
	Status  int
}

func (e *APIError) Error() string { return e.Message }

// TransportError means no response was received at all.
type TransportError struct {
	Method   string
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
