package n8n

import (
	"errors"
	"fmt"
)

// APIError is a non-200 answer from the server after any fallback was tried.
type APIError struct {
	StatusCode int
	URL        string
	Body       string // first 512 bytes
}

func (e *APIError) Error() string {
	return fmt.Sprintf("n8n api: %s: HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}

// TransportError covers failures before a response arrived: DNS, refused
// connections, TLS and timeouts.
type TransportError struct {
	URL  string
	Host string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("n8n transport: %s (host=%s): %v", e.URL, e.Host, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError means the server answered 200 with a body that is not JSON.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("n8n decode: %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

func IsTransport(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}
