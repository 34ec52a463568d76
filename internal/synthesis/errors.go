package synthesis

import "fmt"

// TransportError wraps a network-level failure reaching the provider.
// Callers may treat it as transient and retry.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("synthesis: transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError means the provider answered but the body was not the JSON we
// expect. The raw body is kept for diagnostics.
type ProtocolError struct {
	StatusCode int
	Body       string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("synthesis: malformed response (status %d): %s", e.StatusCode, e.Body)
}

// APIError is a well-formed error response from the provider. The status code
// is propagated to our own callers so a 404 stays a 404.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("synthesis: provider error (status %d): %s", e.StatusCode, e.Message)
}
