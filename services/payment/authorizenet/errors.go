package authorizenet

import (
	"errors"
	"fmt"
)

// ErrorKind separates transport failures from gateway-reported failures.
type ErrorKind int

const (
	// ErrorKindConnection marks transport failures: timeouts, refused
	// connections, unreadable or malformed replies. The gateway was never
	// reached or never answered intelligibly, so callers may retry.
	ErrorKindConnection ErrorKind = iota

	// ErrorKindResponse marks replies where the gateway itself signaled
	// failure: declines, validation errors, non-2xx HTTP statuses.
	ErrorKindResponse
)

func (k ErrorKind) String() string {
	if k == ErrorKindConnection {
		return "connection"
	}
	return "response"
}

// GatewayError is the error type returned by the gateway clients. Response
// errors carry the gateway's message, an optional gateway code and, when the
// reply parsed as a transaction outcome, the full canonical result so callers
// can inspect declines (AVS/CVV codes) without losing detail.
type GatewayError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Result  *TransactionResult

	cause error
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error { return e.cause }

func newConnectionError(err error) *GatewayError {
	return &GatewayError{
		Kind:    ErrorKindConnection,
		Message: fmt.Sprintf("gateway request failed: %v", err),
		cause:   err,
	}
}

// IsConnectionError reports whether err is a Connection-kind GatewayError.
func IsConnectionError(err error) bool {
	var gerr *GatewayError
	return errors.As(err, &gerr) && gerr.Kind == ErrorKindConnection
}

// IsResponseError reports whether err is a Response-kind GatewayError.
func IsResponseError(err error) bool {
	var gerr *GatewayError
	return errors.As(err, &gerr) && gerr.Kind == ErrorKindResponse
}
