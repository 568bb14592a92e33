package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrGateway matches every *Error with errors.Is.
	ErrGateway = errors.New("payment gateway error")

	ErrNotConfigured     = errors.New("gateway credentials are not configured")
	ErrMalformedResponse = errors.New("malformed gateway response")
	ErrBadSignature      = errors.New("webhook signature mismatch")
)

// Error is any failure talking to the gateway: transport, timeout, non-2xx
// status or an undecodable reply. It never carries credentials.
type Error struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrGateway }
