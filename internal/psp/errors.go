package psp

import (
	"errors"
	"fmt"
)

// GatewayError is a failed PSP call. Unavailable errors (timeouts,
// connection failures, 5xx) are transient and never drive a state
// transition; rejected errors are permanent.
type GatewayError struct {
	Code        string
	Message     string
	Unavailable bool
}

func (e *GatewayError) Error() string {
	if e.Unavailable {
		return fmt.Sprintf("psp unavailable: %s", e.Message)
	}
	return fmt.Sprintf("psp rejected [%s]: %s", e.Code, e.Message)
}

// NewRejected builds a permanent rejection error.
func NewRejected(code, message string) *GatewayError {
	return &GatewayError{Code: code, Message: message}
}

// NewUnavailable builds a transient transport error.
func NewUnavailable(message string) *GatewayError {
	return &GatewayError{Unavailable: true, Message: message}
}

// IsRejected reports whether err is a permanent PSP rejection.
func IsRejected(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && !ge.Unavailable
}

// IsUnavailable reports whether err is a transient PSP failure.
func IsUnavailable(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Unavailable
}

// RejectCode extracts the PSP reject code from err, or "".
func RejectCode(err error) string {
	var ge *GatewayError
	if errors.As(err, &ge) && !ge.Unavailable {
		return ge.Code
	}
	return ""
}
