package delivery

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is against a returned *Error.
var (
	ErrNetwork     = errors.New("network error")
	ErrServer      = errors.New("server error")
	ErrRateLimited = errors.New("rate limited")
	ErrClient      = errors.New("client error")
	ErrDecoding    = errors.New("response decoding failed")
	ErrEncoding    = errors.New("request encoding failed")
)

// Error describes a failed delivery.
type Error struct {
	Kind       error
	StatusCode int
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Attempts > 0 {
		msg = fmt.Sprintf("%s after %d attempt(s)", msg, e.Attempts)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Retryable reports whether another attempt may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case ErrNetwork, ErrServer, ErrRateLimited:
		return true
	default:
		return false
	}
}

func (e *Error) outcome() string {
	switch e.Kind {
	case ErrNetwork:
		return "network"
	case ErrServer:
		return "server"
	case ErrRateLimited:
		return "rate_limited"
	case ErrClient:
		return "client"
	case ErrDecoding:
		return "decoding"
	case ErrEncoding:
		return "encoding"
	}
	return "unknown"
}
