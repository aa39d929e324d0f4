package reasoning

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnauthorized       Kind = "unauthorized"
	KindServiceUnavailable Kind = "service_unavailable"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Error is returned by every Client call that fails.
// Status is 0 when no HTTP response was received.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrServiceUnavailable:
		return e.Kind == KindServiceUnavailable
	}
	return false
}

func unavailable(status int, msg string, err error) *Error {
	return &Error{Kind: KindServiceUnavailable, Status: status, Message: msg, Err: err}
}

func unauthorized(status int, msg string) *Error {
	return &Error{Kind: KindUnauthorized, Status: status, Message: msg}
}
