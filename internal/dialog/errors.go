package dialog

import (
	"context"
	"errors"

	"sosai/internal/reasoning"
)

var (
	ErrUnsupportedCapability = errors.New("capability not available")
	ErrEmptyInput            = errors.New("empty input")
	ErrClosed                = errors.New("orchestrator closed")
)

// errorInfo classifies a failed step for display.
func errorInfo(err error) *ErrorInfo {
	var re *reasoning.Error
	switch {
	case errors.As(err, &re) && re.Kind == reasoning.KindUnauthorized:
		return &ErrorInfo{Kind: KindUnauthorized, Message: MsgUnauthorized, HTTPStatus: re.Status}
	case errors.Is(err, context.DeadlineExceeded):
		return &ErrorInfo{Kind: KindServiceUnavailable, Message: MsgUnavailable + MsgTimeout}
	case errors.As(err, &re):
		return &ErrorInfo{Kind: KindServiceUnavailable, Message: MsgUnavailable + re.Message, HTTPStatus: re.Status}
	case errors.Is(err, ErrUnsupportedCapability):
		return &ErrorInfo{Kind: KindUnsupportedCapability, Message: MsgUnsupported}
	case errors.Is(err, ErrEmptyInput):
		return &ErrorInfo{Kind: KindEmptyInput, Message: MsgEmptyInput}
	}
	return &ErrorInfo{Kind: KindServiceUnavailable, Message: MsgUnavailable + err.Error()}
}
