package waha

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfiguration Kind = "configuration_error"
	KindTransport     Kind = "transport_error"
	KindProtocol      Kind = "protocol_error"
	KindDecode        Kind = "decode_error"
	KindDomain        Kind = "domain_error"
)

var (
	ErrNotConfigured = errors.New("WAHA API URL is not configured")
	ErrUnknownOp     = errors.New("unknown WAHA operation")
	ErrNoQRCode      = errors.New("no QR code found in response")
	ErrSessionAbsent = errors.New("session not found, needs start")
)

func errInvalidProtocol(protocol string) error {
	return fmt.Errorf("invalid protocol %q, expected http or https", protocol)
}

// Error is returned by every failing WAHA call.
type Error struct {
	Kind       Kind
	Op         Op
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindConfiguration:
		return "configuration error: " + e.unwrapMessage()
	case KindTransport:
		return "request failed: " + e.unwrapMessage()
	case KindProtocol:
		return fmt.Sprintf("API returned error code: %d", e.StatusCode)
	case KindDecode:
		if errors.Is(e.Err, ErrNoQRCode) {
			return e.Err.Error()
		}
		return "invalid JSON response: " + e.unwrapMessage()
	case KindDomain:
		return e.unwrapMessage()
	}
	return e.unwrapMessage()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) unwrapMessage() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

// KindOf reports the Kind of a *Error anywhere in err's chain, or "".
func KindOf(err error) Kind {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Kind
	}
	return ""
}

func IsTransport(err error) bool {
	return KindOf(err) == KindTransport
}
