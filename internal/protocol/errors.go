package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrEnvelopeTooLarge   = errors.New("protocol: envelope too large")
	ErrInvalidEnvelope    = errors.New("protocol: invalid envelope")
	ErrPayloadMismatch    = errors.New("protocol: payload does not match type")
	ErrMalformed          = errors.New("protocol: malformed envelope")
	ErrMissingField       = errors.New("protocol: missing field")
	ErrUnsupportedVersion = errors.New("protocol: unsupported version")
	ErrProtocolMismatch   = errors.New("protocol: protocol mismatch")
	ErrUnknownType        = errors.New("protocol: unknown message type")
	ErrInvalidAddress     = errors.New("protocol: invalid hardware address")
)

// ParseError reports why an inbound envelope was rejected.
// Callers log it and drop the frame.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("protocol: parse error: %s", e.Reason)
	}
	return fmt.Sprintf("protocol: parse error: %s: %v", e.Reason, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseErr(reason string, err error) error {
	return &ParseError{Reason: reason, Err: err}
}
