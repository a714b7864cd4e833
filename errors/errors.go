// Package errors provides error handling for ldx.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints
//
// Usage:
//
//	if err := t.Send(ctx, frame); err != nil {
//	    return errors.Wrap(err, "failed to send command frame")
//	}
//
//	if errors.Is(err, errors.ErrTransportClosed) {
//	    // channel is gone, stop submitting
//	}
//
// Failures reported by the command processor are never Go errors: they travel
// as unsuccessful responses. The errors here describe the plumbing around it
// (transports, framing, configuration).
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	UnwrapAll     = crdb.UnwrapAll
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
	FlattenHints  = crdb.FlattenHints
)

// Sentinel errors. Wrap these with errors.Wrap() to add context while
// keeping them matchable with errors.Is().
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")

	// ErrTransportClosed indicates the frame transport has been closed
	ErrTransportClosed = New("transport closed")

	// ErrInvalidFrame indicates a frame could not be encoded or decoded
	ErrInvalidFrame = New("invalid frame")

	// ErrUnsupportedStrategy indicates an unknown channel strategy or transport name
	ErrUnsupportedStrategy = New("unsupported channel strategy")

	// ErrRemote indicates the far side of a transport reported a failure
	ErrRemote = New("remote failure")
)

// IsTransportClosed checks if an error is or wraps ErrTransportClosed
func IsTransportClosed(err error) bool {
	return err != nil && Is(err, ErrTransportClosed)
}

// IsInvalidFrame checks if an error is or wraps ErrInvalidFrame
func IsInvalidFrame(err error) bool {
	return err != nil && Is(err, ErrInvalidFrame)
}

// WrapInvalidFrame marks err as a framing failure with context
func WrapInvalidFrame(err error, context string) error {
	return Wrap(Wrap(ErrInvalidFrame, err.Error()), context)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}
