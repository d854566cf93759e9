package apierr

import (
	"errors"
	"fmt"
)

// Code is the classification of a failed access point call.
type Code string

// The closed set of codes an access point call can fail with.
const (
	// CodePermission means the caller's authorization predicate refused the
	// call before any network activity.
	CodePermission Code = "err-permission"

	// CodeComm means the request never produced a response: network failure,
	// cancellation or timeout.
	CodeComm Code = "err-comm"

	// CodeUnknown means the server answered with valid JSON outside the
	// 200-299 range and nothing narrowed the failure further.
	CodeUnknown Code = "err-unknown"

	// CodeOther means the server answered with a body that is not JSON.
	CodeOther Code = "err-other"
)

// Default messages for the built-in failures.
const (
	MsgPermission = "You don't have the required permissions to access this resource"
	MsgComm       = "Could not communicate with the server"
	MsgUnknown    = "Unknown error"
)

// Valid reports whether c is one of the four known codes.
func (c Code) Valid() bool {
	switch c {
	case CodePermission, CodeComm, CodeUnknown, CodeOther:
		return true
	}
	return false
}

// Error is the normalized failure of an access point call.
//
// Status is 0 when the failure happened before a response was received
// (permission denial, network error, cancellation); otherwise it holds the
// HTTP status of the response. Values are treated as immutable: the WithX
// helpers return copies.
type Error struct {
	Status  int    `json:"status"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// New builds an Error.
func New(status int, c Code, msg string) *Error {
	return &Error{Status: status, Code: c, Message: msg}
}

// Permission returns the error produced when a call is not allowed.
func Permission() *Error { return New(0, CodePermission, MsgPermission) }

// Comm returns the error produced when the transport fails or the call is
// cancelled.
func Comm() *Error { return New(0, CodeComm, MsgComm) }

// Unknown returns the default error for a non-success JSON response.
func Unknown(status int) *Error { return New(status, CodeUnknown, MsgUnknown) }

// Other returns the error for a response body that is not JSON.
func Other(status int, msg string) *Error { return New(status, CodeOther, msg) }

// Error implements the error interface.
//
// The format is "<code>: <message>", or "<code> (<status>): <message>" when
// a response status is known.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches another *Error with the same code, so that
// errors.Is(err, apierr.Comm()) works regardless of status and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of e with a replaced message. Useful for
// localizing the built-in messages.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// WithCode returns a copy of e with a replaced code.
func (e *Error) WithCode(c Code) *Error {
	cp := *e
	cp.Code = c
	return &cp
}

// As extracts the *Error carried by err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// HasCode reports whether err carries an *Error with code c.
func HasCode(err error, c Code) bool {
	e, ok := As(err)
	return ok && e.Code == c
}
