package cyton

import (
	"errors"
	"fmt"
)

// ErrCode classifies errors from the board protocol.
type ErrCode int

// Error codes.
const (
	// CodeTransportOpen means the device could not be opened.
	CodeTransportOpen ErrCode = iota + 1
	// CodeTransportIO means a read or write failed mid-session.
	CodeTransportIO
	// CodeProtocolTimeout means the "$$$" terminator never arrived.
	CodeProtocolTimeout
	// CodeMalformedFrame means a captured frame failed footer validation.
	CodeMalformedFrame
	// CodeInvalidCommand means a command could not be built.
	CodeInvalidCommand
)

var codeNames = map[ErrCode]string{
	CodeTransportOpen:   "transport open",
	CodeTransportIO:     "transport io",
	CodeProtocolTimeout: "protocol timeout",
	CodeMalformedFrame:  "malformed frame",
	CodeInvalidCommand:  "invalid command",
}

// String implements fmt.Stringer.
func (c ErrCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

var (
	// ErrCancelled indicates the operation stopped because its context was done.
	ErrCancelled = errors.New("cancelled")
	// ErrShortWrite indicates the transport accepted fewer bytes than written.
	ErrShortWrite = errors.New("short write")
)

// Error is a protocol error with a code.
type Error struct {
	Code ErrCode
	Op   string
	Err  error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error.
func NewError(code ErrCode, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code ErrCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}
