// Package status defines the result codes reported for orchestrated
// playback commands, and the error type that carries them.
package status

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Code is the result of a playback command.
type Code int

const (
	OK Code = iota
	// Skipped marks a command superseded by a later one (seek coalescing).
	// It is not a failure.
	Skipped
	InvalidOperation
	BadValue
	PermissionDenied
	IOError
	Unknown
)

// String returns the code name.
func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case Skipped:
		return "Skipped"
	case InvalidOperation:
		return "InvalidOperation"
	case BadValue:
		return "BadValue"
	case PermissionDenied:
		return "PermissionDenied"
	case IOError:
		return "IOError"
	case Unknown:
		return "Unknown"
	default:
		return "Unknown"
	}
}

// IsError returns true if the code represents a failure.
func (c Code) IsError() bool {
	return c != OK && c != Skipped
}

// Error pairs a code with the operation that produced it.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	default:
		return e.Code.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an Error with a formatted message wrapped as Err.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// New builds an Error carrying just a code and operation.
func New(code Code, op string) *Error {
	return &Error{Code: code, Op: op}
}

// FromError maps an arbitrary error to a status code.
// Errors raised inside a command are caught at the scheduler boundary and
// reported through this mapping; they never reach the caller directly.
func FromError(err error) Code {
	if err == nil {
		return OK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	switch {
	case errors.Is(err, os.ErrPermission):
		return PermissionDenied
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrClosed):
		return IOError
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return IOError
	}
	return Unknown
}
