// Package oserr defines the error taxonomy shared by all core subsystems.
//
// Every failing core operation returns an *Error, which carries a Kind used
// by the executor to derive the exit status, an optional suggestion shown to
// the user as a hint line, and an optional explicit exit code overriding the
// kind's default.
package oserr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind uint8

// Possible values for Kind.
const (
	// Internal signals an invariant violation. It is the zero value so that
	// an uninitialized Error is conspicuous.
	Internal Kind = iota
	Usage
	NotFound
	Exists
	PermissionDenied
	NotADirectory
	IsADirectory
	NotEmpty
	InvalidInput
	StorageUnavailable
	Cancelled
)

var kindNames = [...]string{
	Internal:           "internal error",
	Usage:              "usage error",
	NotFound:           "not found",
	Exists:             "already exists",
	PermissionDenied:   "permission denied",
	NotADirectory:      "not a directory",
	IsADirectory:       "is a directory",
	NotEmpty:           "not empty",
	InvalidInput:       "invalid input",
	StorageUnavailable: "storage unavailable",
	Cancelled:          "cancelled",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("bad kind %d", uint8(k))
}

// Exit statuses, following the usual shell conventions.
const (
	StatusOK               = 0
	StatusError            = 1
	StatusUsage            = 2
	StatusPermissionDenied = 126
	StatusCmdNotFound      = 127
	StatusCancelled        = 130
)

// Error is an error with a Kind. It is the only error type that crosses the
// boundary between the core subsystems and the executor.
type Error struct {
	Kind       Kind
	Message    string
	Suggestion string
	// Code overrides the exit status derived from Kind when non-zero. The
	// registry uses it to distinguish "command not found" (127) from other
	// NotFound errors (1).
	Code int
}

func (e *Error) Error() string { return e.Message }

// ExitCode returns the exit status for the error.
func (e *Error) ExitCode() int {
	if e.Code != 0 {
		return e.Code
	}
	switch e.Kind {
	case Usage:
		return StatusUsage
	case PermissionDenied:
		return StatusPermissionDenied
	case Cancelled:
		return StatusCancelled
	default:
		return StatusError
	}
}

// Newf returns an *Error of the given kind with a formatted message.
func Newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

// WithSuggestion returns a copy of the error with the suggestion set.
func (e *Error) WithSuggestion(s string) *Error {
	e2 := *e
	e2.Suggestion = s
	return &e2
}

// KindOf returns the Kind of err if it is or wraps an *Error, and Internal
// otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// ExitCodeOf returns the exit status for an arbitrary error. A nil error maps
// to 0 and a non-Error maps to 1.
func ExitCodeOf(err error) int {
	if err == nil {
		return StatusOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.ExitCode()
	}
	return StatusError
}

// ErrCancelled is the error observed by commands when their job is aborted.
var ErrCancelled = &Error{Kind: Cancelled, Message: "cancelled"}
