package apperror

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies failures so transports can map them without string matching.
type Kind string

const (
	KindNotFound   Kind = "NOT_FOUND"
	KindValidation Kind = "VALIDATION"
	KindNoInput    Kind = "NO_INPUT"
	KindExtraction Kind = "EXTRACTION"
	KindStorage    Kind = "STORAGE"
	KindGeneration Kind = "GENERATION"
	KindIndex      Kind = "INDEX"
	KindConflict   Kind = "CONFLICT"
)

// Error is the single error type crossing service boundaries.
type Error struct {
	Kind      Kind
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperror.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Kind sentinels for errors.Is.
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrValidation = &Error{Kind: KindValidation}
	ErrNoInput    = &Error{Kind: KindNoInput}
	ErrExtraction = &Error{Kind: KindExtraction}
	ErrStorage    = &Error{Kind: KindStorage}
	ErrGeneration = &Error{Kind: KindGeneration}
	ErrIndex      = &Error{Kind: KindIndex}
	ErrConflict   = &Error{Kind: KindConflict}
)

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NoInput(format string, args ...any) *Error {
	return &Error{Kind: KindNoInput, Message: fmt.Sprintf(format, args...)}
}

func Extraction(format string, args ...any) *Error {
	return &Error{Kind: KindExtraction, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Storage(message string, err error) *Error {
	return &Error{Kind: KindStorage, Message: message, Err: err}
}

func Index(message string, err error) *Error {
	return &Error{Kind: KindIndex, Message: message, Err: err, Retryable: isTimeout(err)}
}

// Generation wraps a provider failure. Deadlines are reported as retryable.
func Generation(message string, err error) *Error {
	return &Error{Kind: KindGeneration, Message: message, Err: err, Retryable: isTimeout(err)}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether the caller may retry the same request.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return isTimeout(err)
}

func isTimeout(err error) bool {
	return err != nil && errors.Is(err, context.DeadlineExceeded)
}
