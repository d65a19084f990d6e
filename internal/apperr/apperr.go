// Package apperr defines the error kinds surfaced by the claim pipeline.
// Every error that crosses a component boundary is either an *Error or wraps one,
// so callers can branch on Kind without string matching.
package apperr

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// Kind is a machine-readable error category.
type Kind string

const (
	KindValidationInput Kind = "ValidationInputError"
	KindNotFound        Kind = "NotFoundError"
	KindConflict        Kind = "ConflictError"
	KindProvider        Kind = "ProviderError"
	KindPersistence     Kind = "PersistenceError"
	KindRuleEvaluation  Kind = "RuleEvaluationError"
)

// Error carries a Kind, a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind without a cause.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches kind and message to err. A nil err yields nil.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(kind Kind, err error, format string, args ...any) error {
	return Wrap(kind, err, fmt.Sprintf(format, args...))
}

// Stack renders err with the eris stack trace of its cause, for debug logs.
func Stack(err error) string {
	return eris.ToString(eris.Wrap(err, MessageOf(err)), true)
}

func InvalidInput(message string) error { return New(KindValidationInput, message) }

func NotFound(message string) error { return New(KindNotFound, message) }

func Conflict(message string) error { return New(KindConflict, message) }

func Provider(err error, message string) error { return Wrap(KindProvider, err, message) }

func Persistence(err error, message string) error { return Wrap(KindPersistence, err, message) }

// KindOf returns the kind of the outermost *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the human-readable message of the outermost *Error, falling back to err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
