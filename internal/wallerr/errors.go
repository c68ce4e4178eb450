// Package wallerr defines the error taxonomy shared by the wall engine packages.
//
// Every failure is reported as an *Error carrying a Kind. Callers wrap errors with
// fmt.Errorf("...: %w", err) and test for a kind with errors.Is against the
// ErrParse, ErrValidation and ErrLookup sentinels.
package wallerr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error.
type Kind int

const (
	// KindParse marks malformed textual input (descriptors, panel or position strings).
	KindParse Kind = iota + 1
	// KindValidation marks well-formed input whose value is out of range.
	KindValidation
	// KindLookup marks a reference to something that does not exist.
	KindLookup
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse error"
	case KindValidation:
		return "validation error"
	case KindLookup:
		return "lookup error"
	default:
		return "error"
	}
}

// Sentinels for errors.Is matching.
var (
	ErrParse      = &Error{Kind: KindParse}
	ErrValidation = &Error{Kind: KindValidation}
	ErrLookup     = &Error{Kind: KindLookup}
)

// Error is the concrete error type returned by the engine.
type Error struct {
	Kind    Kind
	Message string
	// Value is the offending input, when there is one.
	Value string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Parsef builds a KindParse error for value.
func Parsef(value, format string, args ...any) *Error {
	return &Error{Kind: KindParse, Value: value, Message: fmt.Sprintf(format, args...)}
}

// Validationf builds a KindValidation error for value.
func Validationf(value, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Value: value, Message: fmt.Sprintf(format, args...)}
}

// Lookupf builds a KindLookup error for value.
func Lookupf(value, format string, args ...any) *Error {
	return &Error{Kind: KindLookup, Value: value, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
