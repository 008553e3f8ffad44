// Package identerr defines the error taxonomy shared by the identifier
// allocator, the map persistence layer and the plugin adapter.
//
// Every error carries a Kind, a message and an optional cause. The cause is
// appended to the message on its own line, indented by two spaces, so the
// root cause of a failure is never lost when errors are printed.
package identerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind uint8

const (
	// KindConfiguration marks invalid constructor options.
	KindConfiguration Kind = iota + 1
	// KindRead marks an unreadable map file.
	KindRead
	// KindParse marks map bytes that are not well-formed JSON.
	KindParse
	// KindValidation marks a parsed map with the wrong shape or invalid identifiers.
	KindValidation
	// KindRemoval marks a failed best-effort map file deletion.
	KindRemoval
	// KindWrite marks a failed map file write.
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindRead:
		return "ReadError"
	case KindParse:
		return "ParseError"
	case KindValidation:
		return "ValidationError"
	case KindRemoval:
		return "RemovalWarning"
	case KindWrite:
		return "WriteError"
	}
	return "UNKNOWN"
}

// Sentinels for errors.Is; an *Error matches the sentinel of its kind.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrRead          = &Error{Kind: KindRead}
	ErrParse         = &Error{Kind: KindParse}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrRemoval       = &Error{Kind: KindRemoval}
	ErrWrite         = &Error{Kind: KindWrite}
)

// Error is a tagged failure with an optional underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New returns an error without a cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap returns an error caused by cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Detail returns an error whose cause is a plain-text explanation.
func Detail(kind Kind, msg, detail string) *Error {
	return &Error{Kind: kind, Message: msg, Cause: errors.New(detail)}
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return Compose(e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports kind equality so that errors.Is(err, ErrParse) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Compose appends cause to msg on a new line, re-indenting every line of the
// cause by two spaces. A nil cause yields msg unchanged.
func Compose(msg string, cause any) string {
	if cause == nil {
		return msg
	}
	text := fmt.Sprint(cause)
	return msg + "\n  " + strings.ReplaceAll(text, "\n", "\n  ")
}
