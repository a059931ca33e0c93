package snippet

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a reference could not be included.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "NotFound"
	KindRangeOutOfBounds ErrorKind = "RangeOutOfBounds"
	KindPathEscapesRoot  ErrorKind = "PathEscapesRoot"
	KindReadFailure      ErrorKind = "ReadFailure"
	KindInvalidDirective ErrorKind = "InvalidDirective"
)

func (k ErrorKind) describe() string {
	switch k {
	case KindNotFound:
		return "snippet not found"
	case KindRangeOutOfBounds:
		return "line range out of bounds"
	case KindPathEscapesRoot:
		return "path escapes source root"
	case KindReadFailure:
		return "snippet read failed"
	case KindInvalidDirective:
		return "invalid include directive"
	default:
		return string(k)
	}
}

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrNotFound         = errors.New("snippet not found")
	ErrRangeOutOfBounds = errors.New("line range out of bounds")
	ErrPathEscapesRoot  = errors.New("path escapes source root")
	ErrReadFailure      = errors.New("snippet read failed")
)

var kindSentinels = map[ErrorKind]error{
	KindNotFound:         ErrNotFound,
	KindRangeOutOfBounds: ErrRangeOutOfBounds,
	KindPathEscapesRoot:  ErrPathEscapesRoot,
	KindReadFailure:      ErrReadFailure,
	KindInvalidDirective: ErrInvalidDirective,
}

// Error is a failed include, optionally tied to the directive's location in a document.
type Error struct {
	Kind      ErrorKind
	Directive string
	// Path is the absolute target path when it was computed.
	Path     string
	Document string
	Line     int
	Column   int
	Err      error
}

func newError(kind ErrorKind, ref Reference, path string, cause error) *Error {
	return &Error{Kind: kind, Directive: ref.Raw, Path: path, Err: cause}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("include %q: %s", e.Directive, e.Kind.describe())
	if e.Document != "" {
		msg = fmt.Sprintf("%s:%d:%d: %s", e.Document, e.Line, e.Column, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// At returns a copy of e located at line:column of document.
func (e *Error) At(document string, line, column int) *Error {
	c := *e
	c.Document, c.Line, c.Column = document, line, column
	return &c
}

// Message is the location-free description used in placeholders.
func (e *Error) Message() string {
	if e.Err != nil && e.Kind != KindNotFound && e.Kind != KindReadFailure {
		return fmt.Sprintf("%s: %s (%v)", e.Kind.describe(), e.Directive, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.describe(), e.Directive)
}
