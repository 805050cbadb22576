// Package boterr defines the error kinds surfaced by the callback facade,
// the command router and the user store.
//
// Validation failures carry a specific Kind. Everything else (transport and
// driver failures, unexpected internal errors) is folded into KindRuntime by
// Wrap, keeping the original message.
package boterr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindRuntime Kind = iota
	KindEmptyContent
	KindContentType
	KindURL
	KindIncompatibility
	KindBindCommand
)

var kindNames = map[Kind]string{
	KindRuntime:         "runtime",
	KindEmptyContent:    "empty_content",
	KindContentType:     "content_type",
	KindURL:             "url",
	KindIncompatibility: "incompatibility",
	KindBindCommand:     "bind_command",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single error type of this module. Match kinds with errors.Is
// against the Err* sentinels.
type Error struct {
	Kind Kind
	Code int
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("error code %d: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality, so any *Error matches the sentinel of its kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrRuntime         = &Error{Kind: KindRuntime, Code: 500, Msg: "runtime failure"}
	ErrEmptyContent    = &Error{Kind: KindEmptyContent, Code: 200, Msg: "empty content"}
	ErrContentType     = &Error{Kind: KindContentType, Code: 400, Msg: "wrong content type"}
	ErrURL             = &Error{Kind: KindURL, Code: 400, Msg: "malformed url"}
	ErrIncompatibility = &Error{Kind: KindIncompatibility, Code: 500, Msg: "incompatible audience"}
	ErrBindCommand     = &Error{Kind: KindBindCommand, Code: 100, Msg: "bad command binding"}
)

func New(kind Kind, msg string, code int) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

func EmptyContent(msg string, code int) *Error    { return New(KindEmptyContent, msg, code) }
func ContentType(msg string, code int) *Error     { return New(KindContentType, msg, code) }
func URL(msg string, code int) *Error             { return New(KindURL, msg, code) }
func Incompatibility(msg string, code int) *Error { return New(KindIncompatibility, msg, code) }
func BindCommand(msg string, code int) *Error     { return New(KindBindCommand, msg, code) }

// Runtime wraps err as a generic runtime failure carrying err's message.
func Runtime(err error) *Error {
	return &Error{Kind: KindRuntime, Code: ErrRuntime.Code, Msg: err.Error(), Err: err}
}

// Wrap lets errors that already belong to the taxonomy through unchanged and
// converts anything else into a runtime failure. A nil err stays nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Runtime(err)
}

// KindOf returns the kind of err, or KindRuntime when err is outside the
// taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRuntime
}
