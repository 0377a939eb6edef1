// Package apperr tags errors with a stable kind so transports can map them
// without string matching.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindDependency Kind = "dependency"
	KindParse      Kind = "parse"
	KindInternal   Kind = "internal"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, id string) error {
	return &Error{Kind: KindNotFound, Op: op, Message: "not found: " + id}
}

func Dependency(op string, err error) error {
	return &Error{Kind: KindDependency, Op: op, Message: "dependency failed", Err: err}
}

func Parse(op string, err error) error {
	return &Error{Kind: KindParse, Op: op, Message: "unparseable response", Err: err}
}

// KindOf returns the kind of the first *Error in the chain, KindInternal
// otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, k Kind) bool { return err != nil && KindOf(err) == k }
