package state

import (
	"errors"
	"fmt"
)

// ErrorKind separates "fix your request" failures from "that session is gone".
type ErrorKind int

const (
	KindBadRequest ErrorKind = iota + 1
	KindNotFound
)

var (
	// ErrBadRequest matches every KindBadRequest error via errors.Is.
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound matches every KindNotFound error via errors.Is.
	ErrNotFound = errors.New("not found")

	// ErrNoDefaultConnection is returned when work routes to the default
	// connection but none was configured.
	ErrNoDefaultConnection = errors.New("default connection not configured")
)

// Error is returned by registry operations.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrBadRequest:
		return e.Kind == KindBadRequest
	case ErrNotFound:
		return e.Kind == KindNotFound
	}
	return false
}

// KindOf returns the kind of a registry error, or 0 for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func badRequest(msg string, err error) error {
	return &Error{Kind: KindBadRequest, Msg: msg, Err: err}
}

func notFound(id string) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf("connection %q not found", id)}
}
