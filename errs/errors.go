package errs

import (
	"errors"
	"fmt"
)

// Error is the error type every transport operation returns. It carries a
// Kind for retry classification plus an optional wrapped cause, splitting
// retry-relevant classification from the human message but closed over a
// fixed taxonomy rather than free-form codes.
type Error interface {
	error

	Kind() Kind
	Is(kind Kind) bool
	Unwrap() error
}

type terr struct {
	kind  Kind
	msg   string
	cause error
}

func (e *terr) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.kind, e.msg, e.cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *terr) Kind() Kind { return e.kind }

func (e *terr) Is(kind Kind) bool { return e.kind == kind }

func (e *terr) Unwrap() error { return e.cause }

// New builds an Error of the given kind with a static message.
func New(kind Kind, message string) Error {
	return &terr{kind: kind, msg: message}
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) Error {
	return &terr{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind classification to an arbitrary cause.
func Wrap(kind Kind, message string, cause error) Error {
	return &terr{kind: kind, msg: message, cause: cause}
}

// Is reports whether err is a transport Error of the given Kind.
func Is(err error, kind Kind) bool {
	var te Error
	if errors.As(err, &te) {
		return te.Is(kind)
	}
	return false
}

// KindOf extracts the Kind of err, or KindOther if err is not a transport
// Error (or is nil, in which case KindOther with no meaning is returned —
// callers must nil-check separately).
func KindOf(err error) Kind {
	var te Error
	if errors.As(err, &te) {
		return te.Kind()
	}
	return KindOther
}

// Retryable reports whether err should drive the backoff/reconnect path.
// A nil error is never retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err).Retryable()
}
