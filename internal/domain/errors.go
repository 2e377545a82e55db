package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures reported to the host.
type ErrorKind string

const (
	KindLoginFailed      ErrorKind = "LOGIN_FAILED"
	KindUserActionNeeded ErrorKind = "USER_ACTION_NEEDED"
	KindVendorDown       ErrorKind = "VENDOR_DOWN"
	KindUnparseable      ErrorKind = "UNPARSEABLE_RESPONSE"
)

var (
	ErrLoginFailed      = errors.New(string(KindLoginFailed))
	ErrUserActionNeeded = errors.New(string(KindUserActionNeeded))
	ErrVendorDown       = errors.New(string(KindVendorDown))
	ErrUnparseable      = errors.New(string(KindUnparseable))
)

var sentinels = map[ErrorKind]error{
	KindLoginFailed:      ErrLoginFailed,
	KindUserActionNeeded: ErrUserActionNeeded,
	KindVendorDown:       ErrVendorDown,
	KindUnparseable:      ErrUnparseable,
}

// Error is a classified failure. errors.Is matches it against the sentinel of its kind.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

// NewError returns a classified error wrapping err (which may be nil).
func NewError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}
