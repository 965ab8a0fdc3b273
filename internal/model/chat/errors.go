package chat

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so handlers can render them to the user.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration"
	KindNetwork       ErrorKind = "network"
	KindEmptyResponse ErrorKind = "empty_response"
	KindValidation    ErrorKind = "validation"
	KindBusy          ErrorKind = "busy"
	KindNotFound      ErrorKind = "not_found"
	KindUnknown       ErrorKind = "unknown"
)

// Error carries a kind, a user-displayable message and an optional cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so sentinels like ErrBusy
// work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Err == nil && (t.Message == "" || t.Message == e.Message)
}

// NewError wraps err with a kind and message.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

var (
	ErrEmptyMessage    = &Error{Kind: KindValidation, Message: "message must not be empty"}
	ErrBusy            = &Error{Kind: KindBusy, Message: "a reply is already in progress"}
	ErrSessionNotFound = &Error{Kind: KindNotFound, Message: "session not found"}
)
