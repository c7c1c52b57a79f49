// Package apperr classifies the failures the portal can see from the
// registry so callers can decide presentation without parsing messages.
// Nothing in this package panics; errors are plain values.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindNetwork: the registry could not be reached. Safe to retry.
	KindNetwork
	// KindConflict: the action was redundant (e.g. duplicate membership).
	KindConflict
	// KindNotFound: the target no longer exists remotely.
	KindNotFound
	// KindValidation: the payload was rejected.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Network(msg string, err error) *Error { return Wrap(KindNetwork, msg, err) }
func Conflict(msg string) *Error           { return New(KindConflict, msg) }
func NotFound(msg string) *Error           { return New(KindNotFound, msg) }
func Validation(msg string) *Error         { return New(KindValidation, msg) }

// KindOf reports the classification of err, KindUnknown if it carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsNetwork(err error) bool    { return KindOf(err) == KindNetwork }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// FromStatus maps a non-2xx registry status to an error kind. Bodies are
// not interpreted beyond being quoted in the message.
func FromStatus(status int, body string) *Error {
	msg := fmt.Sprintf("registry returned status %d: %s", status, body)
	switch {
	case status == http.StatusConflict:
		return New(KindConflict, msg)
	case status == http.StatusNotFound:
		return New(KindNotFound, msg)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return New(KindValidation, msg)
	default:
		return New(KindUnknown, msg)
	}
}

// HTTPStatus is the inverse mapping, used by portal handlers when
// surfacing a classified error to their own clients.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNetwork:
		return http.StatusBadGateway
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
