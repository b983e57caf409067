// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies a domain error. It decides the status code at the
// request boundary and is never retried automatically.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindInvalidOperation Kind = "invalid_operation"
	KindAlreadyLiked     Kind = "already_liked"
	KindAlreadyDisliked  Kind = "already_disliked"
	KindUnauthorized     Kind = "unauthorized"
	KindInvalidArgument  Kind = "invalid_argument"
	KindUnauthenticated  Kind = "unauthenticated"
	KindServerError      Kind = "server_error"
)

// Error is the single error type handed out by services.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindServerError {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &Error{Kind: k}) match on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

func newErr(kind Kind, msg string) error { return &Error{Kind: kind, Msg: msg} }

func NotFound(msg string) error         { return newErr(KindNotFound, msg) }
func InvalidOperation(msg string) error { return newErr(KindInvalidOperation, msg) }
func AlreadyLiked(msg string) error     { return newErr(KindAlreadyLiked, msg) }
func AlreadyDisliked(msg string) error  { return newErr(KindAlreadyDisliked, msg) }
func Unauthorized(msg string) error     { return newErr(KindUnauthorized, msg) }
func InvalidArgument(msg string) error  { return newErr(KindInvalidArgument, msg) }
func Unauthenticated(msg string) error  { return newErr(KindUnauthenticated, msg) }

// ServerError wraps an unexpected infrastructure failure.
func ServerError(msg string, err error) error {
	return &Error{Kind: KindServerError, Msg: msg, Err: err}
}

// Map converts repo/infra errors into domain errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}

	var de *Error
	switch {
	case errors.As(err, &de):
		return err

	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound("record not found")

	case errors.Is(err, context.DeadlineExceeded):
		return ServerError("request timed out", err)

	case errors.Is(err, context.Canceled):
		return ServerError("request was canceled", err)

	default:
		return ServerError("unexpected failure", err)
	}
}

// KindOf reports the kind of err; anything that is not an *Error is a server error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindServerError
}

// HTTPStatus picks the response status for err.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidOperation, KindAlreadyLiked, KindAlreadyDisliked, KindInvalidArgument:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to show a client. Server errors are opaque.
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Kind != KindServerError {
		return de.Msg
	}
	return "Server error."
}
