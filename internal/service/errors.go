package service

import (
	"errors"
	"fmt"
)

// Generic failure messages used when the server gives no better one.
const (
	MsgAuthFailed   = "Authentication failed"
	MsgLoginFailed  = "Unable to login"
	MsgSignupFailed = "Unable to sign up"
	MsgListFailed   = "Unable to load tasks"
	MsgCreateFailed = "Unable to create task"
	MsgUpdateFailed = "Unable to update task"
	MsgDeleteFailed = "Unable to delete task"
)

// AuthError reports a credential rejection or a missing/expired session.
type AuthError struct {
	Op         string // remote operation, e.g. "login" or "list tasks"
	Message    string // human-readable, safe to show the user
	StatusCode int    // HTTP status, 0 for transport failures
	Err        error  // underlying cause, if any
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// RequestError reports a network failure or a non-success response for a
// task operation.
type RequestError struct {
	Op         string
	Message    string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) Unwrap() error { return e.Err }

// Detail returns the message with the operation and underlying cause, for
// debug logging.
func Detail(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return detail(ae.Op, ae.Message, ae.StatusCode, ae.Err)
	}
	var re *RequestError
	if errors.As(err, &re) {
		return detail(re.Op, re.Message, re.StatusCode, re.Err)
	}
	return err.Error()
}

func detail(op, msg string, code int, cause error) string {
	s := fmt.Sprintf("%s: %s", op, msg)
	if code != 0 {
		s += fmt.Sprintf(" (status %d)", code)
	}
	if cause != nil {
		s += ": " + cause.Error()
	}
	return s
}

// Message returns the human-readable message carried by err.
// Returns "" for a nil error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Message
	}
	var re *RequestError
	if errors.As(err, &re) {
		return re.Message
	}
	return err.Error()
}

// IsAuth reports whether err is an *AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// ErrSuperseded is returned when a request settles after a logout; its
// result is not applied to local state.
var ErrSuperseded = errors.New("request superseded by logout")
