// Package apierr implements the typed error taxonomy the HTTP shim maps
// to status codes. UpstreamError and ScriptError exist so tests and
// internal callers can classify a failure without string-matching, but
// neither is ever returned as a Go error from the Proxy Executor or
// Collection Runner — both surface as data on ProxyResponse/RunIteration.
package apierr

import "fmt"

// Class identifies which bucket of spec.md §7's taxonomy an error
// belongs to.
type Class string

const (
	ClassNotFound      Class = "NOT_FOUND"
	ClassValidation    Class = "VALIDATION"
	ClassAuthorization Class = "AUTHORIZATION"
	ClassUpstream      Class = "UPSTREAM_ERROR"
	ClassScript        Class = "SCRIPT_ERROR"
	ClassInternal      Class = "INTERNAL"
)

// Error is a classified error carrying the inner cause for logging, and
// a message safe to return to an API caller.
type Error struct {
	Class   Class
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(class Class, message string, cause error) *Error {
	return &Error{Class: class, Message: message, Err: cause}
}

func NotFound(message string, cause error) *Error {
	return newError(ClassNotFound, message, cause)
}

func Validation(message string, cause error) *Error {
	return newError(ClassValidation, message, cause)
}

func Authorization(message string, cause error) *Error {
	return newError(ClassAuthorization, message, cause)
}

func Upstream(message string, cause error) *Error {
	return newError(ClassUpstream, message, cause)
}

func Script(message string, cause error) *Error {
	return newError(ClassScript, message, cause)
}

func Internal(message string, cause error) *Error {
	return newError(ClassInternal, message, cause)
}

// ClassOf extracts the Class from err if it is (or wraps) an *Error,
// defaulting to Internal for anything else — matching spec.md §7's
// "everything else" catch-all.
func ClassOf(err error) Class {
	var ae *Error
	if asError(err, &ae) {
		return ae.Class
	}
	return ClassInternal
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
