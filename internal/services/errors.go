package services

import "errors"

// ErrorCode classifies a user-facing failure. Handlers map codes to HTTP
// statuses; everything else surfaces as a generic internal failure.
type ErrorCode string

const (
	CodeValidation   ErrorCode = "validation"
	CodeConflict     ErrorCode = "conflict"
	CodeUnauthorized ErrorCode = "unauthorized"
	CodeForbidden    ErrorCode = "forbidden"
	CodeNotFound     ErrorCode = "not_found"
)

// Error is a classified failure with a user-safe message. Internal errors
// (persistence, signing) are never wrapped in an Error.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// AsError unwraps err into a classified service error, if it is one.
func AsError(err error) (*Error, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

func validationError(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

func conflictError(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

func unauthorizedError(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

func forbiddenError(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

func notFoundError(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}
