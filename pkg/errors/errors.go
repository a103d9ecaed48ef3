package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the error type crossing service boundaries. Internal causes are
// kept server-side; Message is safe to return to callers.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func Invalid(msg string) error {
	return New(CodeInvalid, msg)
}

func BadRequest(msg string) error {
	return New(CodeBadRequest, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func Conflict(msg string) error {
	return New(CodeConflict, msg)
}

func Unauthorized(msg string) error {
	return New(CodeUnauthorized, msg)
}

func Internal(cause error) error {
	return &AppError{Code: CodeInternal, Message: "internal error", Cause: cause}
}

// CodeOf extracts the code from any error in the chain. Unwrapped errors are
// treated as internal.
func CodeOf(err error) Code {
	var app *AppError
	if stderrors.As(err, &app) {
		return app.Code
	}
	return CodeInternal
}

func MessageOf(err error) string {
	var app *AppError
	if stderrors.As(err, &app) {
		return app.Message
	}
	return "internal error"
}

func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
