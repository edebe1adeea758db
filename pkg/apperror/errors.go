package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies an error independently of its human readable message.
type ErrorCode string

const (
	CodeBadRequest         ErrorCode = "BAD_REQUEST"
	CodeValidation         ErrorCode = "VALIDATION_FAILED"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeConflict           ErrorCode = "CONFLICT"
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
)

const MsgInternal = "Error interno del servidor"

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Status  int       `json:"status"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on code so sentinel AppErrors survive Wrap.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code && e.Message == other.Message
}

// Wrap returns a copy of e carrying cause.
func (e *AppError) Wrap(cause error) *AppError {
	return &AppError{Code: e.Code, Message: e.Message, Status: e.Status, Cause: cause}
}

func New(code ErrorCode, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

func NewBadRequest(message string) *AppError {
	return New(CodeBadRequest, http.StatusBadRequest, message)
}

func NewValidation(message string) *AppError {
	return New(CodeValidation, http.StatusUnprocessableEntity, message)
}

func NewUnauthorized(message string) *AppError {
	return New(CodeUnauthorized, http.StatusUnauthorized, message)
}

func NewForbidden(message string) *AppError {
	return New(CodeForbidden, http.StatusForbidden, message)
}

func NewNotFound(message string) *AppError {
	return New(CodeNotFound, http.StatusNotFound, message)
}

func NewConflict(message string) *AppError {
	return New(CodeConflict, http.StatusConflict, message)
}

func NewInternal(cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: MsgInternal, Status: http.StatusInternalServerError, Cause: cause}
}

// MapError converts any error into an AppError. Unknown errors become internal errors.
func MapError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}
