package models

import (
	"errors"
	"fmt"
	"log/slog"

	"inkwell/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned to API clients.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeDuplicateComment = "DUPLICATE_COMMENT"
	CodeInternal         = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so callers can write
// errors.Is(err, models.ErrNotFound).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// Sentinels for errors.Is checks against a class of AppError.
var (
	ErrValidation       = &AppError{Code: CodeValidation}
	ErrUnauthorized     = &AppError{Code: CodeUnauthorized}
	ErrForbidden        = &AppError{Code: CodeForbidden}
	ErrNotFound         = &AppError{Code: CodeNotFound}
	ErrDuplicateComment = &AppError{Code: CodeDuplicateComment}
	ErrStore            = &AppError{Code: CodeInternal}
)

func NewNotFoundError(resource string, id any) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewDuplicateCommentError() *AppError {
	return &AppError{
		Code:    CodeDuplicateComment,
		Message: "You have already commented on this post",
	}
}

// NewStoreError wraps a failure of the backing store. The cause is kept for
// server-side logs and never sent to the client.
func NewStoreError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// NewInternalError is kept for call sites that are not store related.
func NewInternalError(err error) *AppError {
	return NewStoreError(err)
}

// StatusFor maps an error to the HTTP status used to report it.
func StatusFor(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return fe.Code
		}
		return fiber.StatusInternalServerError
	}

	switch appErr.Code {
	case CodeValidation:
		return fiber.StatusBadRequest
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeDuplicateComment:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response. Server-side
// failures are logged with their cause; the client only sees the generic
// message.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	if status >= fiber.StatusInternalServerError && err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "store error",
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}

	var appErr *AppError
	var fe *fiber.Error
	switch {
	case errors.As(err, &appErr):
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
	case errors.As(err, &fe):
		response = ErrorResponse{Error: fe.Message}
	default:
		response = ErrorResponse{
			Error: "Internal server error",
			Code:  CodeInternal,
		}
	}

	return c.Status(status).JSON(response)
}

// Respond writes err using the status derived from its class.
func Respond(c *fiber.Ctx, err error) error {
	return RespondWithError(c, StatusFor(err), err)
}
