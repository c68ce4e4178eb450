// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/speedwall-planner/backend/internal/wallerr"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	// Value is the offending input, when known.
	Value   string `json:"value,omitempty"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
		Value:   id,
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// FromError maps engine errors onto API errors by kind.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var we *wallerr.Error
	value := ""
	if errors.As(err, &we) {
		value = we.Value
	}
	switch wallerr.KindOf(err) {
	case wallerr.KindParse:
		return &APIError{Status: http.StatusBadRequest, Code: "PARSE_ERROR", Message: err.Error(), Value: value}
	case wallerr.KindValidation:
		return &APIError{Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: err.Error(), Value: value}
	case wallerr.KindLookup:
		return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: err.Error(), Value: value}
	}
	return NewInternalError("An unexpected error occurred", err)
}

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	} else {
		apiErr = FromError(err)
	}

	if apiErr.Status >= http.StatusInternalServerError {
		log.Errorf("api: %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}
	if err := c.JSON(apiErr.Status, apiErr); err != nil {
		log.Errorf("api: writing error response: %v", err)
	}
}
