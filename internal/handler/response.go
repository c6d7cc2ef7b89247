package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/localpros/api/internal/middleware"
	"github.com/octobees/localpros/api/internal/repository"
)

// APIResponse describes the standard envelope returned by the API.
type APIResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
	Meta    any       `json:"meta,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError is the machine-readable part of an error response.
type APIError struct {
	Code        string   `json:"code"`
	Service     string   `json:"service,omitempty"`
	Title       string   `json:"title"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Success sends a successful response using the shared envelope format.
func Success(c echo.Context, status int, message string, data any) error {
	return SuccessWithMeta(c, status, message, data, nil)
}

// SuccessWithMeta is Success with a meta block (pagination, search context...).
func SuccessWithMeta(c echo.Context, status int, message string, data, meta any) error {
	if status == 0 {
		status = http.StatusOK
	}
	return c.JSON(status, APIResponse{
		Status:  "success",
		Message: message,
		Data:    data,
		Meta:    meta,
	})
}

// Error sends an error response whose code is derived from the status.
func Error(c echo.Context, status int, message string) error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Fail(c, status, APIError{
		Code:    statusCode(status),
		Title:   http.StatusText(status),
		Message: message,
	})
}

// Fail sends a coded error response.
func Fail(c echo.Context, status int, apiErr APIError) error {
	if apiErr.Title == "" {
		apiErr.Title = http.StatusText(status)
	}
	return c.JSON(status, APIResponse{
		Status:  "error",
		Message: apiErr.Message,
		Error:   &apiErr,
	})
}

func statusCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_parameter"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "validation_error"
	default:
		return "internal_error"
	}
}

// lookupError maps a read failure to 404 or a logged 500.
func lookupError(c echo.Context, err error, notFound, failure string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return Error(c, http.StatusNotFound, notFound)
	}
	middleware.Logger(c).Error(failure, zap.Error(err))
	return Error(c, http.StatusInternalServerError, failure)
}

func parseIntDefault(input string, fallback int) int {
	input = strings.TrimSpace(input)
	if input == "" {
		return fallback
	}
	if value, err := strconv.Atoi(input); err == nil {
		return value
	}
	return fallback
}

// parseFloatParam returns nil for a blank value and an error for a non-numeric one.
func parseFloatParam(c echo.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseBoolParam(c echo.Context, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.QueryParam(name)))
	return err == nil && v
}

func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}
