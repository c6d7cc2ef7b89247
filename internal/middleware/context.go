package middleware

import (
	"github.com/labstack/echo/v4"
)

// Context keys used to store request metadata.
const (
	ContextKeyOperatorID    = "operator_id"
	ContextKeyOperatorEmail = "operator_email"
	ContextKeyOperatorRole  = "operator_role"
	ContextKeyRequestID     = "request_id"
)

type errorBody struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Error   errorBody `json:"error"`
}

// deny writes the same error envelope as the handlers so rejected requests look alike.
func deny(c echo.Context, status int, code, title, message string) error {
	return c.JSON(status, errorEnvelope{
		Status:  "error",
		Message: message,
		Error:   errorBody{Code: code, Title: title, Message: message},
	})
}
