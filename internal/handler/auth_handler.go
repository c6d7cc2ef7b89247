package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/localpros/api/internal/dto"
	"github.com/octobees/localpros/api/internal/middleware"
	"github.com/octobees/localpros/api/internal/service"
)

// Authenticator logs backoffice operators in.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (dto.LoginResponse, error)
}

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	authService Authenticator
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(authService Authenticator) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login handles POST /api/backoffice/v1/auth/login requests.
func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return Error(c, http.StatusBadRequest, "email and password are required")
	}

	token, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			middleware.Logger(c).Info("login rejected", zap.String("email", req.Email))
			return Error(c, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, service.ErrMissingCredentials):
			return Error(c, http.StatusBadRequest, "email and password are required")
		default:
			middleware.Logger(c).Error("login", zap.Error(err))
			return Error(c, http.StatusInternalServerError, "unable to authenticate")
		}
	}

	return Success(c, http.StatusOK, "login successful", token)
}
