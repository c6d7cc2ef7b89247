package service

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/crypto/bcrypt"

	"github.com/octobees/localpros/api/internal/auth"
	"github.com/octobees/localpros/api/internal/dto"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = eris.New("invalid credentials")
	// ErrMissingCredentials is returned when email or password is blank.
	ErrMissingCredentials = eris.New("email and password must not be empty")
)

// AuthService authenticates the configured backoffice operator.
type AuthService struct {
	email        string
	passwordHash []byte
	jwt          *auth.JWTManager
}

// NewAuthService builds the service from the operator email and bcrypt hash.
func NewAuthService(adminEmail, adminPasswordHash string, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{
		email:        strings.ToLower(strings.TrimSpace(adminEmail)),
		passwordHash: []byte(adminPasswordHash),
		jwt:          jwtManager,
	}
}

// Login validates credentials and issues an admin token.
func (s *AuthService) Login(_ context.Context, email, password string) (dto.LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return dto.LoginResponse{}, ErrMissingCredentials
	}
	if s.email == "" || len(s.passwordHash) == 0 || email != s.email {
		return dto.LoginResponse{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(email, email, auth.RoleAdmin)
	if err != nil {
		return dto.LoginResponse{}, eris.Wrap(err, "service: issue token")
	}
	return dto.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwt.TTL().Seconds()),
	}, nil
}
