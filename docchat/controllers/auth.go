package controllers

import (
	"context"
	"errors"
	"strings"

	httputils "docchat/docchat/utils/http"
	"docchat/docchat/utils/logging"
	"docchat/docchat/utils/types"

	"go.uber.org/zap"
)

var (
	ErrMissingFields    = errors.New(MsgFillAllFields)
	ErrPasswordMismatch = errors.New(MsgPasswordsDontMatch)
)

// AuthError carries the text to show the user along with the cause.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return e.Err }

type AuthController struct {
	backend AuthBackend
	state   SessionState
}

func NewAuthController(backend AuthBackend, state SessionState) *AuthController {
	return &AuthController{backend: backend, state: state}
}

// Login exchanges credentials for a token and stores it.
func (c *AuthController) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrMissingFields
	}
	token, err := c.backend.Login(ctx, types.LoginRequest{Email: email, Password: password})
	if err != nil {
		logging.AppLogger.Warn("login failed", zap.String("email", email), zap.Error(err))
		return authFailure("Login failed", err)
	}
	return c.state.SetToken(ctx, token)
}

// Register creates an account and stores the returned token.
func (c *AuthController) Register(ctx context.Context, name, email, password, confirm string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" || confirm == "" {
		return ErrMissingFields
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	token, err := c.backend.Register(ctx, types.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		logging.AppLogger.Warn("registration failed", zap.String("email", email), zap.Error(err))
		return authFailure("Registration failed", err)
	}
	return c.state.SetToken(ctx, token)
}

func authFailure(fallback string, err error) error {
	var se *httputils.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return &AuthError{Message: se.Message, Err: err}
	}
	return &AuthError{Message: fallback, Err: err}
}
