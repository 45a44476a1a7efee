package marketplace

import (
	"context"
	"net/http"

	"github.com/h2market/h2trade/internal/core/ports"
	"github.com/h2market/h2trade/internal/infrastructure/dispatcher"
)

type AuthService struct {
	d Doer
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Login exchanges a username or email and password for an access token.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*ports.AuthResult, error) {
	var out ports.AuthResult
	err := s.d.Do(ctx, http.MethodPost, "/auth/login",
		loginRequest{Identifier: identifier, Password: password}, &out, dispatcher.Anonymous())
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates the account and returns a token for it.
func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error) {
	var out ports.AuthResult
	if err := s.d.Do(ctx, http.MethodPost, "/auth/register", input, &out, dispatcher.Anonymous()); err != nil {
		return nil, err
	}
	return &out, nil
}
