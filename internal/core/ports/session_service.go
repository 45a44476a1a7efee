package ports

import (
	"context"

	"github.com/h2market/h2trade/internal/core/domain"
)

// SessionService owns the client's identity and its persistence.
type SessionService interface {
	Login(ctx context.Context, identifier, secret string) (domain.Session, error)
	Register(ctx context.Context, input RegisterInput) (domain.Session, error)
	Logout(ctx context.Context) error
	Restore(ctx context.Context) (domain.Session, error)
	RefreshProfile(ctx context.Context, force bool) (*domain.UserRecord, error)
	Current() domain.Session
	// Credential is the provider handed to the request dispatcher.
	Credential() string
}
