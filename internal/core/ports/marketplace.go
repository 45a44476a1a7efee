package ports

import (
	"context"

	"github.com/h2market/h2trade/internal/core/domain"
)

// RegisterInput carries the profile fields sent on account creation.
type RegisterInput struct {
	Username         string `json:"username"                    validate:"required,min=3"`
	Email            string `json:"email"                       validate:"required,email"`
	Password         string `json:"password"                    validate:"required,min=6"`
	OrganizationName string `json:"organization_name,omitempty"`
}

// AuthResult is the marketplace's answer to login and register.
type AuthResult struct {
	AccessToken string             `json:"access_token"`
	User        *domain.UserRecord `json:"user"`
}

// AuthAPI exposes the anonymous authentication endpoints.
type AuthAPI interface {
	Login(ctx context.Context, identifier, password string) (*AuthResult, error)
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
}

// ProfileAPI returns the authenticated user's record. Callers cache it.
type ProfileAPI interface {
	Get(ctx context.Context) (*domain.UserRecord, error)
}

// ListingAPI reads marketplace listings and publishes the user's own.
type ListingAPI interface {
	GetAll(ctx context.Context) ([]domain.Listing, error)
	GetByID(ctx context.Context, id int64) (*domain.Listing, error)
	Create(ctx context.Context, draft domain.ListingDraft) (*domain.Listing, error)
}

// OrderAPI reads and submits the current user's orders.
type OrderAPI interface {
	GetMine(ctx context.Context) ([]domain.Order, error)
	Create(ctx context.Context, bid domain.BidRequest) (*domain.OrderResult, error)
}
