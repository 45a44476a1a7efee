// Package marketplace is the typed facade over the marketplace REST API.
// Every failure is returned exactly as the dispatcher normalized it.
package marketplace

import (
	"context"

	"github.com/h2market/h2trade/internal/infrastructure/dispatcher"
)

// Doer is the part of the dispatcher the facade depends on.
type Doer interface {
	Do(ctx context.Context, method, path string, body, out any, opts ...dispatcher.CallOption) error
}

// Client groups the four resource facades.
type Client struct {
	Auth     *AuthService
	Profile  *ProfileService
	Listings *ListingService
	Orders   *OrderService
}

// NewClient wires all facades onto a single dispatcher.
func NewClient(d Doer) *Client {
	return &Client{
		Auth:     &AuthService{d: d},
		Profile:  &ProfileService{d: d},
		Listings: &ListingService{d: d},
		Orders:   &OrderService{d: d},
	}
}
