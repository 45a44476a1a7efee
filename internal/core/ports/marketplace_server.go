package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/h2market/h2trade/internal/core/domain"
)

// Server-side contracts of the sandbox marketplace. They mirror the REST
// surface the client talks to.

// LoginInput is the body of POST /auth/login.
type LoginInput struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password"   validate:"required"`
}

// PlaceOrderInput is the body of POST /orders. Pointers distinguish a
// missing field from a zero value.
type PlaceOrderInput struct {
	OrderType  string           `json:"order_type"`
	ListingID  *int64           `json:"hydrogen_product_id"`
	QuantityKg *decimal.Decimal `json:"quantity_kg"`
	PricePerKg *decimal.Decimal `json:"price_per_kg"`
}

// CreateListingInput is the body of POST /products. Decimals accept JSON
// numbers and numeric strings.
type CreateListingInput struct {
	QuantityKg       *decimal.Decimal  `json:"quantity_kg"`
	PricePerKg       *decimal.Decimal  `json:"price_per_kg"`
	LocationRegion   *string           `json:"location_region"`
	ProductionMethod *string           `json:"production_method"`
	PurityPercentage *decimal.Decimal  `json:"purity_percentage"`
	GHGIntensity     *decimal.Decimal  `json:"ghg_intensity_kgco2e_per_kgh2"`
	Feedstock        string            `json:"feedstock"`
	EnergySource     string            `json:"energy_source"`
	DeliveryTerms    string            `json:"delivery_terms"`
	AvailableFrom    *domain.Timestamp `json:"available_from_date"`
	Status           string            `json:"status"`
}

// AccountService owns user accounts and issues access tokens.
type AccountService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	Profile(ctx context.Context, username string) (*domain.UserRecord, error)
}

// CatalogService reads listings and publishes new ones for sellers.
type CatalogService interface {
	ActiveListings(ctx context.Context) ([]domain.Listing, error)
	Listing(ctx context.Context, id int64) (*domain.Listing, error)
	CreateListing(ctx context.Context, username string, input CreateListingInput) (*domain.Listing, error)
}

// TradingService accepts orders and reports a user's order book.
type TradingService interface {
	PlaceOrder(ctx context.Context, username string, input PlaceOrderInput) (*domain.OrderResult, error)
	OrdersOf(ctx context.Context, username string) ([]domain.Order, error)
}
