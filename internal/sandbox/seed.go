package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/h2market/h2trade/internal/core/domain"
	"github.com/h2market/h2trade/internal/core/ports"
)

// Demo accounts created by Seed. Passwords are only meant for local use.
const (
	DemoSeller   = "greenvolt"
	DemoBuyer    = "steelworks"
	DemoPassword = "sandbox-pass"
)

// Seed registers two demo accounts and publishes a few listings for the
// seller.
func Seed(ctx context.Context, m *Market) error {
	accounts := []ports.RegisterInput{
		{Username: DemoSeller, Email: "ops@greenvolt.example", Password: DemoPassword, OrganizationName: "GreenVolt Hydrogen"},
		{Username: DemoBuyer, Email: "procurement@steelworks.example", Password: DemoPassword, OrganizationName: "Northern Steelworks"},
	}
	for _, in := range accounts {
		if _, err := m.Register(ctx, in); err != nil {
			return fmt.Errorf("seed account %s: %w", in.Username, err)
		}
	}

	from := domain.Timestamp{Time: time.Now().UTC().Truncate(24 * time.Hour)}
	listings := []domain.Listing{
		{
			QuantityKg:       decimal.RequireFromString("1000.00"),
			PricePerKg:       decimal.RequireFromString("4.50"),
			LocationRegion:   "North Sea",
			LocationPlantID:  "NS-ELY-01",
			ProductionMethod: "PEM electrolysis",
			PurityPercentage: decimal.NewNullDecimal(decimal.RequireFromString("99.970")),
			GHGIntensity:     decimal.NewNullDecimal(decimal.RequireFromString("0.80")),
			Feedstock:        "water",
			EnergySource:     "offshore wind",
			DeliveryTerms:    "FCA plant gate",
			AvailableFrom:    from,
		},
		{
			QuantityKg:       decimal.RequireFromString("250.00"),
			PricePerKg:       decimal.RequireFromString("3.10"),
			LocationRegion:   "Iberia",
			ProductionMethod: "alkaline electrolysis",
			PurityPercentage: decimal.NewNullDecimal(decimal.RequireFromString("99.500")),
			EnergySource:     "solar",
			DeliveryTerms:    "tube trailer, buyer collects",
			AvailableFrom:    from,
		},
	}
	for _, l := range listings {
		if _, err := m.AddListing(DemoSeller, l); err != nil {
			return fmt.Errorf("seed listing: %w", err)
		}
	}
	return nil
}
