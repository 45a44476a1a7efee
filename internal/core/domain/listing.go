package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ListingStatus represents the lifecycle state of a listing.
type ListingStatus string

const (
	ListingActive   ListingStatus = "active"
	ListingInactive ListingStatus = "inactive"
	ListingSold     ListingStatus = "sold"
	ListingExpired  ListingStatus = "expired"
	ListingClosed   ListingStatus = "closed"
)

// Listing is a fixed-quantity lot offered by a seller. Read-only on the client.
type Listing struct {
	ID               int64           `json:"id"`
	SellerID         int64           `json:"seller_id"`
	SellerUsername   string          `json:"seller_username,omitempty"`
	QuantityKg       decimal.Decimal `json:"quantity_kg"`
	PricePerKg       decimal.Decimal `json:"price_per_kg"`
	Status           ListingStatus   `json:"status"`
	LocationRegion   string          `json:"location_region"`
	LocationPlantID  string          `json:"location_plant_id,omitempty"`
	ProductionMethod string          `json:"production_method"`

	PurityPercentage decimal.NullDecimal `json:"purity_percentage"`
	GHGIntensity     decimal.NullDecimal `json:"ghg_intensity_kgco2e_per_kgh2"`
	Feedstock        string              `json:"feedstock,omitempty"`
	EnergySource     string              `json:"energy_source,omitempty"`
	DeliveryTerms    string              `json:"delivery_terms,omitempty"`
	AvailableFrom    Timestamp           `json:"available_from_date"`
	ListedAt         Timestamp           `json:"listing_timestamp"`
	UpdatedAt        Timestamp           `json:"updated_timestamp"`
}

// Biddable reports whether bids are currently accepted on the listing.
func (l Listing) Biddable() bool {
	return l.Status == ListingActive && l.QuantityKg.IsPositive()
}

// ClosedReason explains why bidding is closed, or returns "" when it is open.
func (l Listing) ClosedReason() string {
	switch {
	case l.Status != ListingActive:
		return fmt.Sprintf("This product is no longer active (%s). Bidding is closed.", l.Status)
	case !l.QuantityKg.IsPositive():
		return "This product is currently out of stock. Bidding is closed."
	default:
		return ""
	}
}

// ListingDraft is a seller's new listing before the marketplace assigns it
// an id and a status.
type ListingDraft struct {
	QuantityKg       decimal.Decimal
	PricePerKg       decimal.Decimal
	LocationRegion   string
	ProductionMethod string
	PurityPercentage decimal.NullDecimal
	GHGIntensity     decimal.NullDecimal
	Feedstock        string
	EnergySource     string
	DeliveryTerms    string
	AvailableFrom    *time.Time
}
