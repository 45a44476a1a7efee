package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/h2market/h2trade/internal/core/domain"
	"github.com/h2market/h2trade/internal/core/ports"
)

var (
	ErrListingFieldsMissing = errors.New("listing required fields missing")
	ErrListingNumberInvalid = errors.New("listing number invalid")
	ErrListingDateInvalid   = errors.New("listing date invalid")
)

// ListingForm holds the raw values of a new listing as the seller typed them.
// Quantity, Price, Region and Method are required.
type ListingForm struct {
	Quantity      string
	Price         string
	Region        string
	Method        string
	Purity        string
	GHGIntensity  string
	Feedstock     string
	EnergySource  string
	DeliveryTerms string
	// AvailableFrom is a calendar date, YYYY-MM-DD.
	AvailableFrom string
}

// ListingPublisher checks a listing form and publishes it for the current user.
type ListingPublisher struct {
	listings ports.ListingAPI
	identity IdentityProvider
	log      zerolog.Logger
}

func NewListingPublisher(listings ports.ListingAPI, identity IdentityProvider, log zerolog.Logger) *ListingPublisher {
	return &ListingPublisher{listings: listings, identity: identity, log: log}
}

// Publish validates form and, when it passes, creates the listing. Nothing is
// sent when validation fails.
func (p *ListingPublisher) Publish(ctx context.Context, form ListingForm) (*domain.Listing, error) {
	draft, err := parseListingForm(form)
	if err != nil {
		return nil, err
	}
	if p.identity == nil || p.identity() == nil {
		return nil, domain.NewError(domain.KindUnauthorized, "Please log in to create a listing.", domain.ErrNotAuthenticated)
	}

	l, err := p.listings.Create(ctx, draft)
	if err != nil {
		p.log.Warn().Err(err).Msg("listing creation failed")
		return nil, err
	}
	p.log.Info().Int64("listing_id", l.ID).Str("quantity_kg", l.QuantityKg.String()).Msg("listing published")
	return l, nil
}

func parseListingForm(form ListingForm) (domain.ListingDraft, error) {
	trim := strings.TrimSpace
	if trim(form.Quantity) == "" || trim(form.Price) == "" || trim(form.Region) == "" || trim(form.Method) == "" {
		return domain.ListingDraft{}, rejected("Please fill in all required fields: Quantity, Price, Location, and Production Method.", ErrListingFieldsMissing)
	}
	qty, qerr := decimal.NewFromString(trim(form.Quantity))
	price, perr := decimal.NewFromString(trim(form.Price))
	if qerr != nil || perr != nil || !qty.IsPositive() || !price.IsPositive() {
		return domain.ListingDraft{}, rejected("Quantity and Price must be positive numbers.", ErrListingNumberInvalid)
	}

	draft := domain.ListingDraft{
		QuantityKg:       qty,
		PricePerKg:       price,
		LocationRegion:   trim(form.Region),
		ProductionMethod: trim(form.Method),
		Feedstock:        trim(form.Feedstock),
		EnergySource:     trim(form.EnergySource),
		DeliveryTerms:    trim(form.DeliveryTerms),
	}

	if raw := trim(form.GHGIntensity); raw != "" {
		ghg, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.ListingDraft{}, rejected("GHG Intensity must be a valid number if provided.", ErrListingNumberInvalid)
		}
		draft.GHGIntensity = decimal.NewNullDecimal(ghg)
	}
	if raw := trim(form.Purity); raw != "" {
		purity, err := decimal.NewFromString(raw)
		if err != nil || purity.IsNegative() || purity.GreaterThan(decimal.NewFromInt(100)) {
			return domain.ListingDraft{}, rejected("Purity must be a valid number between 0 and 100 if provided.", ErrListingNumberInvalid)
		}
		draft.PurityPercentage = decimal.NewNullDecimal(purity)
	}
	if raw := trim(form.AvailableFrom); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return domain.ListingDraft{}, rejected("Available from must be a date (YYYY-MM-DD).", ErrListingDateInvalid)
		}
		draft.AvailableFrom = &from
	}
	return draft, nil
}
