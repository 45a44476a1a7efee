package marketplace

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/h2market/h2trade/internal/core/domain"
	"github.com/h2market/h2trade/internal/infrastructure/dispatcher"
)

type ListingService struct {
	d Doer
}

type createListingRequest struct {
	QuantityKg       number  `json:"quantity_kg"`
	PricePerKg       number  `json:"price_per_kg"`
	LocationRegion   string  `json:"location_region"`
	ProductionMethod string  `json:"production_method"`
	PurityPercentage *number `json:"purity_percentage"`
	GHGIntensity     *number `json:"ghg_intensity_kgco2e_per_kgh2"`
	Feedstock        string  `json:"feedstock,omitempty"`
	EnergySource     string  `json:"energy_source,omitempty"`
	DeliveryTerms    string  `json:"delivery_terms,omitempty"`
	AvailableFrom    *string `json:"available_from_date"`
}

func optionalNumber(d decimal.NullDecimal) *number {
	if !d.Valid {
		return nil
	}
	n := number(d.Decimal)
	return &n
}

func (s *ListingService) GetAll(ctx context.Context) ([]domain.Listing, error) {
	var out []domain.Listing
	if err := s.d.Do(ctx, http.MethodGet, "/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ListingService) GetByID(ctx context.Context, id int64) (*domain.Listing, error) {
	var out domain.Listing
	path := fmt.Sprintf("/products/%d", id)
	if err := s.d.Do(ctx, http.MethodGet, path, nil, &out, dispatcher.Route("/products/{id}")); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create publishes draft as a listing owned by the current user.
func (s *ListingService) Create(ctx context.Context, draft domain.ListingDraft) (*domain.Listing, error) {
	req := createListingRequest{
		QuantityKg:       number(draft.QuantityKg),
		PricePerKg:       number(draft.PricePerKg),
		LocationRegion:   draft.LocationRegion,
		ProductionMethod: draft.ProductionMethod,
		PurityPercentage: optionalNumber(draft.PurityPercentage),
		GHGIntensity:     optionalNumber(draft.GHGIntensity),
		Feedstock:        draft.Feedstock,
		EnergySource:     draft.EnergySource,
		DeliveryTerms:    draft.DeliveryTerms,
	}
	if draft.AvailableFrom != nil {
		from := draft.AvailableFrom.Format("2006-01-02")
		req.AvailableFrom = &from
	}
	var out domain.Listing
	if err := s.d.Do(ctx, http.MethodPost, "/products", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
