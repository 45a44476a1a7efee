package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/h2market/h2trade/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubListingAPI struct {
	drafts []domain.ListingDraft
	err    error
}

func (s *stubListingAPI) GetAll(context.Context) ([]domain.Listing, error) { return nil, nil }

func (s *stubListingAPI) GetByID(context.Context, int64) (*domain.Listing, error) { return nil, nil }

func (s *stubListingAPI) Create(_ context.Context, draft domain.ListingDraft) (*domain.Listing, error) {
	s.drafts = append(s.drafts, draft)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Listing{ID: 3, QuantityKg: draft.QuantityKg, PricePerKg: draft.PricePerKg, Status: domain.ListingActive}, nil
}

func validListingForm() ListingForm {
	return ListingForm{Quantity: "400", Price: "5.25", Region: " Rotterdam ", Method: "SOEC"}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestListingPublisher_PublishesDraft(t *testing.T) {
	api := &stubListingAPI{}
	p := NewListingPublisher(api, currentUser(1), zerolog.Nop())

	form := validListingForm()
	form.Purity = "99.9"
	form.AvailableFrom = "2025-03-01"
	l, err := p.Publish(context.Background(), form)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if l.ID != 3 || len(api.drafts) != 1 {
		t.Fatalf("unexpected result: %+v, %d drafts", l, len(api.drafts))
	}
	d := api.drafts[0]
	if d.LocationRegion != "Rotterdam" || !d.PricePerKg.Equal(decimal.RequireFromString("5.25")) {
		t.Fatalf("unexpected draft: %+v", d)
	}
	if !d.PurityPercentage.Valid || d.GHGIntensity.Valid {
		t.Fatalf("optional decimals not parsed: %+v", d)
	}
	if d.AvailableFrom == nil || d.AvailableFrom.Format("2006-01-02") != "2025-03-01" {
		t.Fatalf("unexpected date: %v", d.AvailableFrom)
	}
}

func TestListingPublisher_FieldChecks(t *testing.T) {
	cases := []struct {
		name   string
		edit   func(*ListingForm)
		reason error
	}{
		{"missing region", func(f *ListingForm) { f.Region = "" }, ErrListingFieldsMissing},
		{"missing price", func(f *ListingForm) { f.Price = " " }, ErrListingFieldsMissing},
		{"non numeric quantity", func(f *ListingForm) { f.Quantity = "lots" }, ErrListingNumberInvalid},
		{"zero price", func(f *ListingForm) { f.Price = "0" }, ErrListingNumberInvalid},
		{"bad ghg", func(f *ListingForm) { f.GHGIntensity = "low" }, ErrListingNumberInvalid},
		{"purity over 100", func(f *ListingForm) { f.Purity = "100.5" }, ErrListingNumberInvalid},
		{"bad date", func(f *ListingForm) { f.AvailableFrom = "next week" }, ErrListingDateInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &stubListingAPI{}
			p := NewListingPublisher(api, currentUser(1), zerolog.Nop())
			form := validListingForm()
			tc.edit(&form)

			_, err := p.Publish(context.Background(), form)
			if !errors.Is(err, tc.reason) || !domain.IsKind(err, domain.KindValidation) {
				t.Fatalf("expected %v, got %v", tc.reason, err)
			}
			if len(api.drafts) != 0 {
				t.Fatalf("nothing may be sent when validation fails")
			}
		})
	}
}

func TestListingPublisher_RequiresIdentity(t *testing.T) {
	api := &stubListingAPI{}
	p := NewListingPublisher(api, func() *domain.UserRecord { return nil }, zerolog.Nop())

	_, err := p.Publish(context.Background(), validListingForm())
	if !domain.IsKind(err, domain.KindUnauthorized) || len(api.drafts) != 0 {
		t.Fatalf("expected unauthorized without a request, got %v", err)
	}
}

func TestListingPublisher_RemoteFailurePassesThrough(t *testing.T) {
	remote := &domain.Error{Kind: domain.KindValidation, Message: "Missing required field: location_region", StatusCode: 400}
	p := NewListingPublisher(&stubListingAPI{err: remote}, currentUser(1), zerolog.Nop())

	if _, err := p.Publish(context.Background(), validListingForm()); !errors.Is(err, remote) {
		t.Fatalf("expected remote error, got %v", err)
	}
}
