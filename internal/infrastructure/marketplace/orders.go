package marketplace

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/h2market/h2trade/internal/core/domain"
)

type OrderService struct {
	d Doer
}

// number renders a decimal as a bare JSON number instead of the quoted
// string decimal.Decimal produces by default.
type number decimal.Decimal

func (n number) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(n).String()), nil
}

type createOrderRequest struct {
	OrderType  domain.OrderType `json:"order_type"`
	ListingID  int64            `json:"hydrogen_product_id"`
	QuantityKg number           `json:"quantity_kg"`
	PricePerKg number           `json:"price_per_kg"`
}

func (s *OrderService) GetMine(ctx context.Context) ([]domain.Order, error) {
	var out []domain.Order
	if err := s.d.Do(ctx, http.MethodGet, "/orders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create submits a buy order against the bid's listing.
func (s *OrderService) Create(ctx context.Context, bid domain.BidRequest) (*domain.OrderResult, error) {
	req := createOrderRequest{
		OrderType:  domain.OrderBuy,
		ListingID:  bid.ListingID,
		QuantityKg: number(bid.QuantityKg),
		PricePerKg: number(bid.PricePerKg),
	}
	var out domain.OrderResult
	if err := s.d.Do(ctx, http.MethodPost, "/orders", req, &out); err != nil {
		return nil, err
	}
	if out.TradesMade == nil {
		out.TradesMade = []domain.Trade{}
	}
	return &out, nil
}
