package domain

import (
	"github.com/shopspring/decimal"
)

// OrderType is the side of an order.
type OrderType string

const (
	OrderBuy  OrderType = "buy"
	OrderSell OrderType = "sell"
)

// OrderStatus represents the lifecycle state of an order on the marketplace.
type OrderStatus string

const (
	OrderPending         OrderStatus = "pending"
	OrderPartiallyFilled OrderStatus = "partially_filled"
	OrderFilled          OrderStatus = "filled"
	OrderCancelled       OrderStatus = "cancelled"
	OrderExpired         OrderStatus = "expired"
)

// BidRequest is a buy order against a single listing.
type BidRequest struct {
	ListingID  int64
	QuantityKg decimal.Decimal
	PricePerKg decimal.Decimal
}

// Order is an order record as returned by the marketplace.
type Order struct {
	ID                int64           `json:"id"`
	UserID            int64           `json:"user_id"`
	PlacerUsername    string          `json:"order_placer_username,omitempty"`
	OrderType         OrderType       `json:"order_type"`
	ListingID         *int64          `json:"hydrogen_product_id"`
	QuantityKg        decimal.Decimal `json:"quantity_kg"`
	PricePerKg        decimal.Decimal `json:"price_per_kg"`
	Status            OrderStatus     `json:"status"`
	CreatedAt         Timestamp       `json:"created_timestamp"`
	UpdatedAt         Timestamp       `json:"updated_timestamp"`
	ExpiresAt         Timestamp       `json:"expiration_timestamp"`
	ProductionMethods *string         `json:"production_method_criteria"`
	LocationCriteria  *string         `json:"location_criteria"`
}

// Trade is an execution produced when a bid is matched.
type Trade struct {
	ID               int64           `json:"id"`
	BuyOrderID       int64           `json:"buy_order_id"`
	SellOrderID      int64           `json:"sell_order_id"`
	ListingID        int64           `json:"hydrogen_product_id"`
	QuantityKg       decimal.Decimal `json:"quantity_traded_kg"`
	PricePerKg       decimal.Decimal `json:"price_per_kg_agreed"`
	TradedAt         Timestamp       `json:"trade_timestamp"`
	SettlementStatus string          `json:"settlement_status"`
	BuyerID          int64           `json:"buyer_id"`
	SellerID         int64           `json:"seller_id"`
}

// OrderResult is the marketplace's answer to an order submission.
type OrderResult struct {
	Order      Order   `json:"order"`
	TradesMade []Trade `json:"trades_made"`
}

// Matched reports whether the order executed, wholly or partially, on submission.
func (r OrderResult) Matched() bool { return len(r.TradesMade) > 0 }

func (r OrderResult) TradeCount() int { return len(r.TradesMade) }

// FilledQuantity sums the quantity executed by the trades made.
func (r OrderResult) FilledQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, t := range r.TradesMade {
		total = total.Add(t.QuantityKg)
	}
	return total
}
