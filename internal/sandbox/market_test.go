package sandbox

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/h2market/h2trade/internal/core/domain"
	"github.com/h2market/h2trade/internal/core/ports"
)

const testSecret = "test-secret"

func newSeededMarket(t *testing.T) *Market {
	t.Helper()
	m := NewMarket(NewTokenIssuer(testSecret, 0), zerolog.Nop())
	m.cost = bcrypt.MinCost
	if err := Seed(context.Background(), m); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return m
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func id(v int64) *int64 { return &v }

func buy(listing int64, qty, price string) ports.PlaceOrderInput {
	return ports.PlaceOrderInput{OrderType: "buy", ListingID: id(listing), QuantityKg: dec(qty), PricePerKg: dec(price)}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var de *domain.Error
	if !errors.As(err, &de) {
		t.Fatalf("expected domain error, got %v", err)
	}
	return de.StatusCode
}

func TestMarket_RegisterAndLogin(t *testing.T) {
	m := newSeededMarket(t)
	ctx := context.Background()

	res, err := m.Register(ctx, ports.RegisterInput{Username: "carol", Email: "carol@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.AccessToken == "" || res.User.Username != "carol" || !res.User.HasRole(domain.RoleUser) {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.User.Organization() != "N/A" {
		t.Fatalf("expected no organization, got %s", res.User.Organization())
	}

	for _, identifier := range []string{"carol", "CAROL@example.com"} {
		if _, err := m.Login(ctx, ports.LoginInput{Identifier: identifier, Password: "secret1"}); err != nil {
			t.Fatalf("login as %s: %v", identifier, err)
		}
	}

	_, err = m.Login(ctx, ports.LoginInput{Identifier: "carol", Password: "wrong"})
	if !errors.Is(err, ErrBadCredentials) || statusOf(t, err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 bad credentials, got %v", err)
	}
}

func TestMarket_RegisterConflicts(t *testing.T) {
	m := newSeededMarket(t)
	ctx := context.Background()

	_, err := m.Register(ctx, ports.RegisterInput{Username: DemoBuyer, Email: "new@example.com", Password: "secret1"})
	if !errors.Is(err, ErrUsernameTaken) || statusOf(t, err) != http.StatusConflict {
		t.Fatalf("expected username conflict, got %v", err)
	}
	_, err = m.Register(ctx, ports.RegisterInput{Username: "fresh", Email: "OPS@greenvolt.example", Password: "secret1"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected email conflict, got %v", err)
	}
}

func TestMarket_TokenSubjectCarriesIdentity(t *testing.T) {
	m := newSeededMarket(t)
	res, err := m.Login(context.Background(), ports.LoginInput{Identifier: DemoSeller, Password: DemoPassword})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(res.AccessToken, claims, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	}); err != nil {
		t.Fatalf("parse token: %v", err)
	}
	sub, ok := claims["sub"].(map[string]any)
	if !ok || sub["username"] != DemoSeller {
		t.Fatalf("unexpected subject: %v", claims["sub"])
	}
	if _, err := claims.GetExpirationTime(); err != nil {
		t.Fatalf("missing exp: %v", err)
	}
}

func TestMarket_BidAtAskFillsImmediately(t *testing.T) {
	m := newSeededMarket(t)
	ctx := context.Background()

	res, err := m.PlaceOrder(ctx, DemoBuyer, buy(1, "50", "4.50"))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if !res.Matched() || res.TradeCount() != 1 {
		t.Fatalf("expected one trade, got %+v", res.TradesMade)
	}
	trade := res.TradesMade[0]
	if !trade.QuantityKg.Equal(decimal.NewFromInt(50)) || !trade.PricePerKg.Equal(decimal.RequireFromString("4.5")) {
		t.Fatalf("unexpected trade: %+v", trade)
	}
	if res.Order.Status != domain.OrderFilled {
		t.Fatalf("expected filled, got %s", res.Order.Status)
	}

	l, _ := m.Listing(ctx, 1)
	if !l.QuantityKg.Equal(decimal.NewFromInt(950)) || l.Status != domain.ListingActive {
		t.Fatalf("listing not decremented: %s %s", l.QuantityKg, l.Status)
	}

	sellerOrders, _ := m.OrdersOf(ctx, DemoSeller)
	if sellerOrders[0].ID != trade.SellOrderID || sellerOrders[0].Status != domain.OrderPartiallyFilled {
		t.Fatalf("standing sell order not updated: %+v", sellerOrders[0])
	}
}

func TestMarket_BidBelowAskStaysPending(t *testing.T) {
	m := newSeededMarket(t)
	res, err := m.PlaceOrder(context.Background(), DemoBuyer, buy(1, "50", "4.0"))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if res.Matched() || res.TradesMade == nil || res.Order.Status != domain.OrderPending {
		t.Fatalf("expected pending with empty trades, got %+v", res)
	}
}

func TestMarket_OversizedBidExhaustsListing(t *testing.T) {
	m := newSeededMarket(t)
	ctx := context.Background()

	res, err := m.PlaceOrder(ctx, DemoBuyer, buy(2, "300", "3.10"))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if res.Order.Status != domain.OrderPartiallyFilled || !res.FilledQuantity().Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected partial fill of 250, got %s %s", res.Order.Status, res.FilledQuantity())
	}

	l, _ := m.Listing(ctx, 2)
	if l.Status != domain.ListingSold || l.Biddable() {
		t.Fatalf("expected sold listing, got %s", l.Status)
	}
	active, _ := m.ActiveListings(ctx)
	for _, a := range active {
		if a.ID == 2 {
			t.Fatalf("sold listing still listed")
		}
	}

	again, err := m.PlaceOrder(ctx, DemoBuyer, buy(2, "1", "10"))
	if err != nil || again.Matched() {
		t.Fatalf("sold listing must not fill: %v %+v", err, again)
	}
}

func TestMarket_SelfBidDoesNotFill(t *testing.T) {
	m := newSeededMarket(t)
	res, err := m.PlaceOrder(context.Background(), DemoSeller, buy(1, "10", "9"))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if res.Matched() {
		t.Fatalf("seller must not trade with itself")
	}
}

func TestMarket_OrderRejections(t *testing.T) {
	m := newSeededMarket(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		user   string
		input  ports.PlaceOrderInput
		status int
	}{
		{"missing quantity", DemoBuyer, ports.PlaceOrderInput{OrderType: "buy", ListingID: id(1), PricePerKg: dec("4")}, http.StatusBadRequest},
		{"bad side", DemoBuyer, ports.PlaceOrderInput{OrderType: "swap", ListingID: id(1), QuantityKg: dec("1"), PricePerKg: dec("4")}, http.StatusBadRequest},
		{"negative price", DemoBuyer, buy(1, "1", "-4"), http.StatusBadRequest},
		{"unknown listing", DemoBuyer, buy(99, "1", "4"), http.StatusNotFound},
		{"sell on foreign listing", DemoBuyer, ports.PlaceOrderInput{OrderType: "sell", ListingID: id(1), QuantityKg: dec("1"), PricePerKg: dec("4")}, http.StatusForbidden},
		{"unknown user", "ghost", buy(1, "1", "4"), http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.PlaceOrder(ctx, tc.user, tc.input)
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := statusOf(t, err); got != tc.status {
				t.Fatalf("expected %d, got %d (%v)", tc.status, got, err)
			}
		})
	}
}

func TestMarket_ListingNotFoundMessage(t *testing.T) {
	m := newSeededMarket(t)
	_, err := m.Listing(context.Background(), 42)
	if domain.Message(err) != "HydrogenProduct with id 42 not found." {
		t.Fatalf("unexpected message: %q", domain.Message(err))
	}
}

func str(s string) *string { return &s }

func TestMarket_CreateListingOpensSellOrder(t *testing.T) {
	m := newSeededMarket(t)
	ctx := context.Background()

	l, err := m.CreateListing(ctx, DemoSeller, ports.CreateListingInput{
		QuantityKg:       dec("400"),
		PricePerKg:       dec("5.00"),
		LocationRegion:   str(" Rotterdam "),
		ProductionMethod: str("SOEC"),
		PurityPercentage: dec("99.9"),
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if l.ID != 3 || l.Status != domain.ListingActive || l.LocationRegion != "Rotterdam" || l.SellerUsername != DemoSeller {
		t.Fatalf("unexpected listing: %+v", l)
	}
	if !l.PurityPercentage.Valid || l.GHGIntensity.Valid {
		t.Fatalf("optional decimals not carried: %+v", l)
	}

	res, err := m.PlaceOrder(ctx, DemoBuyer, buy(l.ID, "100", "5"))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if !res.FilledQuantity().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("new listing should fill against its sell order, got %s", res.FilledQuantity())
	}
}

func TestMarket_CreateListingRejections(t *testing.T) {
	m := newSeededMarket(t)
	valid := func() ports.CreateListingInput {
		return ports.CreateListingInput{QuantityKg: dec("1"), PricePerKg: dec("1"), LocationRegion: str("X"), ProductionMethod: str("PEM")}
	}

	noRegion := valid()
	noRegion.LocationRegion = str("  ")
	noPrice := valid()
	noPrice.PricePerKg = nil
	zeroQty := valid()
	zeroQty.QuantityKg = dec("0")
	purity := valid()
	purity.PurityPercentage = dec("101")
	status := valid()
	status.Status = "draft"

	cases := []struct {
		name   string
		user   string
		input  ports.CreateListingInput
		status int
		msg    string
	}{
		{"missing region", DemoSeller, noRegion, http.StatusBadRequest, "Missing required field: location_region"},
		{"missing price", DemoSeller, noPrice, http.StatusBadRequest, "Missing required field: price_per_kg"},
		{"zero quantity", DemoSeller, zeroQty, http.StatusBadRequest, "Quantity and price must be positive."},
		{"purity over 100", DemoSeller, purity, http.StatusBadRequest, "Purity must be between 0 and 100."},
		{"unknown status", DemoSeller, status, http.StatusBadRequest, "Invalid status 'draft'."},
		{"unknown user", "ghost", valid(), http.StatusUnauthorized, "User not found or token invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.CreateListing(context.Background(), tc.user, tc.input)
			if got := statusOf(t, err); got != tc.status || domain.Message(err) != tc.msg {
				t.Fatalf("expected %d %q, got %d %q", tc.status, tc.msg, got, domain.Message(err))
			}
		})
	}
}
