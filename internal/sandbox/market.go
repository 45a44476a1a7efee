// Package sandbox is an in-memory marketplace that speaks the same REST
// contract as the production service. It exists to run the client locally
// and in end-to-end tests.
package sandbox

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/h2market/h2trade/internal/core/domain"
	"github.com/h2market/h2trade/internal/core/ports"
)

type account struct {
	user domain.UserRecord
	hash []byte
}

// Market holds users, listings, orders and trades. All methods are safe for
// concurrent use.
type Market struct {
	tokens *TokenIssuer
	log    zerolog.Logger
	now    func() time.Time
	cost   int

	mu       sync.RWMutex
	accounts map[int64]*account
	listings map[int64]*domain.Listing
	orders   map[int64]*domain.Order
	trades   []domain.Trade
	// standing maps a listing to the seller's open sell order for it.
	standing map[int64]int64
	seq      struct{ user, listing, order, trade int64 }
}

var (
	_ ports.AccountService = (*Market)(nil)
	_ ports.CatalogService = (*Market)(nil)
	_ ports.TradingService = (*Market)(nil)
)

func NewMarket(tokens *TokenIssuer, log zerolog.Logger) *Market {
	return &Market{
		tokens:   tokens,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		cost:     bcrypt.DefaultCost,
		accounts: make(map[int64]*account),
		listings: make(map[int64]*domain.Listing),
		orders:   make(map[int64]*domain.Order),
		standing: make(map[int64]int64),
	}
}

// Stats reports the number of records held, for the readiness probe.
func (m *Market) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]int{
		"users":    len(m.accounts),
		"listings": len(m.listings),
		"orders":   len(m.orders),
		"trades":   len(m.trades),
	}
}

// Check reports whether the store can be read before ctx expires.
func (m *Market) Check(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.mu.RLock()
		m.mu.RUnlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("market store: %w", ctx.Err())
	}
}

// ---- accounts ----

func (m *Market) Register(_ context.Context, input ports.RegisterInput) (*ports.AuthResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), m.cost)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.byUsername(input.Username) != nil {
		m.mu.Unlock()
		return nil, reject(http.StatusConflict, "Username already exists", ErrUsernameTaken)
	}
	for _, a := range m.accounts {
		if strings.EqualFold(a.user.Email, input.Email) {
			m.mu.Unlock()
			return nil, reject(http.StatusConflict, "Email already exists", ErrEmailTaken)
		}
	}
	m.seq.user++
	now := domain.Timestamp{Time: m.now()}
	user := domain.UserRecord{
		ID:        m.seq.user,
		Username:  input.Username,
		Email:     input.Email,
		Roles:     []string{domain.RoleUser},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if org := strings.TrimSpace(input.OrganizationName); org != "" {
		user.OrganizationName = &org
	}
	m.accounts[user.ID] = &account{user: user, hash: hash}
	m.mu.Unlock()

	m.log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("account registered")
	return m.authenticate(user)
}

func (m *Market) Login(_ context.Context, input ports.LoginInput) (*ports.AuthResult, error) {
	m.mu.RLock()
	var found *account
	for _, a := range m.accounts {
		if a.user.Username == input.Identifier || strings.EqualFold(a.user.Email, input.Identifier) {
			found = a
			break
		}
	}
	m.mu.RUnlock()

	if found == nil || bcrypt.CompareHashAndPassword(found.hash, []byte(input.Password)) != nil {
		return nil, reject(http.StatusUnauthorized, "Bad username/email or password", ErrBadCredentials)
	}
	return m.authenticate(found.user)
}

func (m *Market) authenticate(user domain.UserRecord) (*ports.AuthResult, error) {
	token, err := m.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	u := user
	u.Roles = slices.Clone(user.Roles)
	return &ports.AuthResult{AccessToken: token, User: &u}, nil
}

func (m *Market) Profile(_ context.Context, username string) (*domain.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a := m.byUsername(username)
	if a == nil {
		return nil, reject(http.StatusNotFound, "User not found", ErrUserNotFound)
	}
	u := a.user
	u.Roles = slices.Clone(a.user.Roles)
	return &u, nil
}

// byUsername must be called with m.mu held.
func (m *Market) byUsername(username string) *account {
	for _, a := range m.accounts {
		if a.user.Username == username {
			return a
		}
	}
	return nil
}

// ---- catalog ----

func (m *Market) ActiveListings(context.Context) ([]domain.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Listing, 0, len(m.listings))
	for _, l := range m.listings {
		if l.Status == domain.ListingActive {
			out = append(out, *l)
		}
	}
	slices.SortFunc(out, func(a, b domain.Listing) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *Market) Listing(_ context.Context, id int64) (*domain.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, listingNotFound(id)
	}
	out := *l
	return &out, nil
}

// CreateListing validates a seller's submission and publishes it.
func (m *Market) CreateListing(_ context.Context, username string, in ports.CreateListingInput) (*domain.Listing, error) {
	missing := func(field string) error {
		return reject(http.StatusBadRequest, "Missing required field: "+field, ErrInvalidListing)
	}
	switch {
	case in.QuantityKg == nil:
		return nil, missing("quantity_kg")
	case in.PricePerKg == nil:
		return nil, missing("price_per_kg")
	case in.LocationRegion == nil || strings.TrimSpace(*in.LocationRegion) == "":
		return nil, missing("location_region")
	case in.ProductionMethod == nil || strings.TrimSpace(*in.ProductionMethod) == "":
		return nil, missing("production_method")
	}
	if !in.QuantityKg.IsPositive() || !in.PricePerKg.IsPositive() {
		return nil, reject(http.StatusBadRequest, "Quantity and price must be positive.", ErrInvalidListing)
	}
	if p := in.PurityPercentage; p != nil && (p.IsNegative() || p.GreaterThan(decimal.NewFromInt(100))) {
		return nil, reject(http.StatusBadRequest, "Purity must be between 0 and 100.", ErrInvalidListing)
	}

	status := domain.ListingStatus(strings.ToLower(in.Status))
	switch status {
	case "":
		status = domain.ListingActive
	case domain.ListingActive, domain.ListingInactive, domain.ListingSold, domain.ListingExpired, domain.ListingClosed:
	default:
		return nil, reject(http.StatusBadRequest, fmt.Sprintf("Invalid status '%s'.", in.Status), ErrInvalidListing)
	}

	l := domain.Listing{
		QuantityKg:       *in.QuantityKg,
		PricePerKg:       *in.PricePerKg,
		Status:           status,
		LocationRegion:   strings.TrimSpace(*in.LocationRegion),
		ProductionMethod: strings.TrimSpace(*in.ProductionMethod),
		Feedstock:        in.Feedstock,
		EnergySource:     in.EnergySource,
		DeliveryTerms:    in.DeliveryTerms,
	}
	if in.PurityPercentage != nil {
		l.PurityPercentage = decimal.NewNullDecimal(*in.PurityPercentage)
	}
	if in.GHGIntensity != nil {
		l.GHGIntensity = decimal.NewNullDecimal(*in.GHGIntensity)
	}
	if in.AvailableFrom != nil {
		l.AvailableFrom = *in.AvailableFrom
	}

	out, err := m.AddListing(username, l)
	if errors.Is(err, ErrUserNotFound) {
		return nil, reject(http.StatusUnauthorized, "User not found or token invalid", ErrUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	m.log.Info().Int64("listing_id", out.ID).Str("seller", username).Msg("listing published")
	return out, nil
}

// AddListing publishes a listing for seller and opens the matching sell order.
func (m *Market) AddListing(seller string, l domain.Listing) (*domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.byUsername(seller)
	if a == nil {
		return nil, reject(http.StatusNotFound, "User not found", ErrUserNotFound)
	}
	now := domain.Timestamp{Time: m.now()}
	m.seq.listing++
	l.ID = m.seq.listing
	l.SellerID = a.user.ID
	l.SellerUsername = a.user.Username
	l.ListedAt, l.UpdatedAt = now, now
	if l.Status == "" {
		l.Status = domain.ListingActive
	}
	stored := l
	m.listings[l.ID] = &stored

	sell := m.newOrder(a.user, domain.OrderSell, l.ID, l.QuantityKg, l.PricePerKg)
	m.standing[l.ID] = sell.ID

	out := stored
	return &out, nil
}

// ---- trading ----

func (m *Market) OrdersOf(_ context.Context, username string) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a := m.byUsername(username)
	if a == nil {
		return nil, reject(http.StatusUnauthorized, "User not found or token invalid", ErrUserNotFound)
	}
	out := make([]domain.Order, 0)
	for _, o := range m.orders {
		if o.UserID == a.user.ID {
			out = append(out, *o)
		}
	}
	slices.SortFunc(out, func(a, b domain.Order) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// PlaceOrder records an order. A buy order whose price reaches the listing's
// asking price fills immediately against the seller's standing sell order, up
// to the quantity still available. Anything else stays pending.
func (m *Market) PlaceOrder(_ context.Context, username string, in ports.PlaceOrderInput) (*domain.OrderResult, error) {
	switch {
	case in.OrderType == "":
		return nil, reject(http.StatusBadRequest, "Missing required field: order_type", ErrInvalidOrder)
	case in.QuantityKg == nil:
		return nil, reject(http.StatusBadRequest, "Missing required field: quantity_kg", ErrInvalidOrder)
	case in.PricePerKg == nil:
		return nil, reject(http.StatusBadRequest, "Missing required field: price_per_kg", ErrInvalidOrder)
	}
	side := domain.OrderType(strings.ToLower(in.OrderType))
	if side != domain.OrderBuy && side != domain.OrderSell {
		return nil, reject(http.StatusBadRequest, "Invalid order_type. Must be 'buy' or 'sell'.", ErrInvalidOrder)
	}
	if !in.QuantityKg.IsPositive() || !in.PricePerKg.IsPositive() {
		return nil, reject(http.StatusBadRequest, "Quantity and price must be positive.", ErrInvalidOrder)
	}
	if in.ListingID == nil {
		return nil, reject(http.StatusBadRequest, "Missing hydrogen_product_id. Orders must reference an existing product listing.", ErrInvalidOrder)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.byUsername(username)
	if a == nil {
		return nil, reject(http.StatusUnauthorized, "User not found or token invalid", ErrUserNotFound)
	}
	listing, ok := m.listings[*in.ListingID]
	if !ok {
		return nil, listingNotFound(*in.ListingID)
	}

	if side == domain.OrderSell {
		if listing.SellerID != a.user.ID {
			return nil, reject(http.StatusForbidden, "You can only create sell orders for your own products.", ErrForbidden)
		}
		if in.QuantityKg.GreaterThan(listing.QuantityKg) {
			msg := fmt.Sprintf("Sell order quantity (%skg) cannot exceed available product quantity (%skg).", in.QuantityKg, listing.QuantityKg)
			return nil, reject(http.StatusBadRequest, msg, ErrInvalidOrder)
		}
		order := m.newOrder(a.user, side, listing.ID, *in.QuantityKg, *in.PricePerKg)
		return &domain.OrderResult{Order: *order, TradesMade: []domain.Trade{}}, nil
	}

	order := m.newOrder(a.user, side, listing.ID, *in.QuantityKg, *in.PricePerKg)
	trades := m.fill(order, listing)
	m.log.Info().
		Int64("order_id", order.ID).
		Int64("listing_id", listing.ID).
		Str("buyer", a.user.Username).
		Int("trades", len(trades)).
		Msg("order placed")
	return &domain.OrderResult{Order: *order, TradesMade: trades}, nil
}

// fill must be called with m.mu held.
func (m *Market) fill(buy *domain.Order, listing *domain.Listing) []domain.Trade {
	trades := []domain.Trade{}
	if !listing.Biddable() || buy.UserID == listing.SellerID || buy.PricePerKg.LessThan(listing.PricePerKg) {
		return trades
	}
	sell, ok := m.orders[m.standing[listing.ID]]
	if !ok {
		return trades
	}

	qty := decimal.Min(buy.QuantityKg, listing.QuantityKg)
	now := domain.Timestamp{Time: m.now()}
	m.seq.trade++
	trade := domain.Trade{
		ID:               m.seq.trade,
		BuyOrderID:       buy.ID,
		SellOrderID:      sell.ID,
		ListingID:        listing.ID,
		QuantityKg:       qty,
		PricePerKg:       listing.PricePerKg,
		TradedAt:         now,
		SettlementStatus: "pending",
		BuyerID:          buy.UserID,
		SellerID:         listing.SellerID,
	}
	m.trades = append(m.trades, trade)

	listing.QuantityKg = listing.QuantityKg.Sub(qty)
	listing.UpdatedAt = now
	if !listing.QuantityKg.IsPositive() {
		listing.Status = domain.ListingSold
	}

	buy.Status = domain.OrderFilled
	if qty.LessThan(buy.QuantityKg) {
		buy.Status = domain.OrderPartiallyFilled
	}
	sell.Status = domain.OrderPartiallyFilled
	if listing.Status == domain.ListingSold {
		sell.Status = domain.OrderFilled
	}
	buy.UpdatedAt, sell.UpdatedAt = now, now

	return append(trades, trade)
}

// newOrder must be called with m.mu held.
func (m *Market) newOrder(user domain.UserRecord, side domain.OrderType, listingID int64, qty, price decimal.Decimal) *domain.Order {
	now := domain.Timestamp{Time: m.now()}
	m.seq.order++
	id := listingID
	o := &domain.Order{
		ID:             m.seq.order,
		UserID:         user.ID,
		PlacerUsername: user.Username,
		OrderType:      side,
		ListingID:      &id,
		QuantityKg:     qty,
		PricePerKg:     price,
		Status:         domain.OrderPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.orders[o.ID] = o
	return o
}

func listingNotFound(id int64) error {
	return reject(http.StatusNotFound, fmt.Sprintf("HydrogenProduct with id %d not found.", id), ErrListingNotFound)
}
