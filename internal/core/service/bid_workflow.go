package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/h2market/h2trade/internal/core/domain"
	"github.com/h2market/h2trade/internal/core/ports"
	"github.com/h2market/h2trade/internal/metrics"
)

// BidState is the state of a single bid attempt.
type BidState string

const (
	BidIdle       BidState = "idle"
	BidValidating BidState = "validating"
	BidSubmitting BidState = "submitting"
	BidSucceeded  BidState = "succeeded"
	BidFailed     BidState = "failed"
)

var (
	ErrBidFieldsMissing    = errors.New("bid quantity or price missing")
	ErrBidQuantityInvalid  = errors.New("bid quantity is not a positive number")
	ErrBidPriceInvalid     = errors.New("bid price is not a positive number")
	ErrBiddingClosed       = errors.New("bidding is closed")
	ErrBidExceedsAvailable = errors.New("bid quantity exceeds available quantity")
	ErrSelfBid             = errors.New("bid on own listing")
	ErrSubmissionInFlight  = errors.New("a bid is already being submitted")
)

// BidForm holds the raw values the user typed.
type BidForm struct {
	Quantity string
	Price    string
}

// BidOutcome is the interpreted result of a successful submission.
type BidOutcome struct {
	Result     *domain.OrderResult
	Matched    bool
	TradeCount int
	FilledKg   decimal.Decimal
}

// Summary renders the outcome the way the bid form reports it.
func (o BidOutcome) Summary() string {
	if !o.Matched {
		return fmt.Sprintf("Bid placed successfully! Order ID: %d. Your order is pending.", o.Result.Order.ID)
	}
	return fmt.Sprintf("Bid placed successfully! Order ID: %d. %d trade(s) made immediately for %s kg!",
		o.Result.Order.ID, o.TradeCount, o.FilledKg.String())
}

// IdentityProvider returns the current user, or nil when logged out.
type IdentityProvider func() *domain.UserRecord

// BidWorkflow drives one bid form. Only one submission may be in flight per
// instance; separate instances are independent.
//
// The listing passed to Submit is a snapshot. Its checks are advisory: the
// marketplace re-validates against its own state and has the final word.
type BidWorkflow struct {
	orders   ports.OrderAPI
	identity IdentityProvider
	log      zerolog.Logger

	mu      sync.Mutex
	state   BidState
	lastErr error
	outcome *BidOutcome
}

func NewBidWorkflow(orders ports.OrderAPI, identity IdentityProvider, log zerolog.Logger) *BidWorkflow {
	return &BidWorkflow{orders: orders, identity: identity, log: log, state: BidIdle}
}

// State returns the current state.
func (w *BidWorkflow) State() BidState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// LastError returns the failure of the last attempt, if it failed.
func (w *BidWorkflow) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Outcome returns the outcome of the last attempt, if it succeeded.
func (w *BidWorkflow) Outcome() *BidOutcome {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.outcome
}

// Reset returns a finished workflow to Idle. It is a no-op while submitting.
func (w *BidWorkflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == BidSubmitting {
		return
	}
	w.state, w.lastErr, w.outcome = BidIdle, nil, nil
}

// Submit validates form against listing and, when every check passes,
// places a buy order. A call made while another submission of this
// workflow is in flight is rejected with ErrSubmissionInFlight.
func (w *BidWorkflow) Submit(ctx context.Context, listing *domain.Listing, form BidForm) (*BidOutcome, error) {
	w.mu.Lock()
	if w.state == BidSubmitting || w.state == BidValidating {
		w.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	w.state, w.lastErr, w.outcome = BidValidating, nil, nil
	w.mu.Unlock()

	bid, err := w.validate(listing, form)
	if err != nil {
		metrics.BidsTotal.WithLabelValues("rejected").Inc()
		w.log.Debug().Err(err).Msg("bid rejected before submission")
		return nil, w.fail(err)
	}

	w.mu.Lock()
	w.state = BidSubmitting
	w.mu.Unlock()

	res, err := w.orders.Create(ctx, bid)
	if err != nil {
		metrics.BidsTotal.WithLabelValues("failed").Inc()
		w.log.Warn().Err(err).Int64("listing_id", bid.ListingID).Msg("bid submission failed")
		return nil, w.fail(err)
	}

	outcome := &BidOutcome{
		Result:     res,
		Matched:    res.Matched(),
		TradeCount: res.TradeCount(),
		FilledKg:   res.FilledQuantity(),
	}
	label := "pending"
	if outcome.Matched {
		label = "matched"
	}
	metrics.BidsTotal.WithLabelValues(label).Inc()
	w.log.Info().
		Int64("listing_id", bid.ListingID).
		Int64("order_id", res.Order.ID).
		Int("trades", outcome.TradeCount).
		Msg("bid placed")

	w.mu.Lock()
	w.state, w.outcome = BidSucceeded, outcome
	w.mu.Unlock()
	return outcome, nil
}

func (w *BidWorkflow) fail(err error) error {
	w.mu.Lock()
	w.state, w.lastErr = BidFailed, err
	w.mu.Unlock()
	return err
}

// validate runs the gate in order; the first failing check wins.
func (w *BidWorkflow) validate(listing *domain.Listing, form BidForm) (domain.BidRequest, error) {
	qtyRaw, priceRaw := strings.TrimSpace(form.Quantity), strings.TrimSpace(form.Price)
	if qtyRaw == "" || priceRaw == "" {
		return domain.BidRequest{}, rejected("Please enter both quantity and your bid price.", ErrBidFieldsMissing)
	}
	qty, err := decimal.NewFromString(qtyRaw)
	if err != nil || !qty.IsPositive() {
		return domain.BidRequest{}, rejected("Quantity must be a positive number.", ErrBidQuantityInvalid)
	}
	price, err := decimal.NewFromString(priceRaw)
	if err != nil || !price.IsPositive() {
		return domain.BidRequest{}, rejected("Bid price must be a positive number.", ErrBidPriceInvalid)
	}

	if listing == nil {
		return domain.BidRequest{}, rejected("The listing is not loaded. Bidding is closed.", ErrBiddingClosed)
	}
	if reason := listing.ClosedReason(); reason != "" {
		return domain.BidRequest{}, rejected(reason, ErrBiddingClosed)
	}

	if qty.GreaterThan(listing.QuantityKg) {
		return domain.BidRequest{}, rejected(
			fmt.Sprintf("Your bid quantity cannot exceed the available quantity of %s kg.", listing.QuantityKg.String()),
			ErrBidExceedsAvailable)
	}

	var user *domain.UserRecord
	if w.identity != nil {
		user = w.identity()
	}
	if user == nil {
		return domain.BidRequest{}, domain.NewError(domain.KindUnauthorized, "Please log in to place a bid.", domain.ErrNotAuthenticated)
	}
	if listing.SellerID == user.ID {
		return domain.BidRequest{}, rejected("You cannot bid on your own product listing.", ErrSelfBid)
	}

	return domain.BidRequest{ListingID: listing.ID, QuantityKg: qty, PricePerKg: price}, nil
}

func rejected(msg string, reason error) error {
	return domain.NewError(domain.KindValidation, msg, reason)
}
