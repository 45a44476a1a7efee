package service

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/h2market/h2trade/internal/core/domain"
	"github.com/h2market/h2trade/internal/core/ports"
)

// ProfileLoader is the part of SessionService the dashboard needs.
type ProfileLoader interface {
	RefreshProfile(ctx context.Context, force bool) (*domain.UserRecord, error)
}

// Dashboard is the profile and order history of the current user. Each half
// carries its own error.
type Dashboard struct {
	Profile    *domain.UserRecord
	ProfileErr error
	Orders     []domain.Order
	OrdersErr  error
}

// Err returns the first failure, preferring the profile's.
func (d *Dashboard) Err() error {
	if d.ProfileErr != nil {
		return d.ProfileErr
	}
	return d.OrdersErr
}

type DashboardService struct {
	profile ProfileLoader
	orders  ports.OrderAPI
	log     zerolog.Logger
}

func NewDashboardService(profile ProfileLoader, orders ports.OrderAPI, log zerolog.Logger) *DashboardService {
	return &DashboardService{profile: profile, orders: orders, log: log}
}

// Load fetches the profile and the orders concurrently. A failure of one
// does not cancel the other.
func (s *DashboardService) Load(ctx context.Context, force bool) *Dashboard {
	var (
		d Dashboard
		g errgroup.Group
	)
	g.Go(func() error {
		d.Profile, d.ProfileErr = s.profile.RefreshProfile(ctx, force)
		return nil
	})
	g.Go(func() error {
		d.Orders, d.OrdersErr = s.orders.GetMine(ctx)
		return nil
	})
	_ = g.Wait()

	if d.ProfileErr != nil {
		s.log.Warn().Err(d.ProfileErr).Msg("dashboard profile unavailable")
	}
	if d.OrdersErr != nil {
		s.log.Warn().Err(d.OrdersErr).Msg("dashboard orders unavailable")
	}
	if d.Orders == nil && d.OrdersErr == nil {
		d.Orders = []domain.Order{}
	}
	return &d
}
