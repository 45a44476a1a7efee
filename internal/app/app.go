// Package app wires the client: session storage, dispatcher, marketplace
// facade and the services built on them.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/h2market/h2trade/internal/core/domain"
	"github.com/h2market/h2trade/internal/core/ports"
	"github.com/h2market/h2trade/internal/core/service"
	mongostore "github.com/h2market/h2trade/internal/infrastructure/db/mongo"
	redisstore "github.com/h2market/h2trade/internal/infrastructure/db/redis"
	"github.com/h2market/h2trade/internal/infrastructure/dispatcher"
	"github.com/h2market/h2trade/internal/infrastructure/marketplace"
	"github.com/h2market/h2trade/internal/infrastructure/storage/file"
	"github.com/h2market/h2trade/internal/infrastructure/storage/memory"
	"github.com/h2market/h2trade/internal/pkg/config"
)

// App is a fully wired client.
type App struct {
	Session   *service.SessionService
	Market    *marketplace.Client
	Dashboard *service.DashboardService

	log     zerolog.Logger
	closers []func(context.Context) error
}

// Wire builds an App over storage. The dispatcher reads the credential from
// the session service on every call.
func Wire(storage ports.SessionStorage, market dispatcher.Config, log zerolog.Logger) *App {
	var session *service.SessionService
	d := dispatcher.New(market, func() string { return session.Credential() }, log.With().Str("component", "dispatcher").Logger())
	client := marketplace.NewClient(d)
	session = service.NewSessionService(storage, client.Auth, client.Profile, log.With().Str("component", "session").Logger())

	return &App{
		Session:   session,
		Market:    client,
		Dashboard: service.NewDashboardService(session, client.Orders, log.With().Str("component", "dashboard").Logger()),
		log:       log,
	}
}

// Open selects the storage backend from cfg, wires the App and restores the
// persisted session.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	storage, closer, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := Wire(storage, dispatcher.Config{BaseURL: cfg.Market.APIURL, Timeout: cfg.Market.Timeout}, log)
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	if _, err := a.Session.Restore(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// OpenStorage returns the configured session storage and, for networked
// backends, a function releasing its connection.
func OpenStorage(ctx context.Context, cfg *config.Config) (ports.SessionStorage, func(context.Context) error, error) {
	switch cfg.Session.Store {
	case config.StoreMemory:
		return memory.New(), nil, nil

	case config.StoreFile:
		path := cfg.Session.File
		if path == "" {
			p, err := file.DefaultPath(cfg.Session.Profile)
			if err != nil {
				return nil, nil, err
			}
			path = p
		}
		return file.New(path), nil, nil

	case config.StoreRedis:
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("session storage: %w", err)
		}
		closer := func(context.Context) error { return client.Close() }
		return redisstore.NewSessionStorage(client, cfg.Session.Profile, cfg.Session.TTL), closer, nil

	case config.StoreMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, nil, fmt.Errorf("session storage: %w", err)
		}
		return mongostore.NewSessionStorage(db, cfg.Session.Profile), client.Disconnect, nil

	default:
		return nil, nil, fmt.Errorf("session storage: unknown backend %q", cfg.Session.Store)
	}
}

// NewBidWorkflow returns a workflow that bids as the current session user.
func (a *App) NewBidWorkflow() *service.BidWorkflow {
	identity := func() *domain.UserRecord { return a.Session.Current().Identity }
	return service.NewBidWorkflow(a.Market.Orders, identity, a.log.With().Str("component", "bid").Logger())
}

// NewListingPublisher returns a publisher that lists as the current session user.
func (a *App) NewListingPublisher() *service.ListingPublisher {
	identity := func() *domain.UserRecord { return a.Session.Current().Identity }
	return service.NewListingPublisher(a.Market.Listings, identity, a.log.With().Str("component", "listing").Logger())
}

// Close releases storage connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c(ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}
