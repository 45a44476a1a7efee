// Command sandbox runs an in-memory hydrogen marketplace on the production
// REST contract, for local use of the h2trade client.
//
// @title                       H2 Sandbox Marketplace API
// @version                     1.0
// @description                 In-memory hydrogen marketplace speaking the production REST contract.
// @host                        localhost:5000
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/h2market/h2trade/internal/api"
	"github.com/h2market/h2trade/internal/pkg/config"
	"github.com/h2market/h2trade/internal/sandbox"
	"github.com/h2market/h2trade/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "h2sandbox"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens := sandbox.NewTokenIssuer(cfg.Sandbox.JWTSecret, cfg.Sandbox.TokenTTL)
	market := sandbox.NewMarket(tokens, logger.Component("market"))
	if cfg.Sandbox.Seed {
		if err := sandbox.Seed(ctx, market); err != nil {
			log.Fatal().Err(err).Msg("seed sandbox")
		}
		log.Info().Interface("records", market.Stats()).
			Str("seller", sandbox.DemoSeller).
			Str("buyer", sandbox.DemoBuyer).
			Msg("demo data loaded")
	}

	e := api.NewRouter(market, api.Config{JWTSecret: tokens.Secret()}, logger.Component("http"))
	srv := &http.Server{
		Addr:              ":" + cfg.Sandbox.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("base_path", api.BasePath).Msg("sandbox listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("sandbox stopped")
	}
	log.Info().Msg("sandbox stopped")
}
