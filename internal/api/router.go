package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/h2market/h2trade/docs"
	"github.com/h2market/h2trade/internal/api/handler"
	"github.com/h2market/h2trade/internal/api/middleware"
	"github.com/h2market/h2trade/internal/core/domain"
	"github.com/h2market/h2trade/internal/pkg/validation"
	"github.com/h2market/h2trade/internal/sandbox"
)

// BasePath prefixes every marketplace route.
const BasePath = "/api"

// Config carries what the router needs besides the market.
type Config struct {
	JWTSecret string
	// Registry receives the HTTP metrics and backs /metrics. Nil selects the
	// process-wide default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(market *sandbox.Market, cfg Config, log zerolog.Logger) *echo.Echo {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if cfg.Registry != nil {
		registerer, gatherer = cfg.Registry, cfg.Registry
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "h2sandbox",
		Registerer: registerer,
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(market)
	marketHandler := handler.NewMarketHandler(market, market)
	authMiddleware := middleware.Auth(cfg.JWTSecret)

	api := e.Group(BasePath)

	// --- Auth routes ---
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	// --- User routes ---
	api.GET("/user/profile", authHandler.Profile, authMiddleware)
	api.GET("/user/admin/data", authHandler.AdminData, authMiddleware, middleware.RBAC(domain.RoleAdmin))

	// --- Listings (reads are public) ---
	api.GET("/products", marketHandler.ListProducts)
	api.GET("/products/:id", marketHandler.GetProduct)
	api.POST("/products", marketHandler.CreateProduct, authMiddleware)

	// --- Orders ---
	api.GET("/orders", marketHandler.ListOrders, authMiddleware)
	api.POST("/orders", marketHandler.CreateOrder, authMiddleware)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(map[string]handler.Checker{
		"market": market.Check,
	})

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – is the market store usable?

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
