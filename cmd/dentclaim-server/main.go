package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dentclaim/dentclaim/internal/config"
	"github.com/dentclaim/dentclaim/internal/domain/billing"
	"github.com/dentclaim/dentclaim/internal/domain/claim"
	"github.com/dentclaim/dentclaim/internal/domain/encounter"
	"github.com/dentclaim/dentclaim/internal/domain/reference"
	"github.com/dentclaim/dentclaim/internal/platform/auth"
	"github.com/dentclaim/dentclaim/internal/platform/db"
	"github.com/dentclaim/dentclaim/internal/platform/middleware"
	"github.com/dentclaim/dentclaim/internal/platform/telemetry"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "dentclaim-server",
		Short:        "Dental insurance billing and claim file server",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedCmd(), receiptCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	if cfg.ConsoleLogs() {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	level := zerolog.InfoLevel
	if cfg.IsDev() {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("service", "dentclaim").Logger()
}

// setup loads and validates config, then connects.
func setup(ctx context.Context) (*config.Config, zerolog.Logger, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	logger := newLogger(cfg, os.Stdout)
	if err := cfg.Validate(); err != nil {
		return nil, logger, nil, err
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, logger, nil, err
	}
	return cfg, logger, pool, nil
}

// services wires repositories and services for one process.
type services struct {
	reference *reference.Service
	encounter *encounter.Service
	billing   *billing.Service
	claim     *claim.Service
}

func newServices(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger, metrics *telemetry.Metrics) *services {
	refSvc := reference.NewService(reference.NewRepoPG(pool), cfg.FeeRevision, cfg.BaselineRevision, logger.With().Str("component", "reference").Logger())
	encSvc := encounter.NewService(encounter.NewRepo(pool))
	billingRepo := billing.NewRepoPG(pool)
	billSvc := billing.NewService(billingRepo, encSvc, refSvc, billing.Options{
		DefaultBurdenRatio: cfg.DefaultBurdenRatio,
		NewVisitGapDays:    cfg.NewVisitGapDays,
	}, logger.With().Str("component", "billing").Logger(), metrics)
	claimSvc := claim.NewService(billingRepo, encSvc, refSvc, claim.Options{
		Facility:           cfg.Facility(),
		DefaultBurdenRatio: cfg.DefaultBurdenRatio,
	}, logger.With().Str("component", "claim").Logger(), metrics)
	return &services{reference: refSvc, encounter: encSvc, billing: billSvc, claim: claimSvc}
}

func newServer(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger, metrics *telemetry.Metrics, svcs *services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders: []string{echo.HeaderContentDisposition, middleware.RequestIDHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", metrics.Handler())

	api := e.Group("/api/v1")
	if cfg.IsDev() && cfg.AuthSigningKey == "" && cfg.AuthIssuer == "" {
		logger.Warn().Msg("development auth active: every request runs as admin")
		api.Use(auth.DevAuthMiddleware())
	} else {
		api.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
		}, logger))
	}
	api.Use(db.ConnMiddleware(pool))

	encounter.NewHandler(svcs.encounter).RegisterRoutes(api)
	reference.NewHandler(svcs.reference).RegisterRoutes(api)
	billing.NewHandler(svcs.billing).RegisterRoutes(api)
	claim.NewHandler(svcs.claim).RegisterRoutes(api)
	return e
}

func runServer() error {
	ctx := context.Background()
	cfg, logger, pool, err := setup(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		return err
	}
	defer pool.Close()
	logger.Info().Str("fee_revision", cfg.FeeRevision).Msg("connected to database")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.New(reg)

	e := newServer(cfg, pool, logger, metrics, newServices(cfg, pool, logger, metrics))

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
