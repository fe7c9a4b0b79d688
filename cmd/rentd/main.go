// Package main is the rentd HTTP backend. It authenticates Supabase access
// tokens, resolves the caller's role and serves the landlord and tenant
// operations against PostgREST with the caller's token.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sony/gobreaker"

	"github.com/R3E-Network/rentals/internal/config"
	"github.com/R3E-Network/rentals/internal/database"
	"github.com/R3E-Network/rentals/internal/events"
	"github.com/R3E-Network/rentals/internal/httpapi"
	"github.com/R3E-Network/rentals/internal/logging"
	"github.com/R3E-Network/rentals/internal/metrics"
	"github.com/R3E-Network/rentals/internal/middleware"
	"github.com/R3E-Network/rentals/supabase/client"
)

const serviceName = "rentd"

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	envPath := flag.String("env", ".env", "Path to .env file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envPath)
	if err != nil {
		logging.New(serviceName, "info", "json").WithError(err).Fatal("load config")
	}
	logger := logging.New(serviceName, cfg.Log.Level, cfg.Log.Format)

	if err := cfg.ValidateSupabase(); err != nil {
		logger.WithError(err).Fatal("invalid supabase config")
	}
	if err := cfg.ValidateServer(); err != nil {
		logger.WithError(err).Fatal("invalid server config")
	}
	if cfg.Supabase.JWTSecret == "" {
		logger.Warn("SUPABASE_JWT_SECRET not set; every token is verified against the auth server")
	}

	sb, err := client.New(client.Config{
		URL:    cfg.Supabase.URL,
		APIKey: cfg.Supabase.AnonKey,
		Breaker: client.BreakerConfig{
			Name:             "supabase",
			FailureThreshold: cfg.Supabase.FailureThreshold,
			OpenTimeout:      cfg.Supabase.OpenTimeout,
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.WithField("breaker", name).
					WithField("from", from.String()).
					WithField("to", to.String()).
					Warn("circuit breaker state changed")
			},
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("create supabase client")
	}

	authorizer, err := middleware.NewAuthorizer(cfg.RBAC.ModelPath, cfg.RBAC.PolicyPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("load authorization policy")
	}

	m := metrics.New()
	bus := events.NewBus()
	defer bus.Close()
	unobserve := m.ObserveBus(bus)
	defer unobserve()

	srv := httpapi.New(database.NewRepository(sb), bus, m, logger, httpapi.Options{
		ServiceName:        serviceName,
		SignInURL:          cfg.Server.SignInURL,
		JWTSecret:          cfg.Supabase.JWTSecret,
		Verifier:           sb.Auth(),
		Authorizer:         authorizer,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RateLimitRPS:       cfg.Server.RateLimitRPS,
		RateLimitBurst:     cfg.Server.RateLimitBurst,
	})

	stopCleanup := make(chan struct{})
	srv.Limiter().StartCleanup(5*time.Minute, stopCleanup)
	defer close(stopCleanup)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("rentd listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown error")
	}
	logger.Info("rentd stopped")
}
