package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mkhalifa/checkout-gateway/api/routes"
	checkoutsvc "github.com/mkhalifa/checkout-gateway/internal/checkout"
	"github.com/mkhalifa/checkout-gateway/pkg/config"
	"github.com/mkhalifa/checkout-gateway/pkg/ghl"
	"github.com/mkhalifa/checkout-gateway/pkg/logger"
	"github.com/mkhalifa/checkout-gateway/pkg/metrics"
	"github.com/mkhalifa/checkout-gateway/pkg/stripe"
	"github.com/mkhalifa/checkout-gateway/pkg/tabby"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "checkout-gateway"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "checkout-gateway",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	params := checkoutsvc.ServiceParams{
		Config: cfg,
		Logger: logg,
	}

	if cfg.Tabby.Enabled() {
		tabbyClient, err := tabby.NewClient(ctx, cfg.Tabby, logg)
		if err != nil {
			logg.Error(ctx, "failed to create tabby client", err)
			os.Exit(1)
		}
		params.Tabby = tabbyClient
	} else {
		logg.Warn(ctx, "tabby keys absent, tabby checkout disabled")
	}

	if cfg.Stripe.Enabled() {
		stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			logg.Error(ctx, "failed to create stripe client", err)
			os.Exit(1)
		}
		params.Stripe = stripeClient
	} else {
		logg.Warn(ctx, "stripe key absent, stripe checkout disabled")
	}

	if cfg.GHL.Enabled() {
		ghlClient, err := ghl.NewClient(ctx, cfg.GHL, logg)
		if err != nil {
			logg.Error(ctx, "failed to create ghl client", err)
			os.Exit(1)
		}
		params.CRM = ghlClient
	} else {
		logg.Info(ctx, "ghl keys absent, crm integration disabled")
	}

	registry := prometheus.NewRegistry()
	params.Metrics = metrics.NewCheckoutMetrics(registry)

	checkoutService, err := checkoutsvc.NewService(params)
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting checkout gateway")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, checkoutService, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "checkout gateway stopped unexpectedly", err)
		os.Exit(1)
	}
}
