package controllers

import (
	"net/http"

	"github.com/mkhalifa/checkout-gateway/api/responses"
	"github.com/mkhalifa/checkout-gateway/pkg/config"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteResult(w, map[string]any{"status": "live"})
	}
}

// HealthReady reports which integrations the running config enables.
func HealthReady(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteResult(w, map[string]any{
			"status": "ready",
			"tabby":  cfg.Tabby.Enabled(),
			"stripe": cfg.Stripe.Enabled(),
			"ghl":    cfg.GHL.Enabled(),
		})
	}
}
