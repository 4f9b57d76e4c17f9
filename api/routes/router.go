package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkhalifa/checkout-gateway/api/controllers"
	"github.com/mkhalifa/checkout-gateway/api/middleware"
	"github.com/mkhalifa/checkout-gateway/api/responses"
	checkoutsvc "github.com/mkhalifa/checkout-gateway/internal/checkout"
	"github.com/mkhalifa/checkout-gateway/pkg/config"
	pkgerrors "github.com/mkhalifa/checkout-gateway/pkg/errors"
	"github.com/mkhalifa/checkout-gateway/pkg/logger"
)

// NewRouter wires the gateway's routes. OPTIONS pre-flight is answered by
// the CORS middleware; any other non-POST verb on /checkout gets the 405
// contract below.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	checkoutService checkoutsvc.Service,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w, pkgerrors.New(pkgerrors.CodeMethodNotAllowed, "method not allowed"))
	})
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "resource not found"))
	})

	r.Post("/checkout", controllers.Checkout(checkoutService, logg))

	r.Get("/healthz/live", controllers.HealthLive(cfg))
	r.Get("/healthz/ready", controllers.HealthReady(cfg))

	if registry != nil {
		r.Get("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP)
	}

	return r
}
