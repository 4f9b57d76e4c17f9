package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	checkoutsvc "github.com/mkhalifa/checkout-gateway/internal/checkout"
	"github.com/mkhalifa/checkout-gateway/pkg/config"
	"github.com/mkhalifa/checkout-gateway/pkg/logger"
)

type stubCheckoutService struct{}

func (stubCheckoutService) Execute(ctx context.Context, req checkoutsvc.Request) (*checkoutsvc.Result, error) {
	return &checkoutsvc.Result{Success: true, PaymentMethod: checkoutsvc.MethodTabby}, nil
}

func newTestRouter() http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	return NewRouter(&config.Config{}, logg, stubCheckoutService{}, prometheus.NewRegistry())
}

func TestCheckoutNonPostIs405(t *testing.T) {
	router := newTestRouter()

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/checkout", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s /checkout expected 405, got %d", method, w.Code)
		}

		var body map[string]any
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["error"] == nil {
			t.Fatalf("expected an error body, got %v", body)
		}
	}
}

func TestCheckoutPreflightOptionsIs200(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/checkout", nil)
	req.Header.Set("Origin", "https://merchant.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("pre-flight expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatal("expected permissive CORS headers on pre-flight")
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter()

	for _, path := range []string{"/healthz/live", "/healthz/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%s expected 200, got %d", path, w.Code)
		}
	}
}

func TestMetricsEndpointIsExposed(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("/metrics expected 200, got %d", w.Code)
	}
}

func TestUnknownPathIs404(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
