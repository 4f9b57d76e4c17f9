package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/mkhalifa/checkout-gateway/pkg/errors"
	"github.com/mkhalifa/checkout-gateway/pkg/logger"
)

func TestWriteResultIsAlways200(t *testing.T) {
	w := httptest.NewRecorder()
	WriteResult(w, map[string]any{"success": false, "rejection_reason": "risky"})

	if got := w.Code; got != http.StatusOK {
		t.Fatalf("business outcomes ship with 200, got %d", got)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["success"] != false {
		t.Fatalf("unexpected payload %v", body)
	}
	if _, wrapped := body["data"]; wrapped {
		t.Fatal("result must not be wrapped in an envelope")
	}
}

func TestWriteErrorMapsValidationTo400(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout request").
		WithDetails(map[string]string{"phone": "is required"})
	WriteError(context.Background(), testLogger(), w, err)

	if got := w.Code; got != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", got)
	}

	var body ErrorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "invalid checkout request" {
		t.Fatalf("unexpected error message %q", body.Error)
	}
	if body.Details == nil {
		t.Fatal("expected details on a validation error")
	}
}

func TestWriteErrorMapsConfigTo500(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), testLogger(), w, pkgerrors.New(pkgerrors.CodeConfig, "stripe is not configured"))

	if got := w.Code; got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
}

func TestWriteErrorUntypedGetsInternalWithDetails(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), testLogger(), w, errors.New("something broke"))

	if got := w.Code; got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}

	var body ErrorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Details != "something broke" {
		t.Fatalf("expected the cause as details, got %v", body.Details)
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
}
