package controllers

import (
	"net/http"

	"github.com/mkhalifa/checkout-gateway/api/responses"
	"github.com/mkhalifa/checkout-gateway/api/validators"
	checkoutsvc "github.com/mkhalifa/checkout-gateway/internal/checkout"
	pkgerrors "github.com/mkhalifa/checkout-gateway/pkg/errors"
	"github.com/mkhalifa/checkout-gateway/pkg/logger"
)

// Checkout handles a checkout form submission: it validates, orchestrates
// the provider and CRM calls, and returns the business outcome with 200.
// Only request-shape and configuration problems produce 4xx/5xx.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Execute(r.Context(), payload.toRequest())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteResult(w, result)
	}
}

type checkoutRequest struct {
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=tabby stripe"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Amount        string `json:"amount"`
	Description   string `json:"description"`
	ReferenceID   string `json:"reference_id"`
	ItemTitle     string `json:"item_title"`
	ItemCategory  string `json:"item_category"`
	Address       string `json:"address"`
	City          string `json:"city"`
	Zip           string `json:"zip"`
	Country       string `json:"country"`
}

func (p checkoutRequest) toRequest() checkoutsvc.Request {
	return checkoutsvc.Request{
		PaymentMethod: p.PaymentMethod,
		Name:          p.Name,
		Email:         p.Email,
		Phone:         p.Phone,
		Amount:        p.Amount,
		Description:   p.Description,
		ReferenceID:   p.ReferenceID,
		ItemTitle:     p.ItemTitle,
		ItemCategory:  p.ItemCategory,
		Address:       p.Address,
		City:          p.City,
		Zip:           p.Zip,
		Country:       p.Country,
	}
}
