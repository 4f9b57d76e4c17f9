package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/mkhalifa/checkout-gateway/pkg/config"
	"github.com/mkhalifa/checkout-gateway/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var errAPIKeyRequired = errors.New("stripe api key is required")

// Client wraps Stripe's API client plus env-specific metadata.
type Client struct {
	api         *stripe.Client
	environment string
}

// NewClient initializes Stripe once with the configured secret key. The
// environment is inferred from the key prefix.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.SecretKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	env := liveEnv
	if strings.HasPrefix(apiKey, "sk_test") || strings.HasPrefix(apiKey, "rk_test") {
		env = testEnv
	}

	api := stripe.NewClient(apiKey)

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		api:         api,
		environment: env,
	}, nil
}

// API returns the underlying Stripe API client.
func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// Environment reports the inferred Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SessionParams describes a single-line-item hosted Checkout Session.
// AmountMinor is the already-rounded minor-unit amount.
type SessionParams struct {
	AmountMinor   int64
	Currency      string
	ProductName   string
	Description   string
	CustomerEmail string

	ReferenceID   string
	CustomerName  string
	CustomerPhone string
	ContactID     string

	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the subset of the provider session the gateway needs.
type CheckoutSession struct {
	ID  string
	URL string
}

// CreateCheckoutSession opens a payment-mode Checkout Session and returns
// its hosted redirect URL. Stripe session creation is synchronous: there is
// no rejected outcome, only success or error.
func (c *Client) CreateCheckoutSession(ctx context.Context, p SessionParams) (*CheckoutSession, error) {
	productData := &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
		Name: stripe.String(p.ProductName),
	}
	if p.Description != "" {
		productData.Description = stripe.String(p.Description)
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:    stripe.String(strings.ToLower(p.Currency)),
				UnitAmount:  stripe.Int64(p.AmountMinor),
				ProductData: productData,
			},
		}},
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	params.AddMetadata("reference_id", p.ReferenceID)
	params.AddMetadata("customer_name", p.CustomerName)
	params.AddMetadata("customer_phone", p.CustomerPhone)
	if p.ContactID != "" {
		params.AddMetadata("ghl_contact_id", p.ContactID)
	}

	session, err := c.api.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create stripe checkout session: %w", err)
	}

	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}
