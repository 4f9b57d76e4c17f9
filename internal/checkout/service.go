package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkhalifa/checkout-gateway/pkg/config"
	pkgerrors "github.com/mkhalifa/checkout-gateway/pkg/errors"
	"github.com/mkhalifa/checkout-gateway/pkg/ghl"
	"github.com/mkhalifa/checkout-gateway/pkg/logger"
	"github.com/mkhalifa/checkout-gateway/pkg/metrics"
	"github.com/mkhalifa/checkout-gateway/pkg/stripe"
	"github.com/mkhalifa/checkout-gateway/pkg/tabby"
)

// CRM tags applied during orchestration.
const (
	tagCheckoutStarted = "checkout-started"
	tagTabbyRejected   = "tabby-rejected"
)

type crmClient interface {
	UpsertContact(ctx context.Context, params ghl.ContactParams) (string, error)
	CreateNote(ctx context.Context, contactID, body string) error
	UpdateContactTags(ctx context.Context, contactID string, tags []string) error
}

type tabbyGateway interface {
	CreateCheckoutSession(ctx context.Context, params tabby.CheckoutParams) (*tabby.CheckoutSession, error)
}

type stripeGateway interface {
	CreateCheckoutSession(ctx context.Context, params stripe.SessionParams) (*stripe.CheckoutSession, error)
}

// Service executes checkout orchestration: validate, best-effort CRM upsert,
// provider session creation, best-effort CRM annotation.
type Service interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

// ServiceParams wires the orchestrator's collaborators. CRM and either
// gateway may be nil: a nil CRM silently disables the auxiliary legs, a nil
// gateway turns attempted use into a config error.
type ServiceParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	CRM     crmClient
	Tabby   tabbyGateway
	Stripe  stripeGateway
	Metrics *metrics.CheckoutMetrics
	Now     func() time.Time
}

type service struct {
	cfg     *config.Config
	logg    *logger.Logger
	crm     crmClient
	tabby   tabbyGateway
	stripe  stripeGateway
	metrics *metrics.CheckoutMetrics
	now     func() time.Time
}

// NewService builds the checkout orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		cfg:     params.Config,
		logg:    params.Logger,
		crm:     params.CRM,
		tabby:   params.Tabby,
		stripe:  params.Stripe,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

func (s *service) Execute(ctx context.Context, req Request) (*Result, error) {
	req = req.withDefaults(s.now())

	amount, err := req.validate()
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithReferenceID(ctx, req.ReferenceID)
	ctx = s.logg.WithProvider(ctx, req.PaymentMethod)

	// Config errors abort before any outbound call, CRM included.
	switch req.PaymentMethod {
	case MethodStripe:
		if s.stripe == nil {
			return nil, pkgerrors.New(pkgerrors.CodeConfig, "stripe is not configured").
				WithDetails(map[string]string{"missing": config.EnvStripeSecretKey})
		}
	case MethodTabby:
		if s.tabby == nil {
			return nil, pkgerrors.New(pkgerrors.CodeConfig, "tabby is not configured").
				WithDetails(map[string]string{"missing": strings.Join([]string{
					config.EnvTabbySecretKey, config.EnvTabbyPublicKey, config.EnvTabbyMerchant,
				}, ", ")})
		}
	}

	start := s.now()
	result := &Result{PaymentMethod: req.PaymentMethod}

	contactID, baseTags := s.upsertContact(ctx, req, result)
	result.GHLContactID = contactID
	if contactID != "" {
		ctx = s.logg.WithContactID(ctx, contactID)
	}

	switch req.PaymentMethod {
	case MethodStripe:
		err = s.executeStripe(ctx, req, amount, contactID, result)
	case MethodTabby:
		err = s.executeTabby(ctx, req, amount, contactID, baseTags, result)
	}
	s.metrics.ObserveDuration(req.PaymentMethod, s.now().Sub(start))
	if err != nil {
		s.metrics.IncOutcome(req.PaymentMethod, metrics.OutcomeFailed)
		return nil, err
	}

	if result.Success {
		s.annotateContact(ctx, req, contactID, result)
	}

	return result, nil
}

// upsertContact is best-effort: failures are logged, recorded on the audit
// trail, and never abort the payment flow.
func (s *service) upsertContact(ctx context.Context, req Request, result *Result) (string, []string) {
	tags := []string{tagCheckoutStarted, s.cfg.Checkout.ProductTag, "payment-" + req.PaymentMethod}
	if s.crm == nil {
		return "", tags
	}

	first, last := splitName(req.Name)
	contactID, err := s.crm.UpsertContact(ctx, ghl.ContactParams{
		FirstName: first,
		LastName:  last,
		Email:     req.Email,
		Phone:     req.Phone,
		Tags:      tags,
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "crm_error", err.Error()), "crm contact upsert failed, continuing without contact")
		s.metrics.IncCRMFailure("upsert")
		result.CRMWarnings = append(result.CRMWarnings, fmt.Sprintf("contact upsert failed: %v", err))
		return "", tags
	}
	return contactID, tags
}

func (s *service) executeStripe(ctx context.Context, req Request, amount decimal.Decimal, contactID string, result *Result) error {
	session, err := s.stripe.CreateCheckoutSession(ctx, stripe.SessionParams{
		AmountMinor:   minorUnits(amount),
		Currency:      s.cfg.Checkout.Currency,
		ProductName:   req.ItemTitle,
		Description:   req.Description,
		CustomerEmail: req.Email,
		ReferenceID:   req.ReferenceID,
		CustomerName:  req.Name,
		CustomerPhone: req.Phone,
		ContactID:     contactID,
		SuccessURL:    appendMethodMarker(s.cfg.Redirect.SuccessURL, MethodStripe),
		CancelURL:     appendMethodMarker(s.cfg.Redirect.CancelURL, MethodStripe),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stripe session creation failed")
	}

	result.Success = true
	result.RedirectURL = session.URL
	result.SessionID = session.ID
	s.metrics.IncOutcome(MethodStripe, metrics.OutcomeCreated)
	s.logg.Info(s.logg.WithField(ctx, "session_id", session.ID), "stripe checkout session created")
	return nil
}

func (s *service) executeTabby(ctx context.Context, req Request, amount decimal.Decimal, contactID string, baseTags []string, result *Result) error {
	session, err := s.tabby.CreateCheckoutSession(ctx, tabby.CheckoutParams{
		Amount:       amount.StringFixed(2),
		Currency:     s.cfg.Checkout.Currency,
		Description:  req.Description,
		ReferenceID:  req.ReferenceID,
		BuyerName:    req.Name,
		BuyerEmail:   req.Email,
		BuyerPhone:   req.Phone,
		Address:      req.Address,
		City:         req.City,
		Zip:          req.Zip,
		ItemTitle:    req.ItemTitle,
		ItemCategory: req.ItemCategory,
		UnitPrice:    amount.StringFixed(2),
		SuccessURL:   s.cfg.Redirect.SuccessURL,
		CancelURL:    s.cfg.Redirect.CancelURL,
		FailureURL:   s.cfg.Redirect.FailureURL,
	})
	if err != nil {
		return err
	}

	result.SessionID = session.ID
	result.PaymentID = session.Payment.ID

	switch session.Status {
	case tabby.StatusCreated:
		webURL, ok := session.InstallmentsWebURL()
		if !ok {
			result.Error = "tabby session created but no installments redirect URL was returned"
			result.TabbyResponse = session.Raw
			s.metrics.IncOutcome(MethodTabby, metrics.OutcomeAmbiguous)
			s.logg.Warn(ctx, "tabby created session without installments web url")
			return nil
		}
		result.Success = true
		result.RedirectURL = webURL
		s.metrics.IncOutcome(MethodTabby, metrics.OutcomeCreated)
		s.logg.Info(s.logg.WithField(ctx, "session_id", session.ID), "tabby checkout session created")
	case tabby.StatusRejected:
		result.Error = "tabby rejected the checkout"
		result.RejectionReason = session.RejectionReason()
		s.metrics.IncOutcome(MethodTabby, metrics.OutcomeRejected)
		s.logg.Info(s.logg.WithField(ctx, "rejection_reason", result.RejectionReason), "tabby rejected checkout")
		s.tagRejection(ctx, contactID, baseTags, result)
	default:
		result.Error = fmt.Sprintf("unexpected tabby response status %q", session.Status)
		result.TabbyResponse = session.Raw
		s.metrics.IncOutcome(MethodTabby, metrics.OutcomeAmbiguous)
		s.logg.Warn(s.logg.WithField(ctx, "status", session.Status), "unexpected tabby response status")
	}
	return nil
}

// tagRejection marks the CRM contact after a Tabby rejection, best-effort.
func (s *service) tagRejection(ctx context.Context, contactID string, baseTags []string, result *Result) {
	if s.crm == nil || contactID == "" {
		return
	}
	if err := s.crm.UpdateContactTags(ctx, contactID, append(baseTags, tagTabbyRejected)); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "crm_error", err.Error()), "crm rejection tagging failed")
		s.metrics.IncCRMFailure("tags")
		result.CRMWarnings = append(result.CRMWarnings, fmt.Sprintf("rejection tagging failed: %v", err))
	}
}

// annotateContact writes the post-payment CRM note, best-effort. The payment
// session already exists; nothing here may change the response outcome.
func (s *service) annotateContact(ctx context.Context, req Request, contactID string, result *Result) {
	if s.crm == nil || contactID == "" {
		return
	}

	note := fmt.Sprintf(
		"Checkout session created via %s.\nProduct: %s\nAmount: %s %s\nOrder reference: %s\nSession ID: %s\nPayment ID: %s",
		result.PaymentMethod, req.ItemTitle, req.Amount, s.cfg.Checkout.Currency,
		req.ReferenceID, result.SessionID, result.PaymentID,
	)
	if err := s.crm.CreateNote(ctx, contactID, note); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "crm_error", err.Error()), "crm note annotation failed")
		s.metrics.IncCRMFailure("note")
		result.CRMWarnings = append(result.CRMWarnings, fmt.Sprintf("note annotation failed: %v", err))
	}
}

// appendMethodMarker adds the method=<provider> marker the redirect pages
// branch on.
func appendMethodMarker(base, method string) string {
	if base == "" {
		return base
	}
	parsed, err := url.Parse(base)
	if err != nil {
		sep := "?"
		if strings.Contains(base, "?") {
			sep = "&"
		}
		return base + sep + "method=" + method
	}
	query := parsed.Query()
	query.Set("method", method)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
