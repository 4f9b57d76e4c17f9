package checkout

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/mkhalifa/checkout-gateway/pkg/config"
	pkgerrors "github.com/mkhalifa/checkout-gateway/pkg/errors"
	"github.com/mkhalifa/checkout-gateway/pkg/ghl"
	"github.com/mkhalifa/checkout-gateway/pkg/logger"
	"github.com/mkhalifa/checkout-gateway/pkg/stripe"
	"github.com/mkhalifa/checkout-gateway/pkg/tabby"
)

type stubCRM struct {
	upsertID  string
	upsertErr error
	noteErr   error
	tagsErr   error

	upsertCalls int
	noteCalls   int
	tagCalls    int
	lastContact ghl.ContactParams
	lastNote    string
	lastTags    []string
}

func (s *stubCRM) UpsertContact(ctx context.Context, params ghl.ContactParams) (string, error) {
	s.upsertCalls++
	s.lastContact = params
	return s.upsertID, s.upsertErr
}

func (s *stubCRM) CreateNote(ctx context.Context, contactID, body string) error {
	s.noteCalls++
	s.lastNote = body
	return s.noteErr
}

func (s *stubCRM) UpdateContactTags(ctx context.Context, contactID string, tags []string) error {
	s.tagCalls++
	s.lastTags = tags
	return s.tagsErr
}

type stubTabby struct {
	session *tabby.CheckoutSession
	err     error

	calls      int
	lastParams tabby.CheckoutParams
	references []string
}

func (s *stubTabby) CreateCheckoutSession(ctx context.Context, params tabby.CheckoutParams) (*tabby.CheckoutSession, error) {
	s.calls++
	s.lastParams = params
	s.references = append(s.references, params.ReferenceID)
	return s.session, s.err
}

type stubStripe struct {
	session *stripe.CheckoutSession
	err     error

	calls      int
	lastParams stripe.SessionParams
}

func (s *stubStripe) CreateCheckoutSession(ctx context.Context, params stripe.SessionParams) (*stripe.CheckoutSession, error) {
	s.calls++
	s.lastParams = params
	return s.session, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		Checkout: config.CheckoutConfig{Currency: "AED", ProductTag: "checkout-gateway"},
		Redirect: config.RedirectConfig{
			SuccessURL: "https://shop.example/thanks",
			FailureURL: "https://shop.example/failed",
			CancelURL:  "https://shop.example/cancel",
		},
	}
}

func newTestService(t *testing.T, params ServiceParams) Service {
	t.Helper()

	if params.Config == nil {
		params.Config = testConfig()
	}
	if params.Logger == nil {
		params.Logger = logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func validRequest(method string) Request {
	return Request{
		PaymentMethod: method,
		Name:          "Sara K",
		Email:         "sara@example.com",
		Phone:         "+971500000000",
		Amount:        "150.00",
		Description:   "Consultation",
		ReferenceID:   "ord-1",
	}
}

func TestExecuteValidationFailuresMakeNoOutboundCalls(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing phone", func(r *Request) { r.Phone = "" }},
		{"missing email", func(r *Request) { r.Email = "" }},
		{"missing amount", func(r *Request) { r.Amount = "" }},
		{"zero amount", func(r *Request) { r.Amount = "0" }},
		{"negative amount", func(r *Request) { r.Amount = "-5" }},
		{"garbage amount", func(r *Request) { r.Amount = "abc" }},
		{"unknown method", func(r *Request) { r.PaymentMethod = "paypal" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crm := &stubCRM{upsertID: "contact-1"}
			tb := &stubTabby{}
			st := &stubStripe{}
			svc := newTestService(t, ServiceParams{CRM: crm, Tabby: tb, Stripe: st})

			req := validRequest(MethodTabby)
			tt.mutate(&req)

			_, err := svc.Execute(context.Background(), req)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if crm.upsertCalls+tb.calls+st.calls != 0 {
				t.Fatal("validation failure must not trigger outbound calls")
			}
		})
	}
}

func TestExecuteStripeUnconfiguredIsConfigErrorBeforeAnyCall(t *testing.T) {
	crm := &stubCRM{upsertID: "contact-1"}
	svc := newTestService(t, ServiceParams{CRM: crm, Tabby: &stubTabby{}})

	_, err := svc.Execute(context.Background(), validRequest(MethodStripe))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConfig {
		t.Fatalf("expected config error, got %v", err)
	}
	if crm.upsertCalls != 0 {
		t.Fatal("config failure must abort before the CRM upsert")
	}
}

func TestExecuteTabbyUnconfiguredIsConfigError(t *testing.T) {
	svc := newTestService(t, ServiceParams{Stripe: &stubStripe{}})

	_, err := svc.Execute(context.Background(), validRequest(MethodTabby))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConfig {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestExecuteStripeSuccess(t *testing.T) {
	crm := &stubCRM{upsertID: "contact-1"}
	st := &stubStripe{session: &stripe.CheckoutSession{ID: "cs_123", URL: "https://checkout.stripe.com/pay/cs_123"}}
	svc := newTestService(t, ServiceParams{CRM: crm, Stripe: st, Tabby: &stubTabby{}})

	result, err := svc.Execute(context.Background(), validRequest(MethodStripe))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !result.Success {
		t.Fatal("expected success")
	}
	if result.RedirectURL != "https://checkout.stripe.com/pay/cs_123" {
		t.Fatalf("unexpected redirect %q", result.RedirectURL)
	}
	if result.SessionID != "cs_123" {
		t.Fatalf("unexpected session id %q", result.SessionID)
	}
	if result.GHLContactID != "contact-1" {
		t.Fatalf("unexpected contact id %q", result.GHLContactID)
	}
	if st.lastParams.AmountMinor != 15000 {
		t.Fatalf("expected 15000 minor units, got %d", st.lastParams.AmountMinor)
	}
	if !strings.Contains(st.lastParams.SuccessURL, "method=stripe") {
		t.Fatalf("success url missing method marker: %q", st.lastParams.SuccessURL)
	}
	if crm.noteCalls != 1 {
		t.Fatalf("expected one CRM note, got %d", crm.noteCalls)
	}
	if !strings.Contains(crm.lastNote, "ord-1") || !strings.Contains(crm.lastNote, "cs_123") {
		t.Fatalf("note should reference order and session: %q", crm.lastNote)
	}
}

func TestExecuteStripeRoundsMinorUnits(t *testing.T) {
	st := &stubStripe{session: &stripe.CheckoutSession{ID: "cs_1", URL: "https://pay/x"}}
	svc := newTestService(t, ServiceParams{Stripe: st})

	req := validRequest(MethodStripe)
	req.Amount = "19.999"

	if _, err := svc.Execute(context.Background(), req); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if st.lastParams.AmountMinor != 2000 {
		t.Fatalf("19.999 must round to 2000 minor units, got %d", st.lastParams.AmountMinor)
	}
}

func TestExecuteCRMUpsertFailureDoesNotBlockPayment(t *testing.T) {
	crm := &stubCRM{upsertErr: errors.New("network down")}
	st := &stubStripe{session: &stripe.CheckoutSession{ID: "cs_1", URL: "https://pay/x"}}
	svc := newTestService(t, ServiceParams{CRM: crm, Stripe: st})

	result, err := svc.Execute(context.Background(), validRequest(MethodStripe))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Fatal("payment must succeed despite CRM failure")
	}
	if result.GHLContactID != "" {
		t.Fatalf("expected no contact id, got %q", result.GHLContactID)
	}
	if len(result.CRMWarnings) != 1 {
		t.Fatalf("expected one CRM warning, got %v", result.CRMWarnings)
	}
	if st.lastParams.ContactID != "" {
		t.Fatal("stripe metadata must not carry a contact id when upsert failed")
	}
}

func TestExecuteTabbyCreatedWithWebURL(t *testing.T) {
	session := &tabby.CheckoutSession{ID: "sess-1", Status: tabby.StatusCreated}
	session.Payment.ID = "pay-1"
	session.Configuration.AvailableProducts.Installments = []tabby.Installment{{WebURL: "https://pay/x"}}

	crm := &stubCRM{upsertID: "contact-1"}
	tb := &stubTabby{session: session}
	svc := newTestService(t, ServiceParams{CRM: crm, Tabby: tb})

	result, err := svc.Execute(context.Background(), validRequest(MethodTabby))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !result.Success {
		t.Fatal("expected success")
	}
	if result.RedirectURL != "https://pay/x" {
		t.Fatalf("unexpected redirect %q", result.RedirectURL)
	}
	if result.PaymentID != "pay-1" || result.SessionID != "sess-1" {
		t.Fatalf("unexpected ids %q/%q", result.PaymentID, result.SessionID)
	}
	if tb.lastParams.Amount != "150.00" || tb.lastParams.UnitPrice != "150.00" {
		t.Fatalf("amounts must be two-decimal strings, got %q/%q", tb.lastParams.Amount, tb.lastParams.UnitPrice)
	}
	if crm.noteCalls != 1 {
		t.Fatalf("expected one CRM note, got %d", crm.noteCalls)
	}
	if got := crm.lastContact.Tags; len(got) != 3 || got[0] != "checkout-started" || got[2] != "payment-tabby" {
		t.Fatalf("unexpected upsert tags %v", got)
	}
}

func TestExecuteTabbyCreatedWithoutWebURLIsAmbiguous(t *testing.T) {
	session := &tabby.CheckoutSession{ID: "sess-1", Status: tabby.StatusCreated, Raw: []byte(`{"status":"created"}`)}
	tb := &stubTabby{session: session}
	crm := &stubCRM{upsertID: "contact-1"}
	svc := newTestService(t, ServiceParams{CRM: crm, Tabby: tb})

	result, err := svc.Execute(context.Background(), validRequest(MethodTabby))
	if err != nil {
		t.Fatalf("ambiguous outcome must not be an error: %v", err)
	}
	if result.Success {
		t.Fatal("expected success=false")
	}
	if len(result.TabbyResponse) == 0 {
		t.Fatal("expected raw provider payload for diagnosis")
	}
	if crm.noteCalls != 0 {
		t.Fatal("no CRM note on a non-successful outcome")
	}
}

func TestExecuteTabbyRejectedTagsContact(t *testing.T) {
	session := &tabby.CheckoutSession{ID: "sess-2", Status: tabby.StatusRejected}
	session.Configuration.Products.Installments = []tabby.Installment{{RejectionReason: "risky"}}

	crm := &stubCRM{upsertID: "contact-1"}
	tb := &stubTabby{session: session}
	svc := newTestService(t, ServiceParams{CRM: crm, Tabby: tb})

	result, err := svc.Execute(context.Background(), validRequest(MethodTabby))
	if err != nil {
		t.Fatalf("rejection must not be an error: %v", err)
	}
	if result.Success {
		t.Fatal("expected success=false")
	}
	if result.RejectionReason != "risky" {
		t.Fatalf("unexpected rejection reason %q", result.RejectionReason)
	}
	if crm.tagCalls != 1 {
		t.Fatalf("expected one tag update, got %d", crm.tagCalls)
	}
	found := false
	for _, tag := range crm.lastTags {
		if tag == "tabby-rejected" {
			found = true
		}
	}
	if !found {
		t.Fatalf("tags must include tabby-rejected, got %v", crm.lastTags)
	}
}

func TestExecuteTabbyRejectionTaggingFailureIsSwallowed(t *testing.T) {
	session := &tabby.CheckoutSession{ID: "sess-2", Status: tabby.StatusRejected}
	crm := &stubCRM{upsertID: "contact-1", tagsErr: errors.New("crm down")}
	svc := newTestService(t, ServiceParams{CRM: crm, Tabby: &stubTabby{session: session}})

	result, err := svc.Execute(context.Background(), validRequest(MethodTabby))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.RejectionReason != "unknown" {
		t.Fatalf("missing reason must default to unknown, got %q", result.RejectionReason)
	}
	if len(result.CRMWarnings) != 1 {
		t.Fatalf("expected one warning, got %v", result.CRMWarnings)
	}
}

func TestExecuteNoteFailureNeverChangesOutcome(t *testing.T) {
	crm := &stubCRM{upsertID: "contact-1", noteErr: errors.New("crm hiccup")}
	st := &stubStripe{session: &stripe.CheckoutSession{ID: "cs_1", URL: "https://pay/x"}}
	svc := newTestService(t, ServiceParams{CRM: crm, Stripe: st})

	result, err := svc.Execute(context.Background(), validRequest(MethodStripe))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Fatal("note failure must not undo the payment outcome")
	}
	if len(result.CRMWarnings) != 1 {
		t.Fatalf("expected the note failure on the audit trail, got %v", result.CRMWarnings)
	}
}

func TestExecuteWithoutReferenceIDIsNotIdempotent(t *testing.T) {
	session := &tabby.CheckoutSession{ID: "sess-1", Status: tabby.StatusCreated}
	session.Configuration.AvailableProducts.Installments = []tabby.Installment{{WebURL: "https://pay/x"}}
	tb := &stubTabby{session: session}

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, ServiceParams{Tabby: tb, Now: func() time.Time {
		clock = clock.Add(time.Microsecond)
		return clock
	}})

	req := validRequest(MethodTabby)
	req.ReferenceID = ""

	for i := 0; i < 2; i++ {
		if _, err := svc.Execute(context.Background(), req); err != nil {
			t.Fatalf("Execute #%d: %v", i+1, err)
		}
	}

	// Two identical submissions open two distinct provider sessions. This is
	// the documented behavior, not a bug to fix here.
	if tb.calls != 2 {
		t.Fatalf("expected two provider sessions, got %d", tb.calls)
	}
	if tb.references[0] == tb.references[1] {
		t.Fatalf("expected distinct generated references, got %q twice", tb.references[0])
	}
}

func TestDefaultsAreApplied(t *testing.T) {
	session := &tabby.CheckoutSession{ID: "sess-1", Status: tabby.StatusCreated}
	session.Configuration.AvailableProducts.Installments = []tabby.Installment{{WebURL: "https://pay/x"}}
	tb := &stubTabby{session: session}
	crm := &stubCRM{upsertID: "contact-1"}
	svc := newTestService(t, ServiceParams{CRM: crm, Tabby: tb})

	req := Request{
		Email:  "sara@example.com",
		Phone:  "+971500000000",
		Amount: "99.5",
	}
	result, err := svc.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.PaymentMethod != MethodTabby {
		t.Fatalf("payment method should default to tabby, got %q", result.PaymentMethod)
	}
	if tb.lastParams.City != "Dubai" {
		t.Fatalf("city should default to Dubai, got %q", tb.lastParams.City)
	}
	if tb.lastParams.BuyerName != "Customer" {
		t.Fatalf("name should default to Customer, got %q", tb.lastParams.BuyerName)
	}
	if tb.lastParams.Amount != "99.50" {
		t.Fatalf("amount should be two-decimal formatted, got %q", tb.lastParams.Amount)
	}
	if !strings.HasPrefix(tb.lastParams.ReferenceID, "ord-") {
		t.Fatalf("expected generated reference, got %q", tb.lastParams.ReferenceID)
	}
	if crm.lastContact.FirstName != "Customer" || crm.lastContact.LastName != "" {
		t.Fatalf("unexpected name split %q/%q", crm.lastContact.FirstName, crm.lastContact.LastName)
	}
}
