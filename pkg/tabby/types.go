package tabby

import "encoding/json"

// Session statuses Tabby reports on checkout creation.
const (
	StatusCreated  = "created"
	StatusRejected = "rejected"
)

// CheckoutParams carries everything needed to open a Tabby checkout session.
// Amount and UnitPrice are pre-formatted two-decimal strings.
type CheckoutParams struct {
	Amount      string
	Currency    string
	Description string
	ReferenceID string

	BuyerName  string
	BuyerEmail string
	BuyerPhone string

	Address string
	City    string
	Zip     string

	ItemTitle    string
	ItemCategory string
	UnitPrice    string

	SuccessURL string
	CancelURL  string
	FailureURL string
}

type checkoutRequest struct {
	Payment      paymentPayload `json:"payment"`
	Lang         string         `json:"lang"`
	MerchantCode string         `json:"merchant_code"`
	MerchantURLs merchantURLs   `json:"merchant_urls"`
}

type paymentPayload struct {
	Amount          string         `json:"amount"`
	Currency        string         `json:"currency"`
	Description     string         `json:"description,omitempty"`
	Buyer           buyerPayload   `json:"buyer"`
	ShippingAddress addressPayload `json:"shipping_address"`
	Order           orderPayload   `json:"order"`
}

type buyerPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type addressPayload struct {
	City    string `json:"city"`
	Address string `json:"address"`
	Zip     string `json:"zip"`
}

type orderPayload struct {
	ReferenceID string        `json:"reference_id"`
	Items       []itemPayload `json:"items"`
}

type itemPayload struct {
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Category  string `json:"category"`
}

type merchantURLs struct {
	Success string `json:"success"`
	Cancel  string `json:"cancel"`
	Failure string `json:"failure"`
}

func (p CheckoutParams) toRequest(merchantCode string) checkoutRequest {
	address := p.Address
	if address == "" {
		address = "N/A"
	}
	return checkoutRequest{
		Payment: paymentPayload{
			Amount:      p.Amount,
			Currency:    p.Currency,
			Description: p.Description,
			Buyer: buyerPayload{
				Name:  p.BuyerName,
				Email: p.BuyerEmail,
				Phone: p.BuyerPhone,
			},
			ShippingAddress: addressPayload{
				City:    p.City,
				Address: address,
				Zip:     p.Zip,
			},
			Order: orderPayload{
				ReferenceID: p.ReferenceID,
				Items: []itemPayload{{
					Title:     p.ItemTitle,
					Quantity:  1,
					UnitPrice: p.UnitPrice,
					Category:  p.ItemCategory,
				}},
			},
		},
		Lang:         "en",
		MerchantCode: merchantCode,
		MerchantURLs: merchantURLs{
			Success: p.SuccessURL,
			Cancel:  p.CancelURL,
			Failure: p.FailureURL,
		},
	}
}

// CheckoutSession is the decoded creation response plus the raw payload for
// diagnosis on ambiguous outcomes.
type CheckoutSession struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	Payment       SessionPayment       `json:"payment"`
	Configuration SessionConfiguration `json:"configuration"`
	Raw           json.RawMessage      `json:"-"`
}

type SessionPayment struct {
	ID string `json:"id"`
}

type SessionConfiguration struct {
	AvailableProducts ProductSet `json:"available_products"`
	Products          ProductSet `json:"products"`
}

type ProductSet struct {
	Installments []Installment `json:"installments"`
}

type Installment struct {
	WebURL          string `json:"web_url"`
	RejectionReason string `json:"rejection_reason"`
}

// InstallmentsWebURL returns the hosted redirect URL when the provider
// offered the installments product.
func (s *CheckoutSession) InstallmentsWebURL() (string, bool) {
	if s == nil {
		return "", false
	}
	products := s.Configuration.AvailableProducts.Installments
	if len(products) == 0 || products[0].WebURL == "" {
		return "", false
	}
	return products[0].WebURL, true
}

// RejectionReason surfaces the provider's reason on rejected sessions, or
// "unknown" when none was given.
func (s *CheckoutSession) RejectionReason() string {
	if s == nil {
		return "unknown"
	}
	products := s.Configuration.Products.Installments
	if len(products) == 0 || products[0].RejectionReason == "" {
		return "unknown"
	}
	return products[0].RejectionReason
}
