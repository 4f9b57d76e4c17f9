package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/mkhalifa/checkout-gateway/pkg/errors"
)

// Payment methods the gateway dispatches on.
const (
	MethodTabby  = "tabby"
	MethodStripe = "stripe"
)

const (
	defaultName         = "Customer"
	defaultCity         = "Dubai"
	defaultCountry      = "AE"
	defaultZip          = "00000"
	defaultItemTitle    = "Checkout item"
	defaultItemCategory = "service"
)

// Request is a checkout form submission. It lives for one call and is never
// persisted.
type Request struct {
	PaymentMethod string
	Name          string
	Email         string
	Phone         string
	Amount        string
	Description   string
	ReferenceID   string
	ItemTitle     string
	ItemCategory  string
	Address       string
	City          string
	Zip           string
	Country       string
}

// withDefaults fills missing optional fields. The fallback reference id is
// time-derived and not collision-proof under concurrent submissions.
func (r Request) withDefaults(now time.Time) Request {
	if r.PaymentMethod == "" {
		r.PaymentMethod = MethodTabby
	}
	r.PaymentMethod = strings.ToLower(strings.TrimSpace(r.PaymentMethod))

	if strings.TrimSpace(r.Name) == "" {
		r.Name = defaultName
	}
	if strings.TrimSpace(r.City) == "" {
		r.City = defaultCity
	}
	if strings.TrimSpace(r.Country) == "" {
		r.Country = defaultCountry
	}
	if strings.TrimSpace(r.Zip) == "" {
		r.Zip = defaultZip
	}
	if strings.TrimSpace(r.ItemCategory) == "" {
		r.ItemCategory = defaultItemCategory
	}
	if strings.TrimSpace(r.ItemTitle) == "" {
		if desc := strings.TrimSpace(r.Description); desc != "" {
			r.ItemTitle = desc
		} else {
			r.ItemTitle = defaultItemTitle
		}
	}
	if strings.TrimSpace(r.ReferenceID) == "" {
		r.ReferenceID = fmt.Sprintf("ord-%d", now.UnixNano())
	}
	return r
}

// validate enforces the request invariants: non-empty phone and email, and a
// positive decimal amount. It returns the parsed amount so callers never
// re-parse.
func (r Request) validate() (decimal.Decimal, error) {
	details := map[string]string{}

	if strings.TrimSpace(r.Phone) == "" {
		details["phone"] = "is required"
	}
	if strings.TrimSpace(r.Email) == "" {
		details["email"] = "is required"
	}

	var amount decimal.Decimal
	raw := strings.TrimSpace(r.Amount)
	if raw == "" {
		details["amount"] = "is required"
	} else {
		parsed, err := decimal.NewFromString(raw)
		switch {
		case err != nil:
			details["amount"] = "must be a decimal number"
		case !parsed.IsPositive():
			details["amount"] = "must be greater than zero"
		default:
			amount = parsed
		}
	}

	switch r.PaymentMethod {
	case MethodTabby, MethodStripe:
	default:
		details["payment_method"] = fmt.Sprintf("must be %q or %q", MethodTabby, MethodStripe)
	}

	if len(details) > 0 {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout request").WithDetails(details)
	}
	return amount, nil
}

// splitName separates a free-form name into first and last parts.
func splitName(name string) (string, string) {
	parts := strings.Fields(strings.TrimSpace(name))
	if len(parts) == 0 {
		return defaultName, ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// minorUnits converts a decimal amount into rounded minor units,
// so 19.999 becomes 2000 rather than a truncated 1999.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
