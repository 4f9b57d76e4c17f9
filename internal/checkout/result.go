package checkout

import "encoding/json"

// Result is the business outcome of one checkout orchestration. HTTP status
// is decoupled from it: rejected and ambiguous provider outcomes still ship
// with 200, and callers branch on Success.
type Result struct {
	Success         bool            `json:"success"`
	PaymentMethod   string          `json:"payment_method"`
	RedirectURL     string          `json:"redirect_url,omitempty"`
	PaymentID       string          `json:"payment_id,omitempty"`
	SessionID       string          `json:"session_id,omitempty"`
	GHLContactID    string          `json:"ghl_contact_id,omitempty"`
	Error           string          `json:"error,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	TabbyResponse   json.RawMessage `json:"tabby_response,omitempty"`

	// CRMWarnings is the audit trail of swallowed best-effort CRM failures.
	CRMWarnings []string `json:"crm_warnings,omitempty"`
}
