package tabby

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mkhalifa/checkout-gateway/pkg/config"
	pkgerrors "github.com/mkhalifa/checkout-gateway/pkg/errors"
	"github.com/mkhalifa/checkout-gateway/pkg/logger"
)

const checkoutPath = "/api/v2/checkout"

var (
	errSecretKeyRequired    = errors.New("tabby secret key is required")
	errPublicKeyRequired    = errors.New("tabby public key is required")
	errMerchantCodeRequired = errors.New("tabby merchant code is required")
	errLoggerRequired       = errors.New("tabby logger is required")
)

// Client calls Tabby's v2 checkout API with centralized auth, logging, and
// error mapping.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	secretKey    string
	publicKey    string
	merchantCode string
	logger       *logger.Logger
}

// NewClient validates the Tabby credentials and builds the wrapper.
func NewClient(ctx context.Context, cfg config.TabbyConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errSecretKeyRequired
	}
	if strings.TrimSpace(cfg.PublicKey) == "" {
		return nil, errPublicKeyRequired
	}
	if strings.TrimSpace(cfg.MerchantCode) == "" {
		return nil, errMerchantCodeRequired
	}

	c := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:    cfg.SecretKey,
		publicKey:    cfg.PublicKey,
		merchantCode: cfg.MerchantCode,
		logger:       logg,
	}

	logg.Info(ctx, "tabby client initialized")
	return c, nil
}

// MerchantCode returns the configured merchant code.
func (c *Client) MerchantCode() string {
	if c == nil {
		return ""
	}
	return c.merchantCode
}

// CreateCheckoutSession posts a checkout payload and returns the decoded
// session. Transport and decode failures return an error; business-level
// rejection does not, callers inspect the session status instead.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	payload := params.toRequest(c.merchantCode)
	c.log(ctx, "request", "create_checkout", map[string]any{
		"reference_id": params.ReferenceID,
		"amount":       params.Amount,
		"currency":     params.Currency,
	})

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode tabby payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+checkoutPath, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build tabby request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.publicKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, "error", "create_checkout", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "tabby checkout call failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log(ctx, "error", "create_checkout", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read tabby response")
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.log(ctx, "error", "create_checkout", map[string]any{
			"error":       fmt.Sprintf("tabby returned %d", resp.StatusCode),
			"status_code": resp.StatusCode,
		})
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("tabby returned HTTP %d", resp.StatusCode)).
			WithDetails(map[string]any{"body": string(raw)})
	}

	var session CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		c.log(ctx, "error", "create_checkout", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode tabby response").
			WithDetails(map[string]any{"body": string(raw)})
	}
	session.Raw = json.RawMessage(raw)

	c.log(ctx, "response", "create_checkout", map[string]any{
		"session_id": session.ID,
		"status":     session.Status,
	})
	return &session, nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("tabby %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("tabby %s", phase))
	}
}
