package ghl

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
	"github.com/mkhalifa/checkout-gateway/pkg/logger"
)

var (
	errAPIKeyRequired     = errors.New("ghl api key is required")
	errLocationIDRequired = errors.New("ghl location id is required")
	errLoggerRequired     = errors.New("ghl logger is required")
)

// Client wraps the GHL contacts API. Every call here is auxiliary to the
// payment flow: callers are expected to log-and-continue on errors.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	locationID string
	version    string
	logger     *logger.Logger
}

// NewClient validates the CRM credentials and builds the wrapper.
func NewClient(ctx context.Context, cfg config.GHLConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errAPIKeyRequired
	}
	if strings.TrimSpace(cfg.LocationID) == "" {
		return nil, errLocationIDRequired
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		locationID: cfg.LocationID,
		version:    cfg.Version,
		logger:     logg,
	}

	logg.Info(ctx, "ghl client initialized")
	return c, nil
}

// ContactParams describes a contact upsert.
type ContactParams struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Tags      []string
}

type contactRequest struct {
	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName,omitempty"`
	Email      string   `json:"email,omitempty"`
	Phone      string   `json:"phone"`
	LocationID string   `json:"locationId"`
	Tags       []string `json:"tags,omitempty"`
}

type contactResponse struct {
	Contact struct {
		ID string `json:"id"`
	} `json:"contact"`
}

// UpsertContact creates (or merges) a contact and returns its id.
func (c *Client) UpsertContact(ctx context.Context, params ContactParams) (string, error) {
	payload := contactRequest{
		FirstName:  params.FirstName,
		LastName:   params.LastName,
		Email:      params.Email,
		Phone:      params.Phone,
		LocationID: c.locationID,
		Tags:       params.Tags,
	}
	c.log(ctx, "request", "upsert_contact", map[string]any{"phone": params.Phone})

	var decoded contactResponse
	if err := c.do(ctx, http.MethodPost, "/contacts/", payload, &decoded); err != nil {
		c.log(ctx, "error", "upsert_contact", map[string]any{"error": err.Error()})
		return "", err
	}
	if decoded.Contact.ID == "" {
		err := errors.New("ghl upsert response missing contact id")
		c.log(ctx, "error", "upsert_contact", map[string]any{"error": err.Error()})
		return "", err
	}

	c.log(ctx, "response", "upsert_contact", map[string]any{"contact_id": decoded.Contact.ID})
	return decoded.Contact.ID, nil
}

// CreateNote attaches a freeform note to the contact.
func (c *Client) CreateNote(ctx context.Context, contactID, body string) error {
	c.log(ctx, "request", "create_note", map[string]any{"contact_id": contactID})

	payload := map[string]string{"body": body}
	if err := c.do(ctx, http.MethodPost, "/contacts/"+contactID+"/notes", payload, nil); err != nil {
		c.log(ctx, "error", "create_note", map[string]any{"error": err.Error()})
		return err
	}

	c.log(ctx, "response", "create_note", map[string]any{"contact_id": contactID})
	return nil
}

// UpdateContactTags replaces the contact's tags.
func (c *Client) UpdateContactTags(ctx context.Context, contactID string, tags []string) error {
	c.log(ctx, "request", "update_tags", map[string]any{"contact_id": contactID, "tags": tags})

	payload := map[string][]string{"tags": tags}
	if err := c.do(ctx, http.MethodPut, "/contacts/"+contactID, payload, nil); err != nil {
		c.log(ctx, "error", "update_tags", map[string]any{"error": err.Error()})
		return err
	}

	c.log(ctx, "response", "update_tags", map[string]any{"contact_id": contactID})
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode ghl payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build ghl request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Version", c.version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ghl %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read ghl response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("ghl %s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if dest != nil {
		if err := json.Unmarshal(raw, dest); err != nil {
			return fmt.Errorf("decode ghl response: %w", err)
		}
	}
	return nil
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
		c.logger.Error(ctx, fmt.Sprintf("ghl %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("ghl %s", phase))
	}
}
