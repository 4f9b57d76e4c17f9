package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names recognized by the gateway.
const (
	EnvAppEnv          = "APP_ENV"
	EnvPort            = "PORT"
	EnvTabbySecretKey  = "TABBY_SECRET_KEY"
	EnvTabbyPublicKey  = "TABBY_PUBLIC_KEY"
	EnvTabbyMerchant   = "TABBY_MERCHANT_CODE"
	EnvStripeSecretKey = "STRIPE_SECRET_KEY"
	EnvSuccessURL      = "SUCCESS_URL"
	EnvFailureURL      = "FAILURE_URL"
	EnvCancelURL       = "CANCEL_URL"
	EnvGHLAPIKey       = "GHL_API_KEY"
	EnvGHLLocationID   = "GHL_LOCATION_ID"
)

type Config struct {
	App      AppConfig
	Tabby    TabbyConfig
	Stripe   StripeConfig
	GHL      GHLConfig
	Redirect RedirectConfig
	Checkout CheckoutConfig
}

// Load reads the environment once and validates provider wiring eagerly.
// A provider with all of its keys absent is disabled, not an error.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"APP_ENV" default:"dev"`
	Port         string `envconfig:"PORT" default:"8080"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type TabbyConfig struct {
	SecretKey    string `envconfig:"TABBY_SECRET_KEY"`
	PublicKey    string `envconfig:"TABBY_PUBLIC_KEY"`
	MerchantCode string `envconfig:"TABBY_MERCHANT_CODE"`
	BaseURL      string `envconfig:"TABBY_BASE_URL" default:"https://api.tabby.ai"`
}

// Enabled reports whether every Tabby credential is present.
func (t TabbyConfig) Enabled() bool {
	return t.SecretKey != "" && t.PublicKey != "" && t.MerchantCode != ""
}

func (t TabbyConfig) missingKeys() []string {
	var missing []string
	if t.SecretKey == "" {
		missing = append(missing, EnvTabbySecretKey)
	}
	if t.PublicKey == "" {
		missing = append(missing, EnvTabbyPublicKey)
	}
	if t.MerchantCode == "" {
		missing = append(missing, EnvTabbyMerchant)
	}
	return missing
}

type StripeConfig struct {
	SecretKey string `envconfig:"STRIPE_SECRET_KEY"`
}

func (s StripeConfig) Enabled() bool {
	return s.SecretKey != ""
}

type GHLConfig struct {
	APIKey     string `envconfig:"GHL_API_KEY"`
	LocationID string `envconfig:"GHL_LOCATION_ID"`
	BaseURL    string `envconfig:"GHL_BASE_URL" default:"https://services.leadconnectorhq.com"`
	Version    string `envconfig:"GHL_API_VERSION" default:"2021-07-28"`
}

// Enabled reports whether CRM integration is configured. Absence disables the
// CRM legs silently, it is never an error.
func (g GHLConfig) Enabled() bool {
	return g.APIKey != "" && g.LocationID != ""
}

type RedirectConfig struct {
	SuccessURL string `envconfig:"SUCCESS_URL"`
	FailureURL string `envconfig:"FAILURE_URL"`
	CancelURL  string `envconfig:"CANCEL_URL"`
}

type CheckoutConfig struct {
	Currency   string `envconfig:"CHECKOUT_CURRENCY" default:"AED"`
	ProductTag string `envconfig:"CHECKOUT_PRODUCT_TAG" default:"checkout-gateway"`
}

// Validate fails fast on half-configured integrations. Fully absent provider
// keys leave the provider disabled and are reported only at attempted use.
func (c *Config) Validate() error {
	var errs error

	if missing := c.Tabby.missingKeys(); len(missing) > 0 && len(missing) < 3 {
		errs = multierr.Append(errs, fmt.Errorf("tabby partially configured, missing %s", strings.Join(missing, ", ")))
	}

	if partial := c.GHL.APIKey != "" || c.GHL.LocationID != ""; partial && !c.GHL.Enabled() {
		errs = multierr.Append(errs, fmt.Errorf("ghl requires both %s and %s", EnvGHLAPIKey, EnvGHLLocationID))
	}

	if c.Stripe.Enabled() {
		if c.Redirect.SuccessURL == "" {
			errs = multierr.Append(errs, fmt.Errorf("stripe enabled but %s is unset", EnvSuccessURL))
		}
		if c.Redirect.CancelURL == "" {
			errs = multierr.Append(errs, fmt.Errorf("stripe enabled but %s is unset", EnvCancelURL))
		}
	}

	if c.Tabby.Enabled() {
		if c.Redirect.SuccessURL == "" {
			errs = multierr.Append(errs, fmt.Errorf("tabby enabled but %s is unset", EnvSuccessURL))
		}
		if c.Redirect.FailureURL == "" {
			errs = multierr.Append(errs, fmt.Errorf("tabby enabled but %s is unset", EnvFailureURL))
		}
		if c.Redirect.CancelURL == "" {
			errs = multierr.Append(errs, fmt.Errorf("tabby enabled but %s is unset", EnvCancelURL))
		}
	}

	return errs
}
