package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`

	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Stripe settings. The secret key and webhook secret may be left empty
	// and resolved from Secret Manager at startup instead (see
	// STRIPE_SECRETS_FROM_SECRET_MANAGER).
	StripeSecretKey                string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret            string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripePriceMonthly             string `envconfig:"STRIPE_PRICE_MONTHLY"`
	StripePriceAnnual              string `envconfig:"STRIPE_PRICE_ANNUAL"`
	StripePortalReturnURL          string `envconfig:"STRIPE_PORTAL_RETURN_URL" default:"http://localhost:3000/dashboard"`
	StripeSecretsFromSecretManager bool   `envconfig:"STRIPE_SECRETS_FROM_SECRET_MANAGER" default:"false"`
	GCPProjectID                   string `envconfig:"GCP_PROJECT_ID"`

	// Access gate auto-refresh policy: how many times Watch re-syncs
	// before giving up, and how long it waits between attempts.
	AccessSyncRetryAttempts    int `envconfig:"ACCESS_SYNC_RETRY_ATTEMPTS" default:"3"`
	AccessSyncRetryIntervalSec int `envconfig:"ACCESS_SYNC_RETRY_INTERVAL_SEC" default:"3"`

	// Webhook event IDs are remembered for dedupe this long.
	WebhookDedupeTTLHours int `envconfig:"WEBHOOK_DEDUPE_TTL_HOURS" default:"24"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
