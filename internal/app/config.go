package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (DRYGO_ prefix), flags, or YAML config files.
type Config struct {
	Addr             string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL      string `usage:"PostgreSQL connection URL (DRYGO_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL         string `usage:"Redis connection URL for the cart store (DRYGO_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	CredentialPepper string `usage:"HMAC pepper for credential hashing (DRYGO_CREDENTIAL_PEPPER)" flag:"credential-pepper"`

	Pricing   PricingConfig
	Twilio    TwilioConfig
	RateLimit RateLimitConfig `env:"RATE_LIMIT"`
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// PricingConfig holds the checkout pricing constants.
type PricingConfig struct {
	FreeShippingThreshold float64 `default:"250"  usage:"Subtotal at which shipping becomes free" flag:"free-shipping-threshold"`
	ShippingFee           float64 `default:"49"   usage:"Flat shipping fee below the threshold" flag:"shipping-fee"`
	TaxRate               float64 `default:"0.05" usage:"GST rate applied to the discounted subtotal" flag:"tax-rate"`
}

// TwilioConfig holds the WhatsApp notification credentials. Notifications
// are skipped when AccountSID or AuthToken is empty.
type TwilioConfig struct {
	AccountSID string `usage:"Twilio account SID" flag:"twilio-sid"`
	AuthToken  string `usage:"Twilio auth token" flag:"twilio-token"`
	From       string `default:"whatsapp:+14155238886" usage:"Twilio WhatsApp sender" flag:"twilio-from"`
	To         string `usage:"Business WhatsApp number for order alerts" flag:"twilio-to"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" env:"MAX"    usage:"Max requests per window"`
	Window time.Duration `default:"1m"  env:"WINDOW" usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "DRYGO",
		Files:     []string{"config.yaml", "/etc/drygo/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set DRYGO_DATABASE_URL or DATABASE_URL")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("redis URL is required: set DRYGO_REDIS_URL or REDIS_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's DRYGO_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.RedisURL == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.RedisURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
