// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// PublicURL is the externally reachable base URL used in email links (e.g. https://titan.example.com).
	PublicURL string `mapstructure:"PUBLIC_URL"`
	// DatabaseURL is the Postgres DSN. Required when StoreDriver is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// StoreDriver selects the repository backend: postgres or memory.
	StoreDriver string `mapstructure:"STORE_DRIVER"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// SessionTTLRaw is the login session lifetime (e.g. "168h").
	SessionTTLRaw string `mapstructure:"SESSION_TTL"`
	// InvitationTTLRaw is how long a project invitation link stays valid.
	InvitationTTLRaw string `mapstructure:"INVITATION_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// CookieKey encrypts flash cookies; at least 32 bytes.
	CookieKey    string `mapstructure:"COOKIE_KEY"`
	CookieSecure bool   `mapstructure:"COOKIE_SECURE"`

	// EmailSender is the From address of invitation and assignment mail.
	EmailSender     string `mapstructure:"EMAIL_SENDER"`
	MailgunDomain   string `mapstructure:"MAILGUN_DOMAIN"`
	MailgunAPIKey   string `mapstructure:"MAILGUN_API_KEY"`
	AuthzPolicyFile string `mapstructure:"AUTHZ_POLICY_FILE"`

	SentryDSN string `mapstructure:"SENTRY_DSN"`
	// OTLPEndpoint enables trace export when set (e.g. localhost:4317).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("PUBLIC_URL", "http://localhost:8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "titan-auth")
	v.SetDefault("JWT_AUDIENCE", "titan-web")
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("INVITATION_TTL", "168h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("COOKIE_KEY", "")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("EMAIL_SENDER", "titan@localhost")
	v.SetDefault("MAILGUN_DOMAIN", "")
	v.SetDefault("MAILGUN_API_KEY", "")
	v.SetDefault("AUTHZ_POLICY_FILE", "")
	v.SetDefault("SENTRY_DSN", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "development")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: DATABASE_URL must be set when STORE_DRIVER=postgres")
		}
	case StoreDriverMemory:
		if cfg.Env == "production" {
			return nil, errors.New("config: STORE_DRIVER=memory is not allowed when APP_ENV=production")
		}
	default:
		return nil, errors.New("config: STORE_DRIVER must be postgres or memory")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.CookieKey != "" && len(cfg.CookieKey) < 32 {
		return nil, errors.New("config: COOKIE_KEY must be at least 32 bytes")
	}
	if cfg.Env == "production" && cfg.CookieKey == "" {
		return nil, errors.New("config: COOKIE_KEY must be set when APP_ENV=production")
	}

	return &cfg, nil
}

// SessionTTL parses SessionTTLRaw as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	return parseTTL(c.SessionTTLRaw, 168*time.Hour)
}

// InvitationTTL parses InvitationTTLRaw. Returns 168h if unset or invalid.
func (c *Config) InvitationTTL() time.Duration {
	return parseTTL(c.InvitationTTLRaw, 168*time.Hour)
}

// MailgunEnabled reports whether outbound mail goes through Mailgun rather than the log sender.
func (c *Config) MailgunEnabled() bool {
	return c != nil && c.MailgunDomain != "" && c.MailgunAPIKey != ""
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

func parseTTL(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
