package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendPostgres = "postgres"
	BackendLocal    = "local"
)

type Config struct {
	Port                     string        `mapstructure:"PORT"`
	Env                      string        `mapstructure:"ENV"`
	DatabaseURL              string        `mapstructure:"DATABASE_URL"`
	DBMaxConns               int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns               int32         `mapstructure:"DB_MIN_CONNS"`
	StorageBackend           string        `mapstructure:"STORAGE_BACKEND"`
	LocalStorePath           string        `mapstructure:"LOCAL_STORE_PATH"`
	AuthSigningKey           string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthTokenTTL             time.Duration `mapstructure:"AUTH_TOKEN_TTL"`
	OAuthIssuer              string        `mapstructure:"OAUTH_ISSUER"`
	OAuthClientID            string        `mapstructure:"OAUTH_CLIENT_ID"`
	RedisURL                 string        `mapstructure:"REDIS_URL"`
	CORSOrigins              []string      `mapstructure:"CORS_ORIGINS"`
	PHIEncryptionKey         string        `mapstructure:"PHI_ENCRYPTION_KEY"`
	RateLimitRPS             float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst           int64         `mapstructure:"RATE_LIMIT_BURST"`
	KafkaBrokers             []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic               string        `mapstructure:"KAFKA_TOPIC"`
	AlertDigestEnabled       bool          `mapstructure:"ALERT_DIGEST_ENABLED"`
	AlertDigestAt            string        `mapstructure:"ALERT_DIGEST_AT"`
	PrescriptionValidityDays int           `mapstructure:"PRESCRIPTION_VALIDITY_DAYS"`
	PrescriptionWarningDays  int           `mapstructure:"PRESCRIPTION_WARNING_DAYS"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"STORAGE_BACKEND", "LOCAL_STORE_PATH",
	"AUTH_SIGNING_KEY", "AUTH_TOKEN_TTL", "OAUTH_ISSUER", "OAUTH_CLIENT_ID",
	"REDIS_URL", "CORS_ORIGINS", "PHI_ENCRYPTION_KEY",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"KAFKA_BROKERS", "KAFKA_TOPIC",
	"ALERT_DIGEST_ENABLED", "ALERT_DIGEST_AT",
	"PRESCRIPTION_VALIDITY_DAYS", "PRESCRIPTION_WARNING_DAYS",
}

// Load reads configuration from the environment. A .env file in the working
// directory, when present, is loaded into the environment first; variables
// already set win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("STORAGE_BACKEND", BackendPostgres)
	v.SetDefault("LOCAL_STORE_PATH", "medsys.json")
	v.SetDefault("AUTH_TOKEN_TTL", "24h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("KAFKA_TOPIC", "medsys.events")
	v.SetDefault("ALERT_DIGEST_ENABLED", false)
	v.SetDefault("ALERT_DIGEST_AT", "08:00")
	v.SetDefault("PRESCRIPTION_VALIDITY_DAYS", 60)
	v.SetDefault("PRESCRIPTION_WARNING_DAYS", 7)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers, v.GetString("KAFKA_BROKERS"))
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))

	return cfg, nil
}

// splitList accepts either an already decoded list or a comma separated
// environment value. Entries are trimmed and blanks dropped.
func splitList(decoded []string, raw string) []string {
	parts := decoded
	if len(parts) == 0 {
		parts = []string{raw}
	}
	var out []string
	for _, entry := range parts {
		for _, part := range strings.Split(entry, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) UsesLocalStore() bool {
	return c.StorageBackend == BackendLocal
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND is %q", BackendPostgres)
		}
	case BackendLocal:
		if c.LocalStorePath == "" {
			return fmt.Errorf("LOCAL_STORE_PATH is required when STORAGE_BACKEND is %q", BackendLocal)
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendLocal, c.StorageBackend)
	}

	if !c.IsDev() && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 characters outside development")
	}
	if c.AuthTokenTTL <= 0 {
		return fmt.Errorf("AUTH_TOKEN_TTL must be positive")
	}
	if c.OAuthIssuer != "" && c.OAuthClientID == "" {
		return fmt.Errorf("OAUTH_CLIENT_ID is required when OAUTH_ISSUER is set")
	}

	if c.PHIEncryptionKey != "" {
		keyBytes, err := hex.DecodeString(c.PHIEncryptionKey)
		if err != nil {
			return fmt.Errorf("PHI_ENCRYPTION_KEY is not valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("PHI_ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(keyBytes))
		}
	}

	if c.PrescriptionValidityDays <= 0 {
		return fmt.Errorf("PRESCRIPTION_VALIDITY_DAYS must be positive")
	}
	if c.PrescriptionWarningDays < 0 {
		return fmt.Errorf("PRESCRIPTION_WARNING_DAYS must not be negative")
	}
	if c.AlertDigestEnabled {
		if _, err := time.Parse("15:04", c.AlertDigestAt); err != nil {
			return fmt.Errorf("ALERT_DIGEST_AT must be HH:MM: %w", err)
		}
	}
	return nil
}

// PHIKey returns the decoded encryption key, or nil when none is configured.
func (c *Config) PHIKey() []byte {
	if c.PHIEncryptionKey == "" {
		return nil
	}
	key, err := hex.DecodeString(c.PHIEncryptionKey)
	if err != nil {
		return nil
	}
	return key
}
