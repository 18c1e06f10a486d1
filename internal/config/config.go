// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim; required when auth is enabled.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim; required when auth is enabled.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// InvitationTTL is how long an invitation stays redeemable (e.g. "72h").
	InvitationTTL string `mapstructure:"INVITATION_TTL"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12. Used for system key digests.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// SystemKeys is a comma-separated list of actor:bcrypt-digest pairs. A
	// request presenting a key whose digest matches may elevate to
	// superadmin under that actor id. Empty disables the escape path.
	SystemKeys string `mapstructure:"SYSTEM_KEYS"`
	// LogLevel is the zerolog level (trace, debug, info, warn, error); default info.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// OTLPEndpoint is the OTLP gRPC collector address (e.g. localhost:4317). Empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "tenantcore-auth")
	v.SetDefault("JWT_AUDIENCE", "tenantcore-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("INVITATION_TTL", "72h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SYSTEM_KEYS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if _, err := parseSystemKeys(cfg.SystemKeys); err != nil {
		return nil, fmt.Errorf("config: SYSTEM_KEYS: %w", err)
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// InviteTTL parses InvitationTTL as a time.Duration. Returns 72h if unset or invalid.
func (c *Config) InviteTTL() time.Duration {
	d, err := time.ParseDuration(c.InvitationTTL)
	if err != nil || d <= 0 {
		return 72 * time.Hour
	}
	return d
}

// SystemKeyDigests returns the actor-to-digest map parsed from SystemKeys.
// Load has already validated the format, so parse errors yield an empty map.
func (c *Config) SystemKeyDigests() map[string]string {
	if c == nil {
		return nil
	}
	m, err := parseSystemKeys(c.SystemKeys)
	if err != nil {
		return nil
	}
	return m
}

func parseSystemKeys(s string) (map[string]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		actor, digest, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(actor) == "" || strings.TrimSpace(digest) == "" {
			return nil, fmt.Errorf("entry %q must be actor:digest", pair)
		}
		out[strings.TrimSpace(actor)] = strings.TrimSpace(digest)
	}
	return out, nil
}
