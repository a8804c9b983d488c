// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :5000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL enables login throttling when set (e.g. redis://localhost:6379/0).
	RedisURL string `mapstructure:"REDIS_URL"`

	// AccessTokenSecret signs access tokens. Inline value or "file:<path>".
	AccessTokenSecret string `mapstructure:"ACCESS_TOKEN_SECRET"`
	// RefreshTokenSecret signs refresh tokens. Must differ from AccessTokenSecret.
	RefreshTokenSecret string `mapstructure:"REFRESH_TOKEN_SECRET"`
	// AccessTokenExpiry is the access token lifetime (e.g. "24h").
	AccessTokenExpiry string `mapstructure:"ACCESS_TOKEN_EXPIRY"`
	// RefreshTokenExpiry is the refresh token lifetime (e.g. "30d").
	RefreshTokenExpiry string `mapstructure:"REFRESH_TOKEN_EXPIRY"`
	// JWTIssuer is the iss claim stamped on every token.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// LoginMaxAttempts is the failed-login budget per email/IP inside LoginCooldown.
	LoginMaxAttempts int `mapstructure:"LOGIN_MAX_ATTEMPTS"`
	// LoginCooldown is the fixed window for LoginMaxAttempts (e.g. "15m").
	LoginCooldown string `mapstructure:"LOGIN_COOLDOWN"`
	// PasswordResetTTL is how long a forgot-password token stays valid.
	PasswordResetTTL string `mapstructure:"PASSWORD_RESET_TTL"`
	// InviteTTL is how long a team invitation stays valid.
	InviteTTL string `mapstructure:"INVITE_TTL"`
	// SessionPruneInterval is how often the worker deletes expired sessions, invitations and reset tokens.
	SessionPruneInterval string `mapstructure:"SESSION_PRUNE_INTERVAL"`

	// TelemetryKafkaBrokers is a comma-separated list of Kafka brokers; empty disables the Kafka producer.
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the topic auth events are written to.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group of the worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is where the worker pushes consumed events. Empty skips the push.
	LokiURL string `mapstructure:"LOKI_URL"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty installs no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext to the collector even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// TrustedProxies is a comma-separated list of proxy IPs or CIDRs. X-Forwarded-For and
	// X-Real-IP are honoured only for requests arriving from one of them. Empty trusts none.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// Env is the application environment ("development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
// Signing secrets are not required here; the API server calls RequireSecrets.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":5000")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("ACCESS_TOKEN_SECRET", "")
	v.SetDefault("REFRESH_TOKEN_SECRET", "")
	v.SetDefault("ACCESS_TOKEN_EXPIRY", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRY", "30d")
	v.SetDefault("JWT_ISSUER", "vyre-ats")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("LOGIN_MAX_ATTEMPTS", 10)
	v.SetDefault("LOGIN_COOLDOWN", "15m")
	v.SetDefault("PASSWORD_RESET_TTL", "30m")
	v.SetDefault("INVITE_TTL", "168h")
	v.SetDefault("SESSION_PRUNE_INTERVAL", "1h")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "ats-auth-events")
	v.SetDefault("KAFKA_GROUP_ID", "ats-auth-events-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "vyre-ats")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "development")

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
	if cfg.LoginMaxAttempts <= 0 {
		return nil, errors.New("config: LOGIN_MAX_ATTEMPTS must be positive")
	}
	for key, val := range map[string]string{
		"ACCESS_TOKEN_EXPIRY":  cfg.AccessTokenExpiry,
		"REFRESH_TOKEN_EXPIRY": cfg.RefreshTokenExpiry,
	} {
		if d, err := ParseDuration(val); err != nil || d <= 0 {
			return nil, fmt.Errorf("config: %s must be a positive duration, got %q", key, val)
		}
	}
	if _, err := cfg.TrustedProxyPrefixes(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// RequireSecrets resolves both signing secrets and fails when either is missing or they are equal.
// A missing secret is a broken deployment, so the server refuses to start instead of signing with an empty key.
func (c *Config) RequireSecrets() (access, refresh []byte, err error) {
	access, err = ResolveSecret(c.AccessTokenSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("config: ACCESS_TOKEN_SECRET: %w", err)
	}
	refresh, err = ResolveSecret(c.RefreshTokenSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("config: REFRESH_TOKEN_SECRET: %w", err)
	}
	if string(access) == string(refresh) {
		return nil, nil, errors.New("config: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	return access, refresh, nil
}

// ErrEmptySecret is returned when a signing secret is unset or blank.
var ErrEmptySecret = errors.New("secret is empty")

// ResolveSecret returns the secret bytes. "file:<path>" reads the secret from a file (trailing newline trimmed).
func ResolveSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if path, ok := strings.CutPrefix(s, "file:"); ok {
		b, err := os.ReadFile(strings.TrimSpace(path))
		if err != nil {
			return nil, err
		}
		s = strings.TrimSpace(string(b))
	}
	if s == "" {
		return nil, ErrEmptySecret
	}
	return []byte(s), nil
}

// ParseDuration accepts Go durations plus a whole-day suffix ("30d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func durationOr(s string, def time.Duration) time.Duration {
	d, err := ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// AccessTTL parses AccessTokenExpiry. Returns 24h if unset or invalid.
func (c *Config) AccessTTL() time.Duration { return durationOr(c.AccessTokenExpiry, 24*time.Hour) }

// RefreshTTL parses RefreshTokenExpiry. Returns 30 days if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return durationOr(c.RefreshTokenExpiry, 30*24*time.Hour)
}

// LoginCooldownDuration parses LoginCooldown. Returns 15m if unset or invalid.
func (c *Config) LoginCooldownDuration() time.Duration {
	return durationOr(c.LoginCooldown, 15*time.Minute)
}

// PasswordResetDuration parses PasswordResetTTL. Returns 30m if unset or invalid.
func (c *Config) PasswordResetDuration() time.Duration {
	return durationOr(c.PasswordResetTTL, 30*time.Minute)
}

// InviteDuration parses InviteTTL. Returns 7 days if unset or invalid.
func (c *Config) InviteDuration() time.Duration { return durationOr(c.InviteTTL, 168*time.Hour) }

// PruneInterval parses SessionPruneInterval. Returns 1h if unset or invalid.
func (c *Config) PruneInterval() time.Duration { return durationOr(c.SessionPruneInterval, time.Hour) }

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// TrustedProxyPrefixes parses TRUSTED_PROXIES. Bare addresses become single-host prefixes.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	if c == nil || strings.TrimSpace(c.TrustedProxies) == "" {
		return nil, nil
	}
	var out []netip.Prefix
	for _, p := range strings.Split(c.TrustedProxies, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.Contains(p, "/") {
			prefix, err := netip.ParsePrefix(p)
			if err != nil {
				return nil, fmt.Errorf("config: TRUSTED_PROXIES entry %q: %w", p, err)
			}
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(p)
		if err != nil {
			return nil, fmt.Errorf("config: TRUSTED_PROXIES entry %q: %w", p, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the Kafka producer is enabled (non-empty list).
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
