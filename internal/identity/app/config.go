package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mantenix/identity/internal/identity/service"
)

// Config is read entirely from the environment. Defaults match a local dev
// setup with an in-process sqlite store and log-only mail delivery.
type Config struct {
	Service string
	Version string
	Env     string
	Port    int

	LogLevel  string
	LogFormat string

	// DBDriver is "sqlite" or "postgres".
	DBDriver string
	DBDSN    string

	Issuer     string
	SessionTTL time.Duration
	PepperPath string

	// InviteTTL is how long a fresh invitation stays valid.
	InviteTTL time.Duration

	// CallbackBaseURL is the public origin embedded in invitation links.
	CallbackBaseURL string

	// MailRelayURL enables the HTTP relay mailer; empty means log-only.
	MailRelayURL     string
	MailRelayTimeout time.Duration

	// Invitation creation limit (fixed window).
	InviteLimitMax    int
	InviteLimitWindow time.Duration
	// InviteLimitScope is service.KeyScopeGlobal or service.KeyScopePerAdmin.
	InviteLimitScope string

	// Login attempt limit (fixed window, keyed per email).
	AuthLimitMax    int
	AuthLimitWindow time.Duration

	SweepInterval time.Duration

	// First-boot admin account. Empty email disables seeding; an empty
	// password gets a generated one logged at startup.
	SeedAdminEmail    string
	SeedAdminPassword string

	ShutdownGrace time.Duration
}

// LoadConfig builds the configuration from environment variables.
func LoadConfig() (Config, error) {
	cfg := Config{
		Service: "identity",
		Version: getEnvOrDefault("IDENTITY_VERSION", "dev"),
		Env:     getEnvOrDefault("IDENTITY_ENV", "dev"),
		Port:    getEnvIntOrDefault("IDENTITY_PORT", 8080),

		LogLevel:  getEnvOrDefault("IDENTITY_LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("IDENTITY_LOG_FORMAT", "json"),

		DBDriver: getEnvOrDefault("IDENTITY_DB_DRIVER", "sqlite"),
		DBDSN:    getEnvOrDefault("IDENTITY_DB_DSN", "file:identity.db?cache=shared"),

		Issuer:     getEnvOrDefault("IDENTITY_ISSUER", "identity"),
		SessionTTL: getEnvDurationOrDefault("IDENTITY_SESSION_TTL", 12*time.Hour),
		PepperPath: os.Getenv("IDENTITY_PEPPER_PATH"),

		InviteTTL:       getEnvDurationOrDefault("IDENTITY_INVITE_TTL", 168*time.Hour),
		CallbackBaseURL: getEnvOrDefault("IDENTITY_CALLBACK_BASE_URL", "http://localhost:3000"),

		MailRelayURL:     os.Getenv("IDENTITY_MAIL_RELAY_URL"),
		MailRelayTimeout: getEnvDurationOrDefault("IDENTITY_MAIL_RELAY_TIMEOUT", 10*time.Second),

		InviteLimitMax:    getEnvIntOrDefault("IDENTITY_INVITE_LIMIT_MAX", 3),
		InviteLimitWindow: getEnvDurationOrDefault("IDENTITY_INVITE_LIMIT_WINDOW", 15*time.Minute),
		InviteLimitScope:  getEnvOrDefault("IDENTITY_INVITE_LIMIT_SCOPE", service.KeyScopeGlobal),

		AuthLimitMax:    getEnvIntOrDefault("IDENTITY_AUTH_LIMIT_MAX", 5),
		AuthLimitWindow: getEnvDurationOrDefault("IDENTITY_AUTH_LIMIT_WINDOW", 15*time.Minute),

		SweepInterval: getEnvDurationOrDefault("IDENTITY_SWEEP_INTERVAL", 5*time.Minute),

		SeedAdminEmail:    os.Getenv("IDENTITY_SEED_ADMIN_EMAIL"),
		SeedAdminPassword: os.Getenv("IDENTITY_SEED_ADMIN_PASSWORD"),

		ShutdownGrace: getEnvDurationOrDefault("IDENTITY_SHUTDOWN_GRACE", 10*time.Second),
	}

	switch cfg.DBDriver {
	case "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("config: unknown db driver %q", cfg.DBDriver)
	}

	switch cfg.InviteLimitScope {
	case service.KeyScopeGlobal, service.KeyScopePerAdmin:
	default:
		return Config{}, fmt.Errorf("config: unknown invite limit scope %q", cfg.InviteLimitScope)
	}

	return cfg, nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDurationOrDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
