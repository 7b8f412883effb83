package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration, read from the environment.
type Config struct {
	AppName   string `env:"APP_NAME" envDefault:"RazorHost"`
	Database  DatabaseConfig
	HTTP      HTTPConfig
	GRPC      GRPCConfig
	Auth      AuthConfig
	Log       LogConfig
	Review    ReviewConfig
	Cpanel    CpanelConfig
	Telemetry TelemetryConfig
	Seed      SeedConfig
}

// DatabaseConfig selects the SQL driver and DSN.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite3"` // sqlite3 | pgx | mysql
	DSN    string `env:"DB_DSN"`
	Path   string `env:"DB_PATH" envDefault:"app.db"` // SQLite file when DB_DSN is empty
}

// Source returns the DSN to open.
func (d DatabaseConfig) Source() string {
	if d.DSN != "" {
		return d.DSN
	}
	return d.Path
}

type HTTPConfig struct {
	Address        string        `env:"HTTP_ADDRESS" envDefault:":8080"`
	ReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	TrustProxy     bool          `env:"HTTP_TRUST_PROXY" envDefault:"false"`
	AllowedOrigins []string      `env:"HTTP_ALLOWED_ORIGINS" envSeparator:","`
}

type GRPCConfig struct {
	Address string `env:"GRPC_ADDRESS" envDefault:":50051"`
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"` // text | json | logfmt
}

// ReviewConfig configures the optional LLM used for subdomain review and
// ticket prioritisation. Rule-based reviewers are used when APIKey is empty.
type ReviewConfig struct {
	OpenAIAPIKey string        `env:"OPENAI_API_KEY"`
	Model        string        `env:"REVIEW_MODEL" envDefault:"gpt-4o-mini"`
	Timeout      time.Duration `env:"REVIEW_TIMEOUT" envDefault:"10s"`
}

type CpanelConfig struct {
	Timeout            time.Duration `env:"CPANEL_TIMEOUT" envDefault:"15s"`
	InsecureSkipVerify bool          `env:"CPANEL_INSECURE_SKIP_VERIFY" envDefault:"false"`
}

// TelemetryConfig enables OTLP trace export when Endpoint is set.
type TelemetryConfig struct {
	Endpoint    string `env:"OTEL_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"web-hosting-portal"`
}

// SeedConfig holds the bootstrap admin credentials used by `seed`.
type SeedConfig struct {
	AdminEmail    string `env:"SEED_ADMIN_EMAIL" envDefault:"admin@razorhost.xyz"`
	AdminPassword string `env:"SEED_ADMIN_PASSWORD"`
}

const devJWTSecret = "dev-secret-change-me"

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Load loads configuration from the environment. JWT_SECRET is required.
func Load() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but falls back to a fixed JWT secret.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = devJWTSecret
	}
	return cfg, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	dsn := c.Database.Path
	if c.Database.DSN != "" {
		dsn = "*** (masked) ***"
	}
	review := "rules"
	if c.Review.OpenAIAPIKey != "" {
		review = "openai:" + c.Review.Model
	}
	return fmt.Sprintf("Config{App: %s, DB: %s %s, HTTP: %s, gRPC: %s, Review: %s, Auth: *** (masked) ***}",
		c.AppName, c.Database.Driver, dsn, c.HTTP.Address, c.GRPC.Address, review)
}
