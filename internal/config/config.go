package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	Port           string   `envconfig:"PORT" default:"8080"`
	Env            string   `envconfig:"ENV" default:"development"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173"`
	LogLevel       string   `envconfig:"LOG_LEVEL" default:"info"`
	DefaultLocale  string   `envconfig:"DEFAULT_LOCALE" default:"en"`

	Mongo  MongoConfig  `ignored:"true"`
	Auth   AuthConfig   `ignored:"true"`
	Redis  RedisConfig  `ignored:"true"`
	Mail   MailConfig   `ignored:"true"`
	Gemini GeminiConfig `ignored:"true"`
}

// MongoConfig configures the shared document database client
type MongoConfig struct {
	URI            string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	ConnectTimeout time.Duration `envconfig:"MONGO_CONNECT_TIMEOUT" default:"10s"`
	MaxPoolSize    uint64        `envconfig:"MONGO_MAX_POOL_SIZE" default:"100"`
	// Tenants is the allow-list of tenant database names
	Tenants []string `envconfig:"TENANTS"`
	// SystemDatabase holds user profiles; it is never a tenant
	SystemDatabase string `envconfig:"MONGO_SYSTEM_DATABASE" default:"crm_system"`
}

// AuthMode selects how session tokens are verified
type AuthMode string

const (
	AuthModeLocal AuthMode = "local"
	AuthModeOIDC  AuthMode = "oidc"
	AuthModeNone  AuthMode = "none"
)

// AuthConfig configures identity and session verification
type AuthConfig struct {
	Mode            AuthMode      `envconfig:"AUTH_MODE" default:"local"`
	JWTSecret       string        `envconfig:"JWT_SECRET"`
	TokenTTL        time.Duration `envconfig:"JWT_TTL" default:"24h"`
	OIDCIssuer      string        `envconfig:"OIDC_ISSUER"`
	VerificationTTL time.Duration `envconfig:"VERIFICATION_CODE_TTL" default:"15m"`
	ResetTTL        time.Duration `envconfig:"PASSWORD_RESET_TTL" default:"1h"`
	RateLimit       float64       `envconfig:"AUTH_RATE_LIMIT" default:"5"` // requests per second per client
	RateBurst       int           `envconfig:"AUTH_RATE_BURST" default:"10"`
}

// RedisConfig configures the one-time code store. Empty Addr keeps codes in memory.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// MailMode selects the mail transport
type MailMode string

const (
	MailModeLog MailMode = "log"
	MailModeSES MailMode = "ses"
)

// MailConfig configures outgoing e-mail
type MailConfig struct {
	Mode       MailMode `envconfig:"MAIL_MODE" default:"log"`
	From       string   `envconfig:"MAIL_FROM" default:"no-reply@localhost"`
	Region     string   `envconfig:"SES_REGION" default:"eu-central-1"`
	Endpoint   string   `envconfig:"SES_ENDPOINT"` // local SES emulator
	AppBaseURL string   `envconfig:"APP_BASE_URL" default:"http://localhost:5173"`
}

// GeminiConfig holds the static generation parameters of the chat assistant
type GeminiConfig struct {
	APIKey          string        `envconfig:"GEMINI_API_KEY"`
	BaseURL         string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	Model           string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	Temperature     float64       `envconfig:"GEMINI_TEMPERATURE" default:"0.7"`
	TopP            float64       `envconfig:"GEMINI_TOP_P" default:"0.95"`
	TopK            int           `envconfig:"GEMINI_TOP_K" default:"40"`
	MaxOutputTokens int           `envconfig:"GEMINI_MAX_OUTPUT_TOKENS" default:"1024"`
	Timeout         time.Duration `envconfig:"GEMINI_TIMEOUT" default:"60s"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	groups := []struct {
		name   string
		target interface{}
	}{
		{"server", &cfg},
		{"mongo", &cfg.Mongo},
		{"auth", &cfg.Auth},
		{"redis", &cfg.Redis},
		{"mail", &cfg.Mail},
		{"gemini", &cfg.Gemini},
	}
	for _, g := range groups {
		if err := envconfig.Process("", g.target); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", g.name, err)
		}
	}

	// Trim spaces from list values
	cfg.AllowedOrigins = trimAll(cfg.AllowedOrigins)
	cfg.Mongo.Tenants = trimAll(cfg.Mongo.Tenants)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Auth.Mode {
	case AuthModeLocal:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("invalid AUTH_MODE: JWT_SECRET is required for local auth")
		}
	case AuthModeOIDC:
		if c.Auth.OIDCIssuer == "" {
			return fmt.Errorf("invalid AUTH_MODE: OIDC_ISSUER is required for oidc auth")
		}
	case AuthModeNone:
		if c.IsProduction() {
			return fmt.Errorf("invalid AUTH_MODE: none is not allowed in production")
		}
	default:
		return fmt.Errorf("invalid AUTH_MODE: %q", c.Auth.Mode)
	}

	switch c.Mail.Mode {
	case MailModeLog, MailModeSES:
	default:
		return fmt.Errorf("invalid MAIL_MODE: %q", c.Mail.Mode)
	}

	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return fmt.Errorf("invalid GEMINI_TEMPERATURE: %v", c.Gemini.Temperature)
	}
	return nil
}

// IsProduction reports whether the server runs outside development
func (c *Config) IsProduction() bool {
	return c.Env != "development" && c.Env != "test"
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
