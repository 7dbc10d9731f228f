package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	OAuth    OAuthConfig
	Notify   NotifyConfig
}

type DatabaseConfig struct {
	Host              string        `env:"DB_HOST" envDefault:"localhost"`
	Port              int           `env:"DB_PORT" envDefault:"5432"`
	User              string        `env:"DB_USER" envDefault:"postgres"`
	Password          string        `env:"DB_PASSWORD,required,notEmpty"`
	Name              string        `env:"DB_NAME" envDefault:"warden"`
	SSLMode           string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns          int32         `env:"DB_MAX_CONNS" envDefault:"25"`
	MinConns          int32         `env:"DB_MIN_CONNS" envDefault:"5"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"5m"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"1m"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
	AutoMigrate       bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

type ServerConfig struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	Env            string        `env:"ENV" envDefault:"development"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	ReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout    time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"30s"`
	TrustedProxies []string      `env:"TRUSTED_PROXIES" envSeparator:","`
}

type AuthConfig struct {
	JWTSecret             string `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer             string `env:"JWT_VALID_ISSUER" envDefault:"warden"`
	JWTAudience           string `env:"JWT_VALID_AUDIENCE" envDefault:"warden-clients"`
	TokenValidityMinutes  int    `env:"JWT_TOKEN_VALIDITY_MINUTES" envDefault:"30"`
	EncryptionKey         string `env:"ENCRYPTION_KEY,required,notEmpty"`
	EncryptionIV          string `env:"ENCRYPTION_IV,required,notEmpty"`
	SessionSecret         string `env:"SESSION_SECRET,required,notEmpty"`
	SessionSecure         bool   `env:"SESSION_SECURE" envDefault:"false"`
	BcryptCost            int    `env:"BCRYPT_COST" envDefault:"12"`
	RateLimitPerMinute    int    `env:"AUTH_RATE_LIMIT_PER_MINUTE" envDefault:"5"`
	APIRateLimitPerMinute int    `env:"API_RATE_LIMIT_PER_MINUTE" envDefault:"100"`
}

type OAuthConfig struct {
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL" envDefault:"http://localhost:8080/auth/google/callback"`
}

type NotifyConfig struct {
	Provider    string `env:"NOTIFY_PROVIDER" envDefault:"log"`
	AWSRegion   string `env:"AWS_REGION" envDefault:"us-east-1"`
	FromAddress string `env:"NOTIFY_FROM_ADDRESS" envDefault:"no-reply@warden.local"`
}

// TokenValidity is the session token lifetime.
func (c *AuthConfig) TokenValidity() time.Duration {
	return time.Duration(c.TokenValidityMinutes) * time.Minute
}

// Load reads an optional .env file, then parses and validates the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validateJWTSecret(c.Auth.JWTSecret, c.Server.Env); err != nil {
		return err
	}
	switch len(c.Auth.EncryptionKey) {
	case 16, 24, 32:
	default:
		return fmt.Errorf("ENCRYPTION_KEY must be 16, 24 or 32 bytes (got %d)", len(c.Auth.EncryptionKey))
	}
	if len(c.Auth.EncryptionIV) != 16 {
		return fmt.Errorf("ENCRYPTION_IV must be exactly 16 bytes (got %d)", len(c.Auth.EncryptionIV))
	}
	if len(c.Auth.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters (got %d)", len(c.Auth.SessionSecret))
	}
	if c.Auth.TokenValidityMinutes <= 0 {
		return errors.New("JWT_TOKEN_VALIDITY_MINUTES must be positive")
	}
	if c.Auth.RateLimitPerMinute <= 0 {
		return errors.New("AUTH_RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.Auth.APIRateLimitPerMinute <= 0 {
		return errors.New("API_RATE_LIMIT_PER_MINUTE must be positive")
	}
	switch c.Notify.Provider {
	case "log", "ses":
	default:
		return fmt.Errorf("NOTIFY_PROVIDER must be log or ses (got %q)", c.Notify.Provider)
	}
	return nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}
	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if strings.Repeat(weak, len(secretLower)/len(weak)) == secretLower {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
