package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/upb/realm-guard/keycloak"
	"github.com/upb/realm-guard/utils"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Keycloak      KeycloakConfig
	Observability ObservabilityConfig
	CORS          CORSConfig
	Environment   string `validate:"required"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int           `validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	RequestTimeout  time.Duration `validate:"gt=0"`
}

// DatabaseConfig holds the optional PostgreSQL connection for auth events.
// Recording is disabled when ConnectionString is empty.
type DatabaseConfig struct {
	ConnectionString string
	MaxOpenConns     int `validate:"gte=0"`
	MaxIdleConns     int `validate:"gte=0"`
	ConnMaxLifetime  time.Duration
}

// KeycloakConfig holds the realm and token verification settings
type KeycloakConfig struct {
	ServerURL             string        `validate:"required,url"`
	Realm                 string        `validate:"required"`
	Algorithm             string        `validate:"required"`
	Audience              string        `validate:"required"`
	RefreshThreshold      time.Duration `validate:"gt=0"`
	ClockSkew             time.Duration `validate:"gte=0"`
	JWKSFetchTimeout      time.Duration `validate:"gt=0"`
	AllowUnverifiedDecode bool
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string `validate:"required,oneof=debug info warn error"`
	LogFormat      string `validate:"required,oneof=json text"`
	MetricsEnabled bool
}

// CORSConfig holds cross-origin settings for browser clients
type CORSConfig struct {
	AllowedOrigins []string `validate:"min=1"`
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// .env is optional; real environment variables win
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			ConnectionString: getEnv("DATABASE_URL", ""),
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Keycloak: KeycloakConfig{
			ServerURL:             getEnv("KEYCLOAK_SERVER_URL", "http://localhost:8080"),
			Realm:                 getEnv("KEYCLOAK_REALM", ""),
			Algorithm:             getEnv("TOKEN_ALGORITHM", keycloak.DefaultAlgorithm),
			Audience:              getEnv("TOKEN_AUDIENCE", "account"),
			RefreshThreshold:      time.Duration(getEnvAsInt("TOKEN_REFRESH_THRESHOLD", 300)) * time.Second,
			ClockSkew:             getEnvAsDuration("TOKEN_CLOCK_SKEW", keycloak.DefaultClockSkew),
			JWKSFetchTimeout:      getEnvAsDuration("JWKS_FETCH_TIMEOUT", keycloak.DefaultFetchTimeout),
			AllowUnverifiedDecode: getEnvAsBool("AUTH_ALLOW_UNVERIFIED_DECODE", false),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks field constraints and cross-field rules
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}

	if !slices.Contains(keycloak.SupportedAlgorithms(), c.Keycloak.Algorithm) {
		return fmt.Errorf("TOKEN_ALGORITHM %q is not supported (want one of %s)",
			c.Keycloak.Algorithm, strings.Join(keycloak.SupportedAlgorithms(), ", "))
	}

	if c.IsProduction() && c.Keycloak.AllowUnverifiedDecode {
		return fmt.Errorf("AUTH_ALLOW_UNVERIFIED_DECODE must not be enabled in production")
	}

	if c.IsProduction() && strings.HasPrefix(c.Keycloak.ServerURL, "http://") {
		return fmt.Errorf("keycloak server URL must use https in production")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IssuerURL returns the realm issuer, the iss claim of its tokens
func (k *KeycloakConfig) IssuerURL() string {
	return strings.TrimRight(k.ServerURL, "/") + "/realms/" + url.PathEscape(k.Realm)
}

// CertsURL returns the realm JWKS endpoint
func (k *KeycloakConfig) CertsURL() string {
	return keycloak.CertsURL(k.ServerURL, k.Realm)
}

// Enabled reports whether an auth event database is configured
func (c *DatabaseConfig) Enabled() bool {
	return c.ConnectionString != ""
}

// LogString returns a safe string for logging (no password)
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString == "" {
		return "disabled"
	}
	u, err := url.Parse(c.ConnectionString)
	if err != nil || u.Host == "" {
		return "host=<from DATABASE_URL>"
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, strings.TrimPrefix(u.Path, "/"))
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8000)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8000
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
