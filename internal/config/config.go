// Package config loads the service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the complete process configuration.
type Config struct {
	Server ServerConfig
	Neo4j  Neo4jConfig
	Graph  GraphConfig
	Auth   AuthConfig
	App    AppConfig
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port               string
	RequestTimeout     time.Duration
	CORSAllowedOrigins []string
}

// Neo4jConfig holds the driver connection and transaction settings.
type Neo4jConfig struct {
	URI            string
	Username       string
	Password       string
	Database       string
	TxTimeout      time.Duration
	ConnectTimeout time.Duration
	MaxPoolSize    int
}

// GraphConfig restricts what the graph store may create.
type GraphConfig struct {
	AllowedLabels    []string
	RelationshipType string
}

// AuthConfig holds the shared secret required for mutations.
type AuthConfig struct {
	APISecret string
}

// AppConfig holds the environment name, log level and reported version.
type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

// Load reads configuration from the process environment. A .env file in the
// working directory, when present, seeds variables that are not already set.
func Load() (*Config, error) {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
//
// Parameters:
//   - getenv: Looks up one variable, usually os.Getenv.
//
// Returns:
//
//	The validated Config, or an error naming every malformed or missing variable.
func FromEnv(getenv func(string) string) (*Config, error) {
	e := envReader{getenv: getenv}

	cfg := &Config{
		Server: ServerConfig{
			Port:               e.str("PORT", "8080"),
			RequestTimeout:     e.duration("REQUEST_TIMEOUT", 15*time.Second),
			CORSAllowedOrigins: e.list("CORS_ALLOWED_ORIGINS"),
		},
		Neo4j: Neo4jConfig{
			URI:            e.str("NEO4J_URI", ""),
			Username:       e.str("NEO4J_USERNAME", ""),
			Password:       e.str("NEO4J_PASSWORD", ""),
			Database:       e.str("NEO4J_DATABASE", ""),
			TxTimeout:      e.duration("NEO4J_TX_TIMEOUT", 10*time.Second),
			ConnectTimeout: e.duration("NEO4J_CONNECT_TIMEOUT", 5*time.Second),
			MaxPoolSize:    e.int("NEO4J_MAX_POOL_SIZE", 50),
		},
		Graph: GraphConfig{
			AllowedLabels:    e.list("GRAPH_ALLOWED_LABELS"),
			RelationshipType: e.str("GRAPH_RELATIONSHIP_TYPE", "RELATIONSHIP_TYPE"),
		},
		Auth: AuthConfig{
			APISecret: e.str("API_SECRET", ""),
		},
		App: AppConfig{
			Environment: e.str("APP_ENV", "development"),
			LogLevel:    e.str("LOG_LEVEL", "info"),
			Version:     e.str("APP_VERSION", "1.0.0"),
		},
	}

	if len(e.errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(e.errs, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports missing required settings and out-of-range values.
func (c *Config) Validate() error {
	var missing []string
	for _, req := range []struct{ key, value string }{
		{"NEO4J_URI", c.Neo4j.URI},
		{"NEO4J_USERNAME", c.Neo4j.Username},
		{"NEO4J_PASSWORD", c.Neo4j.Password},
		{"API_SECRET", c.Auth.APISecret},
	} {
		if req.value == "" {
			missing = append(missing, req.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s is required", strings.Join(missing, ", "))
	}

	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.Neo4j.MaxPoolSize < 0 {
		return fmt.Errorf("NEO4J_MAX_POOL_SIZE must not be negative")
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

type envReader struct {
	getenv func(string) string
	errs   []string
}

func (e *envReader) str(key, defaultValue string) string {
	if value := strings.TrimSpace(e.getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func (e *envReader) int(key string, defaultValue int) int {
	valueStr := strings.TrimSpace(e.getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not an integer", key, valueStr))
		return defaultValue
	}
	return value
}

func (e *envReader) duration(key string, defaultValue time.Duration) time.Duration {
	valueStr := strings.TrimSpace(e.getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not a duration", key, valueStr))
		return defaultValue
	}
	return value
}

func (e *envReader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(e.getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
