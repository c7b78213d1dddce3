package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/upb/qruntime/utils"
)

// DefaultDotenvPath is the .env file read when no other path is given.
const DefaultDotenvPath = ".env"

// Config represents the complete application configuration
type Config struct {
	Runtime       RuntimeConfig
	Resolution    ResolutionConfig
	Observability ObservabilityConfig
	Server        ServerConfig
	// AuditDatabase is the optional attempt audit sink. Nil disables auditing.
	AuditDatabase *DatabaseConfig
	// DotenvPath is the .env file that was consulted, if any.
	DotenvPath string
}

// RuntimeConfig holds the runtime service endpoints and HTTP policy
type RuntimeConfig struct {
	Channel      string        `validate:"required,oneof=ibm_quantum ibm_cloud"`
	AuthURL      string        `validate:"required,url"`
	IAMURL       string        `validate:"required,url"`
	RuntimeURL   string        `validate:"required,url"`
	Timeout      time.Duration `validate:"min=1s,max=10m"`
	RetryMax     int           `validate:"min=0,max=10"`
	RetryWaitMin time.Duration `validate:"min=1ms"`
	RetryWaitMax time.Duration `validate:"gtefield=RetryWaitMin"`
}

// ResolutionConfig holds the parameter resolution policy
type ResolutionConfig struct {
	AllowFallback     bool
	Offline           bool
	PreferEnvironment bool
}

// ObservabilityConfig holds logging and metrics configuration
type ObservabilityConfig struct {
	LogLevel       string `validate:"required,oneof=debug info warn error"`
	LogFormat      string `validate:"required,oneof=json console"`
	MetricsEnabled bool
}

// ServerConfig holds the status server configuration
type ServerConfig struct {
	Host            string        `validate:"required"`
	Port            int           `validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `validate:"min=1s"`
	WriteTimeout    time.Duration `validate:"min=1s"`
	ShutdownTimeout time.Duration `validate:"min=1s"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	ConnectionString string `validate:"required"`
	MaxOpenConns     int    `validate:"min=1"`
	MaxIdleConns     int    `validate:"min=0"`
	ConnMaxLifetime  time.Duration
}

// LookupFunc resolves one configuration key.
type LookupFunc func(key string) (string, bool)

// New loads the configuration from the process environment, falling back to
// values in the .env file at DefaultDotenvPath. The file never overrides or
// modifies the process environment.
func New(ctx context.Context) (*Config, error) {
	return NewFromFile(ctx, DefaultDotenvPath)
}

// NewFromFile is New with an explicit .env path.
func NewFromFile(_ context.Context, dotenvPath string) (*Config, error) {
	lookup, err := envWithDotenv(dotenvPath)
	if err != nil {
		return nil, err
	}
	cfg := Load(lookup)
	cfg.DotenvPath = dotenvPath

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// envWithDotenv returns a lookup that prefers the process environment and
// falls back to the dotenv file.
func envWithDotenv(path string) (LookupFunc, error) {
	fileValues := map[string]string{}
	if path != "" {
		values, err := godotenv.Read(path)
		switch {
		case err == nil:
			fileValues = values
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileValues[key]
		return v, ok
	}, nil
}

// Load builds a Config from lookup without validating it.
func Load(lookup LookupFunc) *Config {
	env := envReader{lookup: lookup}

	cfg := &Config{
		Runtime: RuntimeConfig{
			Channel:      env.get("IBMQ_CHANNEL", "ibm_quantum"),
			AuthURL:      env.get("IBMQ_AUTH_URL", "https://auth.quantum-computing.ibm.com"),
			IAMURL:       env.get("IBMQ_IAM_URL", "https://iam.cloud.ibm.com"),
			RuntimeURL:   env.get("IBMQ_RUNTIME_URL", "https://api.quantum-computing.ibm.com/runtime"),
			Timeout:      env.getDuration("IBMQ_HTTP_TIMEOUT", 30*time.Second),
			RetryMax:     env.getInt("IBMQ_RETRY_MAX", 3),
			RetryWaitMin: env.getDuration("IBMQ_RETRY_WAIT_MIN", 500*time.Millisecond),
			RetryWaitMax: env.getDuration("IBMQ_RETRY_WAIT_MAX", 5*time.Second),
		},
		Resolution: ResolutionConfig{
			AllowFallback:     env.getBool("IBMQ_FALLBACK", false),
			Offline:           env.getBool("IBMQ_OFFLINE", false),
			PreferEnvironment: env.getBool("IBMQ_PREFER_ENV", false),
		},
		Observability: ObservabilityConfig{
			LogLevel:       strings.ToLower(env.get("LOG_LEVEL", "info")),
			LogFormat:      strings.ToLower(env.get("LOG_FORMAT", "console")),
			MetricsEnabled: env.getBool("METRICS_ENABLED", true),
		},
		Server: ServerConfig{
			Host:            env.get("SERVER_HOST", "127.0.0.1"),
			Port:            env.getInt("SERVER_PORT", 8089),
			ReadTimeout:     env.getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    env.getDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: env.getDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		AuditDatabase: loadAuditDatabaseConfig(env),
	}
	return cfg
}

// loadAuditDatabaseConfig loads the audit DB config from DATABASE_URL_AUDIT.
// Returns nil when not set.
func loadAuditDatabaseConfig(env envReader) *DatabaseConfig {
	dbURL := env.get("DATABASE_URL_AUDIT", "")
	if dbURL == "" {
		return nil
	}
	return &DatabaseConfig{
		ConnectionString: dbURL,
		MaxOpenConns:     env.getInt("DB_MAX_OPEN_CONNS", 4),
		MaxIdleConns:     env.getInt("DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime:  env.getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Validate checks every section against its validation tags
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c.Runtime); err != nil {
		return fmt.Errorf("runtime: %w", err)
	}
	if err := utils.ValidateStruct(c.Observability); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	if err := utils.ValidateStruct(c.Server); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if c.AuditDatabase != nil {
		if err := utils.ValidateStruct(c.AuditDatabase); err != nil {
			return fmt.Errorf("audit database: %w", err)
		}
	}
	return nil
}

// AuditEnabled reports whether an audit sink is configured.
func (c *Config) AuditEnabled() bool {
	return c.AuditDatabase != nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return c.ConnectionString
}

// LogString returns a safe string for logging (no password).
func (c *DatabaseConfig) LogString() string {
	u, err := url.Parse(c.ConnectionString)
	if err != nil || u.Host == "" {
		return "host=<from DATABASE_URL_AUDIT>"
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	db := strings.TrimPrefix(u.Path, "/")
	return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, db)
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

type envReader struct {
	lookup LookupFunc
}

func (e envReader) get(key, defaultValue string) string {
	if value, ok := e.lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func (e envReader) getInt(key string, defaultValue int) int {
	valueStr := e.get(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func (e envReader) getBool(key string, defaultValue bool) bool {
	valueStr := e.get(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func (e envReader) getDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := e.get(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
