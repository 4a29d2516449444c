package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Supported relational drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration for the messaging-api service.
type Config struct {
	// Service settings
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"messaging-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"console"`
	LogPIILevel     string        `env:"LOG_PII_LEVEL" envDefault:"hashed"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Database
	DBDriver          string        `env:"DB_DRIVER" envDefault:"mysql"`
	DBDSN             string        `env:"DB_DSN"`
	DBReadDSN         string        `env:"DB_READ_DSN"`
	DBHost            string        `env:"DB_HOST" envDefault:"localhost"`
	DBPort            int           `env:"DB_PORT" envDefault:"3306"`
	DBUser            string        `env:"DB_USER" envDefault:"root"`
	DBPassword        string        `env:"DB_PASSWORD"`
	DBName            string        `env:"DB_NAME" envDefault:"AlumUnity"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"1"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	DBAutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	// Mock mode swaps the relational store for the in-memory fixture store.
	UseMockDB             bool   `env:"USE_MOCK_DB" envDefault:"false"`
	MockFallbackOnDBError bool   `env:"MOCK_FALLBACK_ON_DB_ERROR" envDefault:"true"`
	MockFixturesPath      string `env:"MOCK_FIXTURES_PATH"`

	// Auth
	AuthEnabled  bool   `env:"AUTH_ENABLED" envDefault:"false"`
	JWTSecret    string `env:"JWT_SECRET"`
	AuthIssuer   string `env:"ISSUER"`
	AuthAudience string `env:"AUDIENCE"`
	AuthJWKSURL  string `env:"JWKS_URL"`
	DevUserID    string `env:"DEV_USER_ID" envDefault:"dev-user"`

	// Realtime fan-out and job locking
	RedisURL string `env:"REDIS_URL"`

	// Presence
	TypingIndicatorTTL time.Duration `env:"TYPING_INDICATOR_TTL" envDefault:"10s"`
	PresenceStaleAfter time.Duration `env:"PRESENCE_STALE_AFTER" envDefault:"5m"`
	PresenceSweepCron  string        `env:"PRESENCE_SWEEP_CRON" envDefault:"* * * * *"`

	// OpenTelemetry
	EnableTracing bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTLPHeaders   string `env:"OTEL_EXPORTER_OTLP_HEADERS" envDefault:""`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER must be one of mysql, postgres, sqlite (got %q)", c.DBDriver)
	}

	if c.DBDriver != DriverMySQL && strings.TrimSpace(c.DBDSN) == "" && !c.UseMockDB {
		return fmt.Errorf("DB_DSN is required when DB_DRIVER is %s", c.DBDriver)
	}

	if c.AuthEnabled {
		hasSecret := strings.TrimSpace(c.JWTSecret) != ""
		hasJWKS := strings.TrimSpace(c.AuthJWKSURL) != ""
		if !hasSecret && !hasJWKS {
			return fmt.Errorf("JWT_SECRET or JWKS_URL is required when AUTH_ENABLED is true")
		}
		if hasJWKS && strings.TrimSpace(c.AuthIssuer) == "" {
			return fmt.Errorf("ISSUER is required when JWKS_URL is set")
		}
	}

	if c.TypingIndicatorTTL <= 0 {
		return fmt.Errorf("TYPING_INDICATOR_TTL must be positive")
	}
	if c.PresenceStaleAfter <= 0 {
		return fmt.Errorf("PRESENCE_STALE_AFTER must be positive")
	}

	return nil
}

// Addr returns the HTTP server address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// DatabaseDSN returns DB_DSN, or a MySQL DSN assembled from the DB_HOST family of variables.
func (c *Config) DatabaseDSN() string {
	if strings.TrimSpace(c.DBDSN) != "" {
		return c.DBDSN
	}
	if c.DBDriver != DriverMySQL {
		return ""
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}
