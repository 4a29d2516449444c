package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "messaging-api", cfg.ServiceName)
	assert.Equal(t, DriverMySQL, cfg.DBDriver)
	assert.Equal(t, 10, cfg.DBMaxOpenConns)
	assert.Equal(t, 1, cfg.DBMaxIdleConns)
	assert.Equal(t, 10*time.Second, cfg.TypingIndicatorTTL)
	assert.False(t, cfg.UseMockDB)
	assert.True(t, cfg.MockFallbackOnDBError)
	assert.Equal(t, ":8000", cfg.Addr())
	assert.Equal(t, "root:secret@tcp(localhost:3306)/AlumUnity?charset=utf8mb4&parseTime=true&loc=UTC", cfg.DatabaseDSN())
}

func TestLoadMockMode(t *testing.T) {
	t.Setenv("USE_MOCK_DB", "true")
	t.Setenv("DB_DRIVER", "Postgres")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.UseMockDB)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DBDriver:           DriverMySQL,
			TypingIndicatorTTL: time.Second,
			PresenceStaleAfter: time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid mysql", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.DBDriver = "oracle" }, wantErr: "DB_DRIVER"},
		{name: "sqlite without dsn", mutate: func(c *Config) { c.DBDriver = DriverSQLite }, wantErr: "DB_DSN"},
		{name: "sqlite with dsn", mutate: func(c *Config) { c.DBDriver = DriverSQLite; c.DBDSN = "file::memory:" }},
		{name: "auth without keys", mutate: func(c *Config) { c.AuthEnabled = true }, wantErr: "JWT_SECRET"},
		{name: "auth with secret", mutate: func(c *Config) { c.AuthEnabled = true; c.JWTSecret = "s3cret" }},
		{name: "jwks without issuer", mutate: func(c *Config) { c.AuthEnabled = true; c.AuthJWKSURL = "http://kc/certs" }, wantErr: "ISSUER"},
		{name: "zero typing ttl", mutate: func(c *Config) { c.TypingIndicatorTTL = 0 }, wantErr: "TYPING_INDICATOR_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseDSNPrefersExplicitValue(t *testing.T) {
	cfg := &Config{DBDriver: DriverPostgres, DBDSN: "postgres://u:p@db:5432/alumunity"}
	assert.Equal(t, "postgres://u:p@db:5432/alumunity", cfg.DatabaseDSN())

	cfg = &Config{DBDriver: DriverSQLite}
	assert.Empty(t, cfg.DatabaseDSN())
}
