package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                      "development",
		DBDriver:                 DriverPostgres,
		DBHost:                   "localhost",
		DBName:                   "spa_api",
		DBPassword:               "secure-password",
		DBSSLMode:                "require",
		DBSchemaMode:             "hybrid",
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           2,
		DBConnMaxLifetimeMinutes: 5,
		BcryptCost:               10,
		SeedLockTTLSeconds:       60,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Valid development config", func(c *Config) {}, false},
		{"Unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"SQLite without path", func(c *Config) { c.DBDriver = DriverSQLite; c.DBSQLitePath = "" }, true},
		{"SQLite with path", func(c *Config) { c.DBDriver = DriverSQLite; c.DBSQLitePath = "x.db" }, false},
		{"Unknown schema mode", func(c *Config) { c.DBSchemaMode = "yolo" }, true},
		{"Bcrypt cost too low", func(c *Config) { c.BcryptCost = 1 }, true},
		{"Bcrypt cost too high", func(c *Config) { c.BcryptCost = 99 }, true},
		{"Zero pool size", func(c *Config) { c.DBMaxOpenConns = 0 }, true},
		{"Zero lock ttl", func(c *Config) { c.SeedLockTTLSeconds = 0 }, true},
		{"Bad tracing exporter", func(c *Config) { c.TracingEnabled = true; c.TracingExporter = "jaeger" }, true},
		{"Production with default password", func(c *Config) { c.Env = "production"; c.DBPassword = "password" }, true},
		{"Production with disable SSL mode", func(c *Config) { c.Env = "production"; c.DBSSLMode = "disable" }, true},
		{"Staging with require SSL mode", func(c *Config) { c.Env = "staging" }, false},
		{"Production sqlite skips postgres checks", func(c *Config) {
			c.Env = "prod"
			c.DBDriver = DriverSQLite
			c.DBSQLitePath = "prod.db"
			c.DBSSLMode = "disable"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsProdLike(t *testing.T) {
	assert.True(t, IsProdLike("production"))
	assert.True(t, IsProdLike(" Stage "))
	assert.False(t, IsProdLike("development"))
	assert.False(t, IsProdLike(""))
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("DB_DRIVER", " SQLite ")
	t.Setenv("BCRYPT_COST", "4")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "test", c.Env)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, DriverSQLite, c.DBDriver)
	assert.Equal(t, 4, c.BcryptCost)
	assert.Equal(t, "spaapi.db", c.DBSQLitePath)
	assert.Equal(t, 60, c.SeedLockTTLSeconds)
}

func TestLoadConfig_ProdRequiresProfile(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "production")

	_, err := LoadConfig()
	assert.Error(t, err)
}
