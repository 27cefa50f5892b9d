// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Supported values for DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env                           string `mapstructure:"APP_ENV"`
	DBDriver                      string `mapstructure:"DB_DRIVER"`
	DBHost                        string `mapstructure:"DB_HOST"`
	DBPort                        string `mapstructure:"DB_PORT"`
	DBUser                        string `mapstructure:"DB_USER"`
	DBPassword                    string `mapstructure:"DB_PASSWORD"`
	DBName                        string `mapstructure:"DB_NAME"`
	DBSSLMode                     string `mapstructure:"DB_SSLMODE"`
	DBSQLitePath                  string `mapstructure:"DB_SQLITE_PATH"`
	DBSchemaMode                  string `mapstructure:"DB_SCHEMA_MODE"`
	DBAutoMigrateAllowDestructive bool   `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`
	DBMaxOpenConns                int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns                int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes      int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	BcryptCost                    int    `mapstructure:"BCRYPT_COST"`
	RedisURL                      string `mapstructure:"REDIS_URL"`
	SeedLockTTLSeconds            int    `mapstructure:"SEED_LOCK_TTL_SECONDS"`
	LogLevel                      string `mapstructure:"LOG_LEVEL"`
	TracingEnabled                bool   `mapstructure:"TRACING_ENABLED"`
	TracingExporter               string `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint                  string `mapstructure:"OTLP_ENDPOINT"`
	PushgatewayURL                string `mapstructure:"PUSHGATEWAY_URL"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; env vars and defaults cover a local setup.
	_ = viper.ReadInConfig()

	env := strings.ToLower(strings.TrimSpace(viper.GetString("APP_ENV")))
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			if IsProdLike(env) {
				return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
			}
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DB_DRIVER", DriverPostgres)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "spa_api")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_SQLITE_PATH", "spaapi.db")
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)
	viper.SetDefault("DB_MAX_OPEN_CONNS", 10)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 2)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("SEED_LOCK_TTL_SECONDS", 60)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("PUSHGATEWAY_URL", "")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	if c.DBSSLMode == "" {
		c.DBSSLMode = "disable"
	}
	c.DBSchemaMode = strings.ToLower(strings.TrimSpace(c.DBSchemaMode))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.TracingExporter = strings.ToLower(strings.TrimSpace(c.TracingExporter))
}

// IsProdLike reports whether env names a production or staging environment.
func IsProdLike(env string) bool {
	e := strings.ToLower(strings.TrimSpace(env))
	return e == "production" || e == "prod" || e == "staging" || e == "stage"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBHost == "" || c.DBName == "" {
			return errors.New("DB_HOST and DB_NAME are required for the postgres driver")
		}
	case DriverSQLite:
		if c.DBSQLitePath == "" {
			return errors.New("DB_SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.DBSchemaMode {
	case "", "hybrid", "sql", "auto":
	default:
		return fmt.Errorf("unsupported DB_SCHEMA_MODE %q", c.DBSchemaMode)
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.DBMaxOpenConns <= 0 || c.DBMaxIdleConns < 0 {
		return errors.New("DB_MAX_OPEN_CONNS must be positive and DB_MAX_IDLE_CONNS non-negative")
	}
	if c.DBConnMaxLifetimeMinutes <= 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must be positive")
	}
	if c.SeedLockTTLSeconds <= 0 {
		return errors.New("SEED_LOCK_TTL_SECONDS must be positive")
	}
	if c.TracingEnabled && c.TracingExporter != "stdout" && c.TracingExporter != "otlp" {
		return fmt.Errorf("unsupported TRACING_EXPORTER %q", c.TracingExporter)
	}

	if IsProdLike(c.Env) && c.DBDriver == DriverPostgres {
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" {
			return errors.New("DB_SSLMODE must not be 'disable' in production")
		}
	}

	return nil
}
