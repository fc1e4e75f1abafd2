// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or
// environment variables.
type Config struct {
	Env                 string  `mapstructure:"APP_ENV"`
	Host                string  `mapstructure:"HOST"`
	Port                string  `mapstructure:"PORT"`
	StoreBackend        string  `mapstructure:"STORE_BACKEND"`
	DatabaseURL         string  `mapstructure:"DATABASE_URL"`
	SQLitePath          string  `mapstructure:"SQLITE_PATH"`
	RedisURL            string  `mapstructure:"REDIS_URL"`
	LogLevel            string  `mapstructure:"LOG_LEVEL"`
	LogFormat           string  `mapstructure:"LOG_FORMAT"`
	VerifyPasswords     bool    `mapstructure:"AUTH_VERIFY_PASSWORDS"`
	FeatureFlags        string  `mapstructure:"FEATURE_FLAGS"`
	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
	ShutdownTimeoutSecs int     `mapstructure:"SHUTDOWN_TIMEOUT_SECS"`
}

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// LoadConfig loads application configuration from file and environment
// variables. A base config.yml is optional; when APP_ENV names another
// profile, config.<env>.yml must exist.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// Initial read to get APP_ENV if set in base config
	// We intentionally ignore this error as the config file may not exist yet
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	// Set default values for development
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("HOST", "0.0.0.0")
	viper.SetDefault("PORT", "3000")
	viper.SetDefault("STORE_BACKEND", StoreMemory)
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("SQLITE_PATH", "warhorse.db")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("AUTH_VERIFY_PASSWORDS", false)
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
	viper.SetDefault("SHUTDOWN_TIMEOUT_SECS", 10)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.StoreBackend = strings.ToLower(strings.TrimSpace(config.StoreBackend))
	config.LogLevel = strings.ToLower(strings.TrimSpace(config.LogLevel))
	config.LogFormat = strings.ToLower(strings.TrimSpace(config.LogFormat))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and meet
// security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}

	switch c.StoreBackend {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_BACKEND is postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (expected memory, postgres, or sqlite)", c.StoreBackend)
	}

	isProduction := c.Env == "production" || c.Env == "prod"

	if isProduction {
		if !c.VerifyPasswords {
			return errors.New("AUTH_VERIFY_PASSWORDS must be enabled in production")
		}
		if c.StoreBackend == StoreMemory {
			log.Println("WARNING: STORE_BACKEND is 'memory' in production. All accounts and relationships are lost on restart.")
		}
		if c.RedisURL == "" {
			log.Println("WARNING: REDIS_URL is empty in production. Presence mirroring and pub/sub notifications are disabled.")
		}
	} else {
		if !c.VerifyPasswords {
			log.Println("WARNING: AUTH_VERIFY_PASSWORDS is disabled. Any password is accepted at login.")
		}
	}

	return nil
}

// Addr is the listen address, host:port.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}
