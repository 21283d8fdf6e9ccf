// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultJWTSecret      = "dev-jwt-secret-change-in-production"
	defaultIdentitySecret = "dev-identity-secret-change-in-production"

	minReportPageLimit = 100
	maxReportPageLimit = 200
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	IdentitySecret string `mapstructure:"IDENTITY_SECRET"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`
	RedisURL       string `mapstructure:"REDIS_URL"`

	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBReadHost               string `mapstructure:"DB_READ_HOST"`
	DBReadPort               string `mapstructure:"DB_READ_PORT"`
	DBReadUser               string `mapstructure:"DB_READ_USER"`
	DBReadPassword           string `mapstructure:"DB_READ_PASSWORD"`
	DBSchemaMode             string `mapstructure:"DB_SCHEMA_MODE"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`

	// Moderation policy.
	StoreTimeoutMS          int `mapstructure:"STORE_TIMEOUT_MS"`
	StoreRetryBackoffMS     int `mapstructure:"STORE_RETRY_BACKOFF_MS"`
	ReportRetentionYears    int `mapstructure:"REPORT_RETENTION_YEARS"`
	ReportPageLimit         int `mapstructure:"REPORT_PAGE_LIMIT"`
	ReportRateLimit         int `mapstructure:"REPORT_RATE_LIMIT"`
	ReportRateWindowMinutes int `mapstructure:"REPORT_RATE_WINDOW_MINUTES"`
	PostingRestrictionDays  int `mapstructure:"POSTING_RESTRICTION_DAYS"`
	SuspensionDays          int `mapstructure:"SUSPENSION_DAYS"`
	SweeperIntervalMinutes  int `mapstructure:"SWEEPER_INTERVAL_MINUTES"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

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

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("IDENTITY_SECRET", defaultIdentitySecret)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("FEATURE_FLAGS", "report_rate_limit=on")
	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "candor")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_READ_HOST", "")
	viper.SetDefault("DB_READ_PORT", "5432")
	viper.SetDefault("DB_READ_USER", "user")
	viper.SetDefault("DB_READ_PASSWORD", "password")
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30)

	viper.SetDefault("STORE_TIMEOUT_MS", 3000)
	viper.SetDefault("STORE_RETRY_BACKOFF_MS", 100)
	viper.SetDefault("REPORT_RETENTION_YEARS", 7)
	viper.SetDefault("REPORT_PAGE_LIMIT", 100)
	viper.SetDefault("REPORT_RATE_LIMIT", 20)
	viper.SetDefault("REPORT_RATE_WINDOW_MINUTES", 60)
	viper.SetDefault("POSTING_RESTRICTION_DAYS", 7)
	viper.SetDefault("SUSPENSION_DAYS", 30)
	viper.SetDefault("SWEEPER_INTERVAL_MINUTES", 15)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBSchemaMode = strings.ToLower(strings.TrimSpace(c.DBSchemaMode))
	if c.ReportPageLimit < minReportPageLimit {
		c.ReportPageLimit = minReportPageLimit
	}
	if c.ReportPageLimit > maxReportPageLimit {
		c.ReportPageLimit = maxReportPageLimit
	}
}

// IsProduction reports whether the stricter production rules apply.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.IdentitySecret == "" {
		return errors.New("IDENTITY_SECRET is required")
	}
	if c.StoreTimeoutMS <= 0 {
		return errors.New("STORE_TIMEOUT_MS must be positive")
	}
	if c.PostingRestrictionDays <= 0 || c.SuspensionDays <= 0 {
		return errors.New("POSTING_RESTRICTION_DAYS and SUSPENSION_DAYS must be positive")
	}
	if c.ReportRetentionYears <= 0 {
		return errors.New("REPORT_RETENTION_YEARS must be positive")
	}
	switch c.DBSchemaMode {
	case "", "hybrid", "sql", "auto":
	default:
		return fmt.Errorf("DB_SCHEMA_MODE %q is not one of hybrid, sql, auto", c.DBSchemaMode)
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret || len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be changed and at least 32 characters in production")
		}
		if c.IdentitySecret == defaultIdentitySecret || len(c.IdentitySecret) < 32 {
			return errors.New("IDENTITY_SECRET must be changed and at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

// StoreTimeout bounds a single store call.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}

// StoreRetryBackoff is the pause before the single retry of a transient store error.
func (c *Config) StoreRetryBackoff() time.Duration {
	return time.Duration(c.StoreRetryBackoffMS) * time.Millisecond
}

// PostingRestriction is the length of a level-2 posting restriction.
func (c *Config) PostingRestriction() time.Duration {
	return time.Duration(c.PostingRestrictionDays) * 24 * time.Hour
}

// Suspension is the length of a level-3 suspension.
func (c *Config) Suspension() time.Duration {
	return time.Duration(c.SuspensionDays) * 24 * time.Hour
}

// ReportRateWindow is the window REPORT_RATE_LIMIT applies to.
func (c *Config) ReportRateWindow() time.Duration {
	return time.Duration(c.ReportRateWindowMinutes) * time.Minute
}

// SweeperInterval is how often the background expiry sweep runs.
func (c *Config) SweeperInterval() time.Duration {
	return time.Duration(c.SweeperIntervalMinutes) * time.Minute
}
