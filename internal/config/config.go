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
	defaultJWTSecret = "your-secret-key-change-in-production"
	minProdSecretLen = 32
)

// Config is the process configuration. Keys match the environment variable
// names.
type Config struct {
	Env            string `mapstructure:"APP_ENV"`
	Port           string `mapstructure:"PORT"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	JWTExpiresIn   string `mapstructure:"JWT_EXPIRES_IN"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	DBReadHost     string `mapstructure:"DB_READ_HOST"`
	DBReadPort     string `mapstructure:"DB_READ_PORT"`
	DBReadUser     string `mapstructure:"DB_READ_USER"`
	DBReadPassword string `mapstructure:"DB_READ_PASSWORD"`
	DBSchemaMode   string `mapstructure:"DB_SCHEMA_MODE"`
	DBMaxOpenConns int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	DBAutoMigrateAllowDestructive bool `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`

	// Timezone is the reference zone used to expand dateFrom/dateTo list
	// filters into whole calendar days.
	Timezone string `mapstructure:"TIMEZONE"`

	ListCacheTTLSeconds int `mapstructure:"LIST_CACHE_TTL_SECONDS"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// defaults apply to every key not set by a config file or the environment.
var defaults = map[string]any{
	"APP_ENV":                          "development",
	"PORT":                             "3000",
	"JWT_SECRET":                       defaultJWTSecret,
	"JWT_EXPIRES_IN":                   "24h",
	"DB_HOST":                          "localhost",
	"DB_PORT":                          "5432",
	"DB_USER":                          "user",
	"DB_PASSWORD":                      "password",
	"DB_NAME":                          "quotely",
	"DB_SSLMODE":                       "disable",
	"DB_READ_HOST":                     "",
	"DB_READ_PORT":                     "5432",
	"DB_READ_USER":                     "user",
	"DB_READ_PASSWORD":                 "password",
	"DB_SCHEMA_MODE":                   "hybrid",
	"DB_MAX_OPEN_CONNS":                25,
	"DB_MAX_IDLE_CONNS":                5,
	"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE": false,
	"REDIS_URL":                        "localhost:6379",
	"ALLOWED_ORIGINS":                  "http://localhost:5173,http://localhost:3000",
	"TIMEZONE":                         "UTC",
	"LIST_CACHE_TTL_SECONDS":           30,
	"TRACING_ENABLED":                  false,
	"TRACING_EXPORTER":                 "stdout",
	"OTLP_ENDPOINT":                    "localhost:4318",
	"TRACING_SAMPLER_RATIO":            1.0,
}

// LoadConfig reads config.yml (optional), then config.<APP_ENV>.yml for
// deployed environments, then the process environment, which wins.
func LoadConfig() (*Config, error) {
	for _, dir := range []string{".", "..", "../.."} {
		viper.AddConfigPath(dir)
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	mergeProfile(viper.GetString("APP_ENV"))

	for key, value := range defaults {
		viper.SetDefault(key, value)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.DBSSLMode = strings.ToLower(strings.TrimSpace(cfg.DBSSLMode))
	cfg.DBSchemaMode = strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// mergeProfile layers config.<env>.yml over the base file. Local
// environments have no profile file.
func mergeProfile(env string) {
	switch env {
	case "", "development", "test":
		return
	}
	viper.SetConfigName("config." + env)
	if err := viper.MergeInConfig(); err != nil {
		log.Printf("config: no config.%s.yml, using environment only: %v", env, err)
		return
	}
	log.Printf("config: merged config.%s.yml", env)
}

// Validate rejects unusable values everywhere and weak secrets in
// production.
func (c *Config) Validate() error {
	switch {
	case c.Port == "":
		return errors.New("PORT is required")
	case c.JWTSecret == "":
		return errors.New("JWT_SECRET is required")
	}
	if _, err := c.TokenTTL(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	if !c.IsProduction() {
		if len(c.JWTSecret) < minProdSecretLen {
			log.Printf("config: WARNING JWT_SECRET is shorter than %d characters", minProdSecretLen)
		}
		return nil
	}

	switch {
	case c.JWTSecret == defaultJWTSecret:
		return errors.New("JWT_SECRET must be changed from the default in production")
	case len(c.JWTSecret) < minProdSecretLen:
		return fmt.Errorf("JWT_SECRET must be at least %d characters in production", minProdSecretLen)
	case c.DBPassword == "" || c.DBPassword == "password":
		return errors.New("a strong DB_PASSWORD is required in production")
	case c.DBSSLMode == "" || c.DBSSLMode == "disable":
		return errors.New("DB_SSLMODE must not be 'disable' in production")
	}
	if c.AllowedOrigins == "*" {
		log.Println("config: WARNING ALLOWED_ORIGINS is '*' in production")
	}
	return nil
}

// IsProduction reports whether the configured environment is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// TokenTTL parses JWT_EXPIRES_IN as a Go duration.
func (c *Config) TokenTTL() (time.Duration, error) {
	if c.JWTExpiresIn == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(c.JWTExpiresIn)
	if err != nil {
		return 0, fmt.Errorf("JWT_EXPIRES_IN must be a duration like 24h: %w", err)
	}
	if d <= 0 {
		return 0, errors.New("JWT_EXPIRES_IN must be positive")
	}
	return d, nil
}

// Location resolves TIMEZONE, defaulting to UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q is not a known zone: %w", c.Timezone, err)
	}
	return loc, nil
}

// ListCacheTTL returns how long a cached list page stays valid.
func (c *Config) ListCacheTTL() time.Duration {
	if c.ListCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.ListCacheTTLSeconds) * time.Second
}
