package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:          "development",
		Port:         "3000",
		JWTSecret:    "secure-secret-at-least-32-chars-long",
		JWTExpiresIn: "24h",
		DBPassword:   "secure-password",
		DBSSLMode:    "require",
		Timezone:     "UTC",
	}
}

func TestConfig_ValidateProductionRules(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"Development defaults", func(c *Config) {}, false},
		{"Production with require SSL mode", func(c *Config) { c.Env = "production" }, false},
		{"Production with disable SSL mode", func(c *Config) { c.Env = "production"; c.DBSSLMode = "disable" }, true},
		{"Prod with default secret", func(c *Config) { c.Env = "prod"; c.JWTSecret = defaultJWTSecret }, true},
		{"Production with short secret", func(c *Config) { c.Env = "production"; c.JWTSecret = "short" }, true},
		{"Production with weak DB password", func(c *Config) { c.Env = "production"; c.DBPassword = "password" }, true},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"Bad token lifetime", func(c *Config) { c.JWTExpiresIn = "forever" }, true},
		{"Negative token lifetime", func(c *Config) { c.JWTExpiresIn = "-1h" }, true},
		{"Unknown timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
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

func TestConfig_TokenTTL(t *testing.T) {
	c := validConfig()
	c.JWTExpiresIn = "90m"
	ttl, err := c.TokenTTL()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, ttl)

	c.JWTExpiresIn = ""
	ttl, err = c.TokenTTL()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, ttl)
}

func TestConfig_Location(t *testing.T) {
	c := validConfig()
	c.Timezone = ""
	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	c.Timezone = "Europe/Berlin"
	loc, err = c.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestConfig_ListCacheTTL(t *testing.T) {
	c := validConfig()
	assert.Equal(t, time.Duration(0), c.ListCacheTTL())
	c.ListCacheTTLSeconds = 15
	assert.Equal(t, 15*time.Second, c.ListCacheTTL())
}

func TestLoadConfig_NormalizesEnvironment(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("TIMEZONE")
	defer viper.Reset()

	os.Setenv("APP_ENV", "test")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("TIMEZONE", "America/New_York")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "America/New_York", c.Timezone)
	assert.Equal(t, "hybrid", c.DBSchemaMode)
	assert.Equal(t, "24h", c.JWTExpiresIn)
}
