package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 12, cfg.JWTExpirationHours)
	assert.True(t, cfg.StockAllowNegative)
	assert.False(t, cfg.LoyaltyEnforceBalance)
	assert.Equal(t, "20", cfg.VarianceThreshold().String())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("STOCK_ALLOW_NEGATIVE", "false")
	t.Setenv("VARIANCE_ALERT_THRESHOLD", "5.50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.False(t, cfg.StockAllowNegative)
	assert.Equal(t, "5.5", cfg.VarianceThreshold().String())
}

func TestVarianceThresholdMalformed(t *testing.T) {
	cfg := &Config{VarianceAlertThreshold: "abc"}
	assert.True(t, cfg.VarianceThreshold().IsZero())

	cfg.VarianceAlertThreshold = "-3"
	assert.True(t, cfg.VarianceThreshold().IsZero())
}

func TestCORSOrigins(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: " https://a.example , ,https://b.example"}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins())

	cfg.CORSAllowedOrigins = ""
	assert.Empty(t, cfg.CORSOrigins())
}
