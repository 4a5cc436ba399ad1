package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides_Validation(t *testing.T) {
	t.Run("threshold and flags", func(t *testing.T) {
		t.Setenv("CERTD_ONLINE_VALIDATION_THRESHOLD", "12")
		t.Setenv("CERTD_BLOCKING_4A", "false")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, 12, cfg.Validation.OnlineThreshold)
		assert.False(t, cfg.Validation.Blocking4A)
		assert.True(t, cfg.Validation.Blocking3C, "unset variables keep loaded values")
	})

	t.Run("malformed int is an error", func(t *testing.T) {
		t.Setenv("CERTD_REFRESH_CONCURRENCY", "many")

		cfg := DefaultConfig()
		assert.Error(t, cfg.applyEnvOverrides())
	})
}

func TestEnvOverrides_Integrations(t *testing.T) {
	t.Setenv("CERTD_RULE_ENGINE_URL", "http://rules:9999")
	t.Setenv("CERTD_REFERENCE_DATA_TIMEOUT", "5s")

	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnvOverrides())

	assert.Equal(t, "http://rules:9999", cfg.Integrations.RuleEngine.BaseURL)
	assert.Equal(t, "5s", cfg.Integrations.ReferenceData.Timeout)
	assert.Equal(t, "http://localhost:9002", cfg.Integrations.Notification.BaseURL)
}

func TestEnvOverrides_StorageAndSession(t *testing.T) {
	t.Setenv("CERTD_DB", "/tmp/certd-test.db")
	t.Setenv("CERTD_DB_DRIVER", "sqlite")
	t.Setenv("CERTD_SESSION_BACKEND", "redis")
	t.Setenv("CERTD_REDIS_ADDR", "redis:6379")

	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnvOverrides())

	assert.Equal(t, "/tmp/certd-test.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.Equal(t, "redis:6379", cfg.Session.RedisAddr)
	assert.NoError(t, cfg.Validate())
}

func TestEnvOverrides_Telemetry(t *testing.T) {
	t.Setenv("CERTD_OTEL_ENDPOINT", "http://collector:4318")
	t.Setenv("CERTD_OTEL_SAMPLE_RATIO", "0.25")

	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnvOverrides())

	assert.True(t, cfg.Telemetry.Enabled())
	assert.Equal(t, "http://collector:4318", cfg.Telemetry.Endpoint)
	assert.Equal(t, 0.25, cfg.Telemetry.SampleRatio)
	assert.NoError(t, cfg.Validate())
}
