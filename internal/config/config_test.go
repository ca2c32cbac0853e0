package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutEnv(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 60, cfg.DefaultRateLimit)
	assert.Equal(t, "engram_default", cfg.DefaultNamespace)
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("ENGRAM_LISTEN_ADDR", ":9090")
	t.Setenv("ENGRAM_DEFAULT_RATE_LIMIT", "120")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 120, cfg.DefaultRateLimit)
}

func TestLoad_InvalidDurationIsRejected(t *testing.T) {
	t.Setenv("ENGRAM_REQUEST_TIMEOUT", "not-a-duration")
	_, err := Load()
	assert.Error(t, err)
}
