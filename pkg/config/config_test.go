package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.App.Port)
	require.Equal(t, "sqlite", cfg.KV.Backend)
	require.Equal(t, "log", cfg.Alerts.Mode)
	require.True(t, cfg.App.IsDev())
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("MECHFLOW_KV_BACKEND", "dynamo")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRedisBackend(t *testing.T) {
	t.Setenv("MECHFLOW_KV_BACKEND", "redis")
	t.Setenv("MECHFLOW_REDIS_URL", "redis://localhost:6379/0")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "redis", cfg.KV.Backend)
	require.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}
