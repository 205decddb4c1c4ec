package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "visualex", cfg.App.Name)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 100, cfg.Cache.Capacity)
	assert.Equal(t, "memory", cfg.Storage.HistoryDriver)
	assert.Equal(t, "download", cfg.Storage.DownloadDir)
	assert.True(t, cfg.Browser.Headless)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VISUALEX_APP_PORT", "9090")
	t.Setenv("VISUALEX_CACHE_CAPACITY", "5")
	t.Setenv("VISUALEX_STORAGE_HISTORY_DRIVER", "sqlite")
	t.Setenv("VISUALEX_BROWSER_HEADLESS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 5, cfg.Cache.Capacity)
	assert.Equal(t, "sqlite", cfg.Storage.HistoryDriver)
	assert.False(t, cfg.Browser.Headless, "an explicit headless=false must survive defaulting")
	assert.True(t, cfg.Browser.DisableGPU)
}

func TestValidate(t *testing.T) {
	t.Run("rejects unknown history driver", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("VISUALEX_STORAGE_HISTORY_DRIVER", "postgres")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "history_driver")
	})

	t.Run("requires json logs in production", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("VISUALEX_APP_ENV", "production")
		t.Setenv("VISUALEX_LOG_FORMAT", "console")

		_, err := Load()
		require.Error(t, err)
	})
}
