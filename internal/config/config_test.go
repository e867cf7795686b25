package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopkg.in/yaml.v2"
)

func TestConfigParsesDurationsAndDefaults(t *testing.T) {
	raw := []byte(`
database:
  url: "postgres://localhost/picstore"
storage:
  root: "/var/lib/picstore"
jobs:
  optimization_interval: "30m"
`)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(raw, &cfg))
	applyDefaults(&cfg)

	assert.Equal(t, "postgres://localhost/picstore", cfg.Database.DSN)
	assert.Equal(t, "/var/lib/picstore", cfg.Storage.Root)
	assert.Equal(t, Duration(30*time.Minute), cfg.Jobs.OptimizationInterval)

	// Everything omitted falls back to the documented defaults.
	assert.Equal(t, "jpeg", cfg.Media.CanonicalFormat)
	assert.Equal(t, 90, cfg.Media.OriginalQuality)
	assert.Equal(t, 80, cfg.Media.ThumbnailQuality)
	assert.Equal(t, 800, cfg.Media.ThumbnailMaxDim)
	assert.Equal(t, int64(25*1024*1024), cfg.Media.MaxUploadSize)
	assert.Equal(t, Duration(24*time.Hour), cfg.Jobs.ReconciliationInterval)
	assert.Equal(t, Duration(12*time.Hour), cfg.Jobs.TokenSweepInterval)
	assert.Equal(t, 50, cfg.Jobs.OptimizationBatchSize)
}

func TestDurationRejectsGarbage(t *testing.T) {
	var cfg Config
	err := yaml.Unmarshal([]byte("jobs:\n  optimization_interval: \"soon\"\n"), &cfg)
	assert.Error(t, err)
}
