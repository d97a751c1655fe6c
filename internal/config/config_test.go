package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, ":5052", cfg.HTTPAddr)
	assert.Equal(t, 5000, cfg.BlockMs)
	assert.Equal(t, 1000, cfg.BackoffMs)
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dispatchd.yaml")
	data := []byte("redis_url: redis://file:6379\nhttp_addr: \":9000\"\nblock_ms: 250\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	require.NoError(t, os.Setenv("DISPATCHD_REDIS_URL", "redis://env:6379"))
	defer os.Unsetenv("DISPATCHD_REDIS_URL")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis://env:6379", cfg.RedisURL)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 250, cfg.BlockMs)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load("dispatchd.toml")
	assert.Error(t, err)
}

func TestConsumerNameStableAcrossRestarts(t *testing.T) {
	cfg := &Config{Consumer: "worker-7"}
	assert.Equal(t, "worker-7", cfg.ConsumerName())

	// a restarted process must come back under the same generated name, or it
	// can never reclaim messages it read but did not ack before dying
	first := (&Config{}).ConsumerName()
	second := (&Config{}).ConsumerName()
	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}
