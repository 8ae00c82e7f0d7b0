package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	conf := Default()

	require.Equal(t, 3, conf.Deployer.MaxRetries)
	require.Equal(t, 5*time.Second, conf.Deployer.RetryBaseDelay)
	require.Equal(t, 64, conf.Deployer.QueueSize)
	require.Equal(t, 900, conf.Deployer.WriteChunkSize)
	require.Equal(t, 30*time.Second, conf.Observer.PollInterval)
	require.Equal(t, "confirmed", conf.Solana.Commitment)
	require.Equal(t, "ignitor_deployments", conf.Redis.ChannelName)
	// Notifier is off until a host is configured
	require.Empty(t, conf.Redis.Host)
	require.False(t, conf.Profiler.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"Deployer": {"MaxRetries": 7, "RetryBaseDelay": "1s"},
		"Solana": {"ProgramAddress": "So11111111111111111111111111111111111111112"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	conf, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 7, conf.Deployer.MaxRetries)
	require.Equal(t, time.Second, conf.Deployer.RetryBaseDelay)
	require.Equal(t, "So11111111111111111111111111111111111111112", conf.Solana.ProgramAddress)
	// Untouched values keep their defaults
	require.Equal(t, 900, conf.Deployer.WriteChunkSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.json")
	require.Error(t, err)
}
