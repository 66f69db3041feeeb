package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 256, cfg.Worker.MaxInFlight)
	assert.Equal(t, 100, cfg.Relay.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Relay.PollInterval)
	assert.Equal(t, "+46", cfg.Message.DefaultCountryPrefix)

	require.Contains(t, cfg.Channels, "sms")
	sms := cfg.Channels["sms"]
	assert.Equal(t, "/send/sms", sms.Path)
	assert.Equal(t, 5, sms.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, sms.Retry.InitialDelay)
	assert.Equal(t, 3, sms.Breaker.FailThreshold)

	// every shipped channel block parses into a usable adapter config
	for name, ch := range cfg.Channels {
		assert.NotEmpty(t, ch.BaseURL, name)
		assert.NotEmpty(t, ch.Path, name)
		assert.Positive(t, ch.Retry.MaxAttempts, name)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9999"
message:
  sms_sender_name: "Stad"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, "Stad", cfg.Message.SMSSenderName)
	// untouched keys keep their defaults
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "+46", cfg.Message.DefaultCountryPrefix)
}
