package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 7171, cfg.Listener.Port)
	assert.Equal(t, 1024, cfg.Listener.MaxDatagramSize)
	assert.Equal(t, 5*time.Minute, cfg.Outage.Threshold())
	assert.Equal(t, time.Minute, cfg.Monitor.Interval())
	assert.Equal(t, 10*time.Second, cfg.Webhook.Timeout())
	assert.Equal(t, "ap-northeast-1", cfg.Lightsail.Region)
	assert.Equal(t, "Debian-1", cfg.Lightsail.Instance)
	assert.False(t, cfg.Lightsail.Enabled)
	assert.Len(t, cfg.Monitor.IPv4Services, 4)
	assert.Len(t, cfg.Monitor.IPv6Services, 4)

	require.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cnlistener.yaml")
	data := []byte(`
listener:
  port: 9999
outage:
  threshold: 60
monitor:
  domain: example.com
  ipv4_services:
    - https://checkip.example.com
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Listener.Port)
	assert.Equal(t, time.Minute, cfg.Outage.Threshold())
	assert.Equal(t, "example.com", cfg.Monitor.Domain)
	assert.Equal(t, []string{"https://checkip.example.com"}, cfg.Monitor.IPv4Services)

	// Values absent from the file keep their defaults.
	assert.Equal(t, 1024, cfg.Listener.MaxDatagramSize)
	assert.Equal(t, time.Minute, cfg.Monitor.Interval())
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listener: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("IPV4_DOMAIN_UPDATE_LAMBDA", "https://lambda.example.com/update")
	t.Setenv("SERVER_DOMAIN_NAME", "my.example.com")
	t.Setenv("CNLISTENER_ADDR", ":9090")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "https://lambda.example.com/update", cfg.Webhook.URL)
	assert.Equal(t, "my.example.com", cfg.Monitor.Domain)
	assert.Equal(t, ":9090", cfg.Server.Address)
}

func TestApplyEnvKeepsFileValues(t *testing.T) {
	cfg := Default()
	cfg.Webhook.URL = "https://from-file.example.com"
	cfg.ApplyEnv()

	assert.Equal(t, "https://from-file.example.com", cfg.Webhook.URL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Listener.Port = 70000 }},
		{"zero datagram size", func(c *Config) { c.Listener.MaxDatagramSize = 0 }},
		{"zero webhook timeout", func(c *Config) { c.Webhook.TimeoutSecs = 0 }},
		{"zero monitor interval", func(c *Config) { c.Monitor.IntervalSecs = 0 }},
		{"no ipv4 services", func(c *Config) { c.Monitor.IPv4Services = nil }},
		{"zero outage threshold", func(c *Config) { c.Outage.ThresholdSecs = 0 }},
		{"lightsail without instance", func(c *Config) {
			c.Lightsail.Enabled = true
			c.Lightsail.Instance = ""
		}},
		{"empty server address", func(c *Config) { c.Server.Address = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
