package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"POLL_INTERVAL", "FETCH_RETRY_COUNT", "FETCH_RETRY_INTERVAL", "NOTIFY_SINK", "SERVER_LIST_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 3, cfg.FetchRetryCount)
	assert.Equal(t, 5*time.Second, cfg.FetchRetryInterval)
	assert.Equal(t, SinkWebhook, cfg.NotifySink)
	assert.Equal(t, "https://publicapi.battlebit.cloud/Servers/GetServerList", cfg.ServerListURL)
	assert.Same(t, cfg, AppConfig)
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "go duration", value: "250ms", want: 250 * time.Millisecond},
		{name: "bare seconds", value: "7", want: 7 * time.Second},
		{name: "garbage falls back", value: "soon", want: time.Minute},
		{name: "unset falls back", value: "", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, getEnvDuration("TEST_DURATION", time.Minute))
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			PollInterval:           5 * time.Second,
			FetchRetryCount:        3,
			DeliveryConcurrency:    4,
			NotifySink:             SinkWebhook,
			NotificationWebhookURL: "https://discord.example/api/webhooks/1/abc",
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero interval", mutate: func(c *Config) { c.PollInterval = 0 }},
		{name: "no attempts", mutate: func(c *Config) { c.FetchRetryCount = 0 }},
		{name: "no concurrency", mutate: func(c *Config) { c.DeliveryConcurrency = 0 }},
		{name: "webhook sink without url", mutate: func(c *Config) { c.NotificationWebhookURL = "" }},
		{name: "unknown sink", mutate: func(c *Config) { c.NotifySink = "carrier-pigeon" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	streamCfg := valid()
	streamCfg.NotifySink = SinkStream
	streamCfg.NotificationWebhookURL = ""
	assert.NoError(t, streamCfg.Validate())
}
