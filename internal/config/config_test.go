package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{
		"TGDISPATCH_CONFIG", "TGDISPATCH_TOKEN", "TELEGRAM_BOT_TOKEN", "TGDISPATCH_MODE",
		"TGDISPATCH_CAPACITY", "TGDISPATCH_ERROR_POLICY", "TGDISPATCH_STATE_BACKEND",
	} {
		t.Setenv(k, "")
	}
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ModePolling, cfg.Delivery.Mode)
	assert.Equal(t, 16, cfg.Pipeline.Capacity)
	assert.Equal(t, "/", cfg.Commands.Prefix)
	assert.Equal(t, filepath.Join(home, ".config", "tgdispatch"), cfg.State.Dir)
}

func TestLoadFileThenEnv(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[telegram]
token = "from-file"
bot_name = "@dicebot"

[delivery]
mode = "webhook"

[pipeline]
capacity = 4
error_policy = "panicking"

[commands]
mention = "groups"
`), 0o600))

	t.Setenv("TGDISPATCH_CONFIG", path)
	t.Setenv("TGDISPATCH_CAPACITY", "8")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "from-file", cfg.Telegram.Token)
	assert.Equal(t, "dicebot", cfg.Telegram.BotName)
	assert.Equal(t, ModeWebhook, cfg.Delivery.Mode)
	assert.Equal(t, 8, cfg.Pipeline.Capacity)
	assert.Equal(t, "panicking", cfg.Pipeline.ErrorPolicy)
	assert.Equal(t, "groups", cfg.Commands.Mention)
}

func TestLoadTokenFallback(t *testing.T) {
	isolate(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "legacy")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.Telegram.Token)

	t.Setenv("TGDISPATCH_TOKEN", "preferred")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "preferred", cfg.Telegram.Token)
}

func TestLoadBadFile(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[telegram\n"), 0o600))
	t.Setenv("TGDISPATCH_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaults()
		cfg.Telegram.Token = "t"
		return &cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"no token", func(c *Config) { c.Telegram.Token = "" }, true},
		{"merged sources", func(c *Config) { c.Delivery.Mode = "webhook, stream"; c.Stream.URL = "ws://x" }, false},
		{"stream without url", func(c *Config) { c.Delivery.Mode = "stream" }, true},
		{"polling with webhook", func(c *Config) { c.Delivery.Mode = "polling,webhook" }, true},
		{"unknown mode", func(c *Config) { c.Delivery.Mode = "carrier-pigeon" }, true},
		{"unknown policy", func(c *Config) { c.Pipeline.ErrorPolicy = "retry" }, true},
		{"unknown mention", func(c *Config) { c.Commands.Mention = "sometimes" }, true},
		{"unknown backend", func(c *Config) { c.State.Backend = "etcd" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNormalises(t *testing.T) {
	cfg := defaults()
	cfg.Telegram.Token = "t"
	cfg.Delivery.Mode = " Webhook ,webhook"
	cfg.Delivery.PollLimit = 500
	cfg.Pipeline.Capacity = -1
	cfg.State.Backend = "REDIS"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "webhook", cfg.Delivery.Mode)
	assert.Equal(t, 100, cfg.Delivery.PollLimit)
	assert.Equal(t, 16, cfg.Pipeline.Capacity)
	assert.Equal(t, BackendRedis, cfg.State.Backend)
	assert.Equal(t, []string{"webhook"}, cfg.Modes())
}

func TestEnvOverridesEveryTunable(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[delivery]
error_delay = 9
dedup_window = 9

[stream]
reconnect_delay = 9

[commands]
case_insensitive = true

[state]
redis_key = "file:key"
`), 0o600))
	t.Setenv("TGDISPATCH_CONFIG", path)

	t.Setenv("TGDISPATCH_ERROR_DELAY", "7")
	t.Setenv("TGDISPATCH_DEDUP_WINDOW", "120")
	t.Setenv("TGDISPATCH_RECONNECT_DELAY", "2")
	t.Setenv("TGDISPATCH_CASE_INSENSITIVE", "false")
	t.Setenv("TGDISPATCH_REDIS_KEY", "env:key")
	t.Setenv("TGDISPATCH_DEBUG", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Delivery.ErrorDelay)
	assert.Equal(t, 120, cfg.Delivery.DedupWindow)
	assert.Equal(t, 2, cfg.Stream.ReconnectDelay)
	assert.False(t, cfg.Commands.CaseInsensitive)
	assert.Equal(t, "env:key", cfg.State.RedisKey)
	assert.True(t, cfg.Telegram.Debug)
}
