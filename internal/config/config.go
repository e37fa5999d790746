// Package config loads tgdispatch settings from a TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Enriquefft/tgdispatch/internal/command"
	"github.com/Enriquefft/tgdispatch/internal/policy"
)

// Delivery modes.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
	ModeStream  = "stream"
)

// State backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

var ErrNoToken = errors.New("config: telegram token is required")

// Config holds all configuration for tgdispatch.
type Config struct {
	Telegram TelegramConfig `toml:"telegram"`
	Delivery DeliveryConfig `toml:"delivery"`
	Webhook  WebhookConfig  `toml:"webhook"`
	Stream   StreamConfig   `toml:"stream"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Commands CommandsConfig `toml:"commands"`
	State    StateConfig    `toml:"state"`
	Log      LogConfig      `toml:"log"`
}

type TelegramConfig struct {
	Token     string `toml:"token"`
	BotName   string `toml:"bot_name"`
	APIServer string `toml:"api_server"`
	Debug     bool   `toml:"debug"`
}

type DeliveryConfig struct {
	// Mode is one source or a comma-separated set merged into one stream,
	// e.g. "webhook,stream".
	Mode        string `toml:"mode"`
	PollTimeout int    `toml:"poll_timeout"`
	PollLimit   int    `toml:"poll_limit"`
	ErrorDelay  int    `toml:"error_delay"`
	DedupWindow int    `toml:"dedup_window"`
}

type WebhookConfig struct {
	Addr   string `toml:"addr"`
	Path   string `toml:"path"`
	Secret string `toml:"secret"`
}

type StreamConfig struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	ReconnectDelay int    `toml:"reconnect_delay"`
}

type PipelineConfig struct {
	Capacity    int    `toml:"capacity"`
	ErrorPolicy string `toml:"error_policy"`
}

type CommandsConfig struct {
	Prefix          string `toml:"prefix"`
	CaseInsensitive bool   `toml:"case_insensitive"`
	Mention         string `toml:"mention"`
	// Table is an optional YAML command table replacing the built-in one.
	Table string `toml:"table"`
}

type StateConfig struct {
	Backend   string `toml:"backend"`
	Dir       string `toml:"dir"`
	RedisAddr string `toml:"redis_addr"`
	RedisKey  string `toml:"redis_key"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func defaults() Config {
	home := os.Getenv("HOME")
	return Config{
		Delivery: DeliveryConfig{
			Mode:        ModePolling,
			PollTimeout: 30,
			PollLimit:   100,
			ErrorDelay:  3,
			DedupWindow: 600,
		},
		Webhook: WebhookConfig{
			Addr: ":18790",
			Path: "/webhook",
		},
		Stream: StreamConfig{
			ReconnectDelay: 5,
		},
		Pipeline: PipelineConfig{
			Capacity:    16,
			ErrorPolicy: "logging",
		},
		Commands: CommandsConfig{
			Prefix:  command.DefaultPrefix,
			Mention: "optional",
		},
		State: StateConfig{
			Backend:   BackendFile,
			Dir:       filepath.Join(home, ".config", "tgdispatch"),
			RedisAddr: "127.0.0.1:6379",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the TOML config file (if it exists) and
// applies environment variable overrides. Env vars always win.
//
// Config file resolution: TGDISPATCH_CONFIG env var → ~/.config/tgdispatch/config.toml → skip.
func Load() (*Config, error) {
	cfg := defaults()

	path := configPath()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	return &cfg, nil
}

// Path returns the config file Load reads, or "" when there is none to read.
func Path() string {
	return configPath()
}

func configPath() string {
	if p := os.Getenv("TGDISPATCH_CONFIG"); p != "" {
		return expandHome(p)
	}
	home := os.Getenv("HOME")
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "tgdispatch", "config.toml")
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TGDISPATCH_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	} else if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	setString(&cfg.Telegram.BotName, "TGDISPATCH_BOT_NAME")
	setString(&cfg.Telegram.APIServer, "TGDISPATCH_API_SERVER")
	setBool(&cfg.Telegram.Debug, "TGDISPATCH_DEBUG")

	setString(&cfg.Delivery.Mode, "TGDISPATCH_MODE")
	setInt(&cfg.Delivery.PollTimeout, "TGDISPATCH_POLL_TIMEOUT")
	setInt(&cfg.Delivery.PollLimit, "TGDISPATCH_POLL_LIMIT")
	setInt(&cfg.Delivery.ErrorDelay, "TGDISPATCH_ERROR_DELAY")
	setInt(&cfg.Delivery.DedupWindow, "TGDISPATCH_DEDUP_WINDOW")

	setString(&cfg.Webhook.Addr, "TGDISPATCH_WEBHOOK_ADDR")
	setString(&cfg.Webhook.Path, "TGDISPATCH_WEBHOOK_PATH")
	setString(&cfg.Webhook.Secret, "TGDISPATCH_WEBHOOK_SECRET")

	setString(&cfg.Stream.URL, "TGDISPATCH_STREAM_URL")
	setString(&cfg.Stream.Token, "TGDISPATCH_STREAM_TOKEN")
	setInt(&cfg.Stream.ReconnectDelay, "TGDISPATCH_RECONNECT_DELAY")

	setInt(&cfg.Pipeline.Capacity, "TGDISPATCH_CAPACITY")
	setString(&cfg.Pipeline.ErrorPolicy, "TGDISPATCH_ERROR_POLICY")

	setString(&cfg.Commands.Prefix, "TGDISPATCH_COMMAND_PREFIX")
	setBool(&cfg.Commands.CaseInsensitive, "TGDISPATCH_CASE_INSENSITIVE")
	setString(&cfg.Commands.Mention, "TGDISPATCH_MENTION")
	setString(&cfg.Commands.Table, "TGDISPATCH_COMMANDS")

	setString(&cfg.State.Backend, "TGDISPATCH_STATE_BACKEND")
	setString(&cfg.State.Dir, "TGDISPATCH_STATE_DIR")
	setString(&cfg.State.RedisAddr, "TGDISPATCH_REDIS_ADDR")
	setString(&cfg.State.RedisKey, "TGDISPATCH_REDIS_KEY")

	setString(&cfg.Log.Level, "TGDISPATCH_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Modes returns the configured delivery modes, normalised and deduplicated.
func (c *Config) Modes() []string {
	var modes []string
	for _, m := range strings.Split(c.Delivery.Mode, ",") {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" && !slices.Contains(modes, m) {
			modes = append(modes, m)
		}
	}
	return modes
}

// Validate normalises out-of-range numbers to their defaults and checks that
// required fields are set for the configured modes.
func (c *Config) Validate() error {
	d := defaults()
	if c.Delivery.PollTimeout < 0 {
		c.Delivery.PollTimeout = d.Delivery.PollTimeout
	}
	if c.Delivery.PollLimit < 1 || c.Delivery.PollLimit > 100 {
		c.Delivery.PollLimit = d.Delivery.PollLimit
	}
	if c.Delivery.ErrorDelay < 1 {
		c.Delivery.ErrorDelay = d.Delivery.ErrorDelay
	}
	if c.Delivery.DedupWindow < 1 {
		c.Delivery.DedupWindow = d.Delivery.DedupWindow
	}
	if c.Stream.ReconnectDelay < 1 {
		c.Stream.ReconnectDelay = d.Stream.ReconnectDelay
	}
	if c.Pipeline.Capacity < 0 {
		c.Pipeline.Capacity = d.Pipeline.Capacity
	}

	if c.Telegram.Token == "" {
		return ErrNoToken
	}

	modes := c.Modes()
	if len(modes) == 0 {
		modes = []string{ModePolling}
	}
	for _, m := range modes {
		switch m {
		case ModePolling, ModeWebhook:
		case ModeStream:
			if c.Stream.URL == "" {
				return errors.New("config: stream mode needs stream.url")
			}
		default:
			return fmt.Errorf("config: unknown delivery mode %q", m)
		}
	}
	// The Bot API refuses getUpdates while a webhook is set.
	if slices.Contains(modes, ModePolling) && slices.Contains(modes, ModeWebhook) {
		return errors.New("config: polling and webhook cannot run together")
	}
	c.Delivery.Mode = strings.Join(modes, ",")

	if _, err := policy.FromName(c.Pipeline.ErrorPolicy, nil); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := command.ParseMention(c.Commands.Mention); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	switch strings.ToLower(c.State.Backend) {
	case BackendFile, "":
		c.State.Backend = BackendFile
	case BackendRedis:
		c.State.Backend = BackendRedis
	default:
		return fmt.Errorf("config: unknown state backend %q", c.State.Backend)
	}

	c.Telegram.BotName = strings.TrimPrefix(c.Telegram.BotName, "@")
	return nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
