package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every env tag below.
const EnvPrefix = "AP_"

type Config struct {
	Server   string `yaml:"server" env:"SERVER"`
	Slot     string `yaml:"slot" env:"SLOT"`
	Password string `yaml:"password" env:"PASSWORD"`
	Game     string `yaml:"game" env:"GAME"`

	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`
	TraceDir  string `yaml:"trace_dir" env:"TRACE_DIR"`

	Reconnect Reconnect `yaml:"reconnect" envPrefix:"RECONNECT_"`

	HandshakeTimeout time.Duration `yaml:"handshake_timeout" env:"HANDSHAKE_TIMEOUT"`

	// StatusCommand is a format string taking the slot name.
	StatusCommand string `yaml:"status_command" env:"STATUS_COMMAND"`
}

type Reconnect struct {
	Min time.Duration `yaml:"min" env:"MIN"`
	Max time.Duration `yaml:"max" env:"MAX"`
}

// Load reads the YAML file at path (optional), then applies AP_*
// environment overrides.
func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

func defaults() Config {
	return Config{
		Server:    "ws://localhost:38281",
		Game:      "Hangman",
		LogLevel:  "info",
		LogFormat: "console",
		Reconnect: Reconnect{
			Min: 200 * time.Millisecond,
			Max: 5 * time.Second,
		},
		HandshakeTimeout: 5 * time.Second,
		StatusCommand:    "@%s status",
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.Server = strings.TrimSpace(c.Server)
	c.Slot = strings.TrimSpace(c.Slot)
	c.Game = strings.TrimSpace(c.Game)
	if c.Game == "" {
		c.Game = "Hangman"
	}
	// Archipelago hosts are usually given bare ("archipelago.gg:38281").
	if c.Server != "" && !strings.Contains(c.Server, "://") {
		c.Server = "ws://" + c.Server
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
	if c.StatusCommand == "" {
		c.StatusCommand = "@%s status"
	}
}

func (c Config) Validate() error {
	c.Normalize()
	if c.Slot == "" {
		return fmt.Errorf("slot must not be empty")
	}
	u, err := url.Parse(c.Server)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server scheme must be ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("server %q has no host", c.Server)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	if c.Reconnect.Min <= 0 {
		return fmt.Errorf("reconnect.min must be > 0")
	}
	if c.Reconnect.Max < c.Reconnect.Min {
		return fmt.Errorf("reconnect.max must be >= reconnect.min")
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("handshake_timeout must be > 0")
	}
	if strings.Count(c.StatusCommand, "%s") != 1 {
		return fmt.Errorf("status_command must contain exactly one %%s")
	}
	return nil
}
