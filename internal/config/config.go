// Package config loads taskbot configuration from YAML, .env files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alekspetrov/taskbot/internal/adapters/messenger"
	"github.com/alekspetrov/taskbot/internal/conversation"
	"github.com/alekspetrov/taskbot/internal/gateway"
	"github.com/alekspetrov/taskbot/internal/logging"
	"github.com/alekspetrov/taskbot/internal/maintenance"
	"github.com/alekspetrov/taskbot/internal/store"
)

// Config represents the main configuration
type Config struct {
	Gateway     *gateway.Config     `yaml:"gateway"`
	Messenger   *MessengerConfig    `yaml:"messenger"`
	Storage     *store.Config       `yaml:"storage"`
	Bot         *BotConfig          `yaml:"bot"`
	Maintenance *maintenance.Config `yaml:"maintenance"`
	Logging     *logging.Config     `yaml:"logging"`
}

// MessengerConfig holds Messenger Platform credentials and Send API settings.
type MessengerConfig struct {
	PageAccessToken string        `yaml:"page_access_token"`
	VerifyToken     string        `yaml:"verify_token"`
	AppSecret       string        `yaml:"app_secret"` // enables X-Hub-Signature-256 checks
	GraphURL        string        `yaml:"graph_url"`
	Timeout         time.Duration `yaml:"timeout"`
}

// BotConfig tunes conversation behavior.
type BotConfig struct {
	// Commands maps extra message texts to intent names, e.g. "todo": "LIST_TASKS".
	Commands          map[string]string `yaml:"commands"`
	ListDeleteButtons bool              `yaml:"list_delete_buttons"`
	// ListMaxElements caps list replies; 0 lists every task.
	ListMaxElements int                        `yaml:"list_max_elements"`
	RateLimit       *messenger.RateLimitConfig `yaml:"rate_limit"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Gateway: &gateway.Config{
			Host: "0.0.0.0",
			Port: 1337,
		},
		Messenger: &MessengerConfig{
			GraphURL: messenger.DefaultGraphURL,
			Timeout:  10 * time.Second,
		},
		Storage: store.DefaultConfig(),
		Bot: &BotConfig{
			Commands:  map[string]string{},
			RateLimit: messenger.DefaultRateLimitConfig(),
		},
		Maintenance: maintenance.DefaultConfig(),
		Logging:     logging.DefaultConfig(),
	}
}

// Load reads .env (when present), then the YAML file at path, then applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
			// defaults
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.fillDefaults()
	if config.Storage != nil {
		config.Storage.DSN = expandPath(config.Storage.DSN)
	}
	return config, nil
}

// loadDotEnv loads ./.env without overriding variables already set.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// applyEnv lets the well-known deployment variables win over the file.
func (c *Config) applyEnv() error {
	c.fillDefaults()

	if v := os.Getenv("PAGE_ACCESS_TOKEN"); v != "" {
		c.Messenger.PageAccessToken = v
	}
	if v := os.Getenv("VERIFY_TOKEN"); v != "" {
		c.Messenger.VerifyToken = v
	}
	if v := os.Getenv("APP_SECRET"); v != "" {
		c.Messenger.AppSecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Gateway.Port = port
	}
	return nil
}

// fillDefaults replaces sections a config file explicitly nulled out.
func (c *Config) fillDefaults() {
	d := DefaultConfig()
	if c.Gateway == nil {
		c.Gateway = d.Gateway
	}
	if c.Messenger == nil {
		c.Messenger = d.Messenger
	}
	if c.Storage == nil {
		c.Storage = d.Storage
	}
	if c.Bot == nil {
		c.Bot = d.Bot
	}
	if c.Bot.RateLimit == nil {
		c.Bot.RateLimit = d.Bot.RateLimit
	}
	if c.Maintenance == nil {
		c.Maintenance = d.Maintenance
	}
	if c.Logging == nil {
		c.Logging = d.Logging
	}
}

// Save writes configuration to a file
func Save(config *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// DefaultConfigPath returns the default configuration path
func DefaultConfigPath() string {
	return "taskbot.yaml"
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Commands returns the built-in command table extended with configured aliases.
func (c *Config) Commands() (conversation.CommandTable, error) {
	if c.Bot == nil {
		return conversation.DefaultCommands(), nil
	}
	return conversation.DefaultCommands().With(c.Bot.Commands)
}

// Validate validates the configuration. Tokens are only required for serving;
// see ValidateServe.
func (c *Config) Validate() error {
	if c.Gateway == nil {
		return errors.New("gateway configuration is required")
	}
	if c.Gateway.Port < 1 || c.Gateway.Port > 65535 {
		return fmt.Errorf("invalid gateway port: %d", c.Gateway.Port)
	}
	if c.Storage == nil || c.Storage.DSN == "" {
		return errors.New("storage dsn is required")
	}
	switch c.Storage.Driver {
	case "", store.DriverPure, store.DriverCGO:
	default:
		return fmt.Errorf("invalid storage driver: %q", c.Storage.Driver)
	}
	if c.Bot != nil && (c.Bot.ListMaxElements == 1 || c.Bot.ListMaxElements < 0) {
		return fmt.Errorf("invalid list_max_elements: %d (use 0 or at least 2)", c.Bot.ListMaxElements)
	}
	if c.Bot != nil && c.Bot.RateLimit != nil && c.Bot.RateLimit.Enabled && c.Bot.RateLimit.MessagesPerMinute <= 0 {
		return fmt.Errorf("invalid rate_limit.messages_per_minute: %d", c.Bot.RateLimit.MessagesPerMinute)
	}
	if _, err := c.Commands(); err != nil {
		return fmt.Errorf("invalid bot commands: %w", err)
	}
	return nil
}

// ValidateServe additionally requires the credentials the webhook needs.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Messenger.VerifyToken == "" {
		return errors.New("messenger.verify_token (VERIFY_TOKEN) is required")
	}
	if c.Messenger.PageAccessToken == "" {
		return errors.New("messenger.page_access_token (PAGE_ACCESS_TOKEN) is required")
	}
	return nil
}
