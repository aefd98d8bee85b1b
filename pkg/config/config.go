// Package config loads the parley TOML configuration file and applies
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/papercomputeco/parley/pkg/backend"
	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/ollama"
	"github.com/papercomputeco/parley/pkg/openai"
	"github.com/papercomputeco/parley/pkg/prompt"
)

const (
	EnvOpenAIKey  = "OPENAI_API_KEY"
	EnvMode       = "PARLEY_MODE"
	EnvOllamaHost = "OLLAMA_HOST"

	dirName  = ".parley"
	fileName = "config.toml"
)

// Config is the full parley configuration.
type Config struct {
	Chat    ChatConfig    `toml:"chat"`
	OpenAI  OpenAIConfig  `toml:"openai"`
	Local   ollama.Config `toml:"local"`
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
}

// ChatConfig holds the defaults for new sessions.
type ChatConfig struct {
	Mode        string  `toml:"mode"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	Window      int     `toml:"window"`
}

// OpenAIConfig is the remote adapter configuration plus the default credential.
type OpenAIConfig struct {
	openai.Config
	APIKey string `toml:"api_key"`
}

type ServerConfig struct {
	Listen string `toml:"listen"`

	// SessionTTL ends sessions left idle for longer. Zero keeps them until
	// they are deleted.
	SessionTTL time.Duration `toml:"session_ttl"`
}

type StorageConfig struct {
	// SQLite is the transcript database path. Empty keeps transcripts in memory.
	SQLite string `toml:"sqlite"`
}

// Default returns the built-in configuration.
func Default() *Config {
	settings := chat.DefaultSettings()
	return &Config{
		Chat: ChatConfig{
			Mode:        string(settings.Mode),
			Temperature: settings.Temperature,
			MaxTokens:   settings.MaxTokens,
			Window:      prompt.DefaultWindow,
		},
		OpenAI: OpenAIConfig{Config: openai.DefaultConfig()},
		Local:  ollama.DefaultConfig(),
		Server: ServerConfig{Listen: ":8080", SessionTTL: time.Hour},
	}
}

// DefaultPath returns ~/.parley/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, dirName, fileName), nil
}

// ResolvePath returns path, or the default location when path is empty.
func ResolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DefaultPath()
}

// Load reads the configuration at path on top of the defaults, applies
// environment overrides and validates the result. An empty path reads the
// default location, where a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	path, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	mode, _ := backend.ParseMode(cfg.Chat.Mode)
	cfg.Chat.Mode = string(mode)
	return cfg, nil
}

func (c *Config) applyEnv() {
	if key := os.Getenv(EnvOpenAIKey); key != "" {
		c.OpenAI.APIKey = key
	}
	if mode := os.Getenv(EnvMode); mode != "" {
		c.Chat.Mode = mode
	}
	if host := os.Getenv(EnvOllamaHost); host != "" {
		c.Local.URL = host
	}
}

// Validate checks value ranges and that enabled backends are addressable.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Chat),
		validation.Field(&c.OpenAI),
		validation.Field(&c.Local, validation.By(validateLocal)),
		validation.Field(&c.Server),
	)
}

func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Listen, validation.Required),
		validation.Field(&c.SessionTTL, validation.Min(time.Duration(0))),
	)
}

func (c ChatConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Mode, validation.By(validateMode)),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.MaxTokens, validation.Required, validation.Min(50), validation.Max(512)),
		validation.Field(&c.Window, validation.Required, validation.Min(1)),
	)
}

func (c OpenAIConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.MaxTokens, validation.Min(1)),
	)
}

func validateLocal(value any) error {
	local, _ := value.(ollama.Config)
	if !local.Enabled {
		return nil
	}
	return validation.ValidateStruct(&local,
		validation.Field(&local.URL, validation.Required),
		validation.Field(&local.Model, validation.Required),
	)
}

func validateMode(value any) error {
	s, _ := value.(string)
	_, err := backend.ParseMode(s)
	return err
}

// Settings returns the session defaults described by the chat section.
// The configured API key becomes the default credential.
func (c *Config) Settings() chat.Settings {
	mode, err := backend.ParseMode(c.Chat.Mode)
	if err != nil {
		mode = backend.ModeAuto
	}
	return chat.Settings{
		Mode:        mode,
		Temperature: c.Chat.Temperature,
		MaxTokens:   c.Chat.MaxTokens,
		Credential:  c.OpenAI.APIKey,
	}
}
