package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	BackendOllama    = "ollama"
	BackendAnthropic = "anthropic"
	BackendGrok      = "grok"
	BackendOpenAI    = "openai"
)

const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// DefaultSystemPrompt is sent as the first entry of every chat request.
const DefaultSystemPrompt = "You are Eagle AI, a helpful assistant."

// DefaultSessionsKey is the storage key holding the saved session list.
const DefaultSessionsKey = "eagle_chats"

// Config holds application configuration
type Config struct {
	Assistant AssistantConfig `toml:"assistant"`
	Backend   BackendConfig   `toml:"backend"`
	Storage   StorageConfig   `toml:"storage"`
	Speech    SpeechConfig    `toml:"speech"`
	Log       LogConfig       `toml:"log"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Cache     CacheConfig     `toml:"cache"`
}

// AssistantConfig describes the persona presented to the user and the model.
type AssistantConfig struct {
	Name         string `toml:"name"`
	SystemPrompt string `toml:"system_prompt"`
}

// BackendConfig selects the external inference/auth service.
type BackendConfig struct {
	Provider string `toml:"provider"` // ollama|anthropic|grok|openai
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
	// MaxTokens only applies to providers that require it (anthropic)
	MaxTokens int `toml:"max_tokens"`
}

// StorageConfig selects where the session list is persisted.
type StorageConfig struct {
	Driver   string `toml:"driver"` // file|sqlite|redis|memory
	Path     string `toml:"path"`   // directory for file, database file for sqlite
	RedisURL string `toml:"redis_url"`
	Prefix   string `toml:"prefix"`
	Key      string `toml:"key"`
}

// SpeechConfig controls reading replies aloud.
type SpeechConfig struct {
	Enabled bool    `toml:"enabled"`
	Command string  `toml:"command"` // empty = detect
	Rate    float64 `toml:"rate"`
	Muted   bool    `toml:"muted"`
}

// LogConfig controls the rotating log file.
type LogConfig struct {
	Dir   string `toml:"dir"`
	Level string `toml:"level"`
}

// TelemetryConfig toggles OpenTelemetry export.
type TelemetryConfig struct {
	Enabled bool `toml:"enabled"`
}

// CacheConfig toggles the in-memory reply cache.
type CacheConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns the built-in configuration.
func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		Assistant: AssistantConfig{
			Name:         "Eagle AI",
			SystemPrompt: DefaultSystemPrompt,
		},
		Backend: BackendConfig{
			Provider:  BackendOpenAI,
			MaxTokens: 1024,
		},
		Storage: StorageConfig{
			Driver: StorageFile,
			Path:   dataDir,
			Key:    DefaultSessionsKey,
		},
		Speech: SpeechConfig{
			Enabled: true,
			Rate:    1.1,
		},
		Log: LogConfig{
			Dir:   filepath.Join(dataDir, "logs"),
			Level: "info",
		},
		Telemetry: TelemetryConfig{Enabled: true},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.toml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".eaglechat"
	}
	return filepath.Join(home, ".eaglechat")
}

// Load builds a Config from defaults, the TOML file at path, an optional
// .env file and the process environment, in that order of precedence.
// A missing config or .env file is not an error.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("EAGLE_BACKEND"); v != "" {
		c.Backend.Provider = v
	}
	if v := os.Getenv("EAGLE_MODEL"); v != "" {
		c.Backend.Model = v
	}
	if v := os.Getenv("EAGLE_BASE_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("EAGLE_STORAGE"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("EAGLE_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("EAGLE_REDIS_URL"); v != "" {
		c.Storage.RedisURL = v
	}
	if v := os.Getenv("EAGLE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("EAGLE_MUTED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Speech.Muted = b
		}
	}
	if c.Backend.APIKey == "" {
		c.Backend.APIKey = os.Getenv(apiKeyEnv(c.Backend.Provider))
	}
}

// apiKeyEnv names the environment variable holding the provider's key.
func apiKeyEnv(provider string) string {
	switch provider {
	case BackendAnthropic:
		return "ANTHROPIC_API_KEY"
	case BackendGrok:
		return "GROK_API_KEY"
	case BackendOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// ResolveAPIKey fills APIKey from the provider's environment variable when
// it is still empty. Call it after the provider was overridden by a flag.
func (c *Config) ResolveAPIKey() {
	if c.Backend.APIKey == "" {
		if env := apiKeyEnv(c.Backend.Provider); env != "" {
			c.Backend.APIKey = os.Getenv(env)
		}
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Backend.Provider {
	case BackendOllama, BackendAnthropic, BackendGrok, BackendOpenAI:
	default:
		return fmt.Errorf("unknown backend: %s", c.Backend.Provider)
	}

	switch c.Storage.Driver {
	case StorageFile, StorageSQLite, StorageMemory:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("redis storage requires redis_url")
		}
	default:
		return fmt.Errorf("unknown storage driver: %s", c.Storage.Driver)
	}

	if strings.TrimSpace(c.Storage.Key) == "" {
		return errors.New("storage key must not be empty")
	}
	if c.Speech.Rate <= 0 {
		return fmt.Errorf("speech rate must be positive, got %v", c.Speech.Rate)
	}
	return nil
}
