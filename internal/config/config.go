package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// OnErrorHalt stops materialization at the first failed file.
	OnErrorHalt = "halt"
	// OnErrorContinue attempts every file and reports all failures at the end.
	OnErrorContinue = "continue"

	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "moonshotai/kimi-k2:free"
)

// Global configuration structure.
type Global struct {
	APIKey      string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Model       string  `mapstructure:"model" yaml:"model,omitempty"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens,omitempty"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature,omitempty"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec,omitempty"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts,omitempty"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms,omitempty"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms,omitempty"`

	// Output
	OutputDir     string `mapstructure:"output_dir" yaml:"output_dir,omitempty"`
	OnError       string `mapstructure:"on_error" yaml:"on_error,omitempty"`
	WriteManifest bool   `mapstructure:"write_manifest" yaml:"write_manifest,omitempty"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level,omitempty"`
}

// Validate checks values that have a closed set of options.
func (c *Global) Validate() error {
	switch c.OnError {
	case OnErrorHalt, OnErrorContinue:
	default:
		return fmt.Errorf("invalid on_error: %q (use %s or %s)", c.OnError, OnErrorHalt, OnErrorContinue)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	return nil
}

// DefaultPath returns ~/.appforge/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".appforge", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.appforge/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	// 0600: the file may carry the API key
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadFile reads only the config file, without env, .env or defaults.
// A missing file yields an empty Global. It is the base for `config set`, so
// credentials that come from the environment are never written to disk.
func LoadFile(cfgFile string) (*Global, error) {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Global{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Global
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &c, nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
// A .env file in the working directory is loaded into the environment first.
func Load(cfgFile string) (*Global, error) {
	// Missing .env is the common case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("APPFORGE")
	v.AutomaticEnv()

	v.SetDefault("api_key", "")
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("model", DefaultModel)
	v.SetDefault("max_tokens", 0)
	v.SetDefault("temperature", 0.0)
	// HTTP/retry defaults; a single attempt unless configured otherwise
	v.SetDefault("http_timeout_sec", 120)
	v.SetDefault("retry_max_attempts", 1)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("output_dir", ".")
	v.SetDefault("on_error", OnErrorHalt)
	v.SetDefault("write_manifest", false)
	v.SetDefault("log_level", "warn")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".appforge"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	c.OnError = strings.ToLower(strings.TrimSpace(c.OnError))
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return &c, nil
}
