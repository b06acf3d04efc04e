// Package config resolves settings from defaults, the YAML config file,
// a .env file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskdesk/internal/api"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL   = api.DefaultBaseURL
	DefaultTimeout  = api.DefaultTimeout
	DefaultLogLevel = "info"

	EnvAPIURL    = "TASKDESK_API_URL"
	EnvStateDir  = "TASKDESK_STATE_DIR"
	EnvLogLevel  = "TASKDESK_LOG_LEVEL"
	EnvTimeout   = "TASKDESK_TIMEOUT"
	EnvConfigDir = "TASKDESK_CONFIG_DIR"
)

type Config struct {
	APIURL   string `yaml:"api_url,omitempty"`
	StateDir string `yaml:"state_dir,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
	// Timeout is a Go duration string such as "30s".
	Timeout string `yaml:"timeout,omitempty"`
}

// Path returns the config file location, preferring XDG_CONFIG_HOME.
func Path() (string, error) {
	if configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); configHome != "" {
		return filepath.Join(configHome, "taskdesk", "config.yaml"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "taskdesk", "config.yaml"), nil
}

// DefaultStateDir is where the session db and logs live.
func DefaultStateDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.taskdesk).
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".taskdesk"), nil
}

// Load reads envFile (if present) into the process environment without
// overriding variables already set, then the config file, then env overrides.
// A missing config file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg, err := LoadFile()
	if err != nil {
		return nil, err
	}

	overrideFromEnv(&cfg.APIURL, EnvAPIURL)
	overrideFromEnv(&cfg.StateDir, EnvStateDir)
	overrideFromEnv(&cfg.LogLevel, EnvLogLevel)
	overrideFromEnv(&cfg.Timeout, EnvTimeout)

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if _, err := cfg.TimeoutDuration(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads only the config file, without env overrides or defaults.
// A missing file yields an empty Config.
func LoadFile() (*Config, error) {
	cfg := &Config{}
	path, err := Path()
	if err != nil {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}
	return cfg, nil
}

// Keys are the settings `Set` accepts, in file order.
var Keys = []string{"api_url", "state_dir", "log_level", "timeout"}

// ErrUnknownKey is returned by Set and Get for a key outside Keys.
var ErrUnknownKey = errors.New("unknown config key")

// Set validates and assigns one setting. An empty value clears it so the
// default applies again.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "api_url":
		if value != "" {
			u, err := url.Parse(value)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("invalid api_url %q: want an http(s) URL", value)
			}
			value = strings.TrimRight(value, "/")
		}
		c.APIURL = value
	case "state_dir":
		c.StateDir = value
	case "log_level":
		if value != "" {
			var lvl slog.Level
			if err := lvl.UnmarshalText([]byte(value)); err != nil {
				return fmt.Errorf("invalid log_level %q: want debug, info, warn or error", value)
			}
		}
		c.LogLevel = value
	case "timeout":
		if value != "" {
			if _, err := (&Config{Timeout: value}).TimeoutDuration(); err != nil {
				return err
			}
		}
		c.Timeout = value
	default:
		return fmt.Errorf("%w %q (want one of %s)", ErrUnknownKey, key, strings.Join(Keys, ", "))
	}
	return nil
}

// Get returns one setting by key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "state_dir":
		return c.StateDir, nil
	case "log_level":
		return c.LogLevel, nil
	case "timeout":
		return c.Timeout, nil
	}
	return "", fmt.Errorf("%w %q (want one of %s)", ErrUnknownKey, key, strings.Join(Keys, ", "))
}

func overrideFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() error {
	if strings.TrimSpace(c.APIURL) == "" {
		c.APIURL = DefaultAPIURL
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if strings.TrimSpace(c.Timeout) == "" {
		c.Timeout = DefaultTimeout.String()
	}
	if strings.TrimSpace(c.StateDir) == "" {
		dir, err := DefaultStateDir()
		if err != nil {
			return err
		}
		c.StateDir = dir
	}
	return nil
}

func (c *Config) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(c.Timeout))
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid timeout %q: must not be negative", c.Timeout)
	}
	return d, nil
}

// Save writes the config file, creating its directory.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
