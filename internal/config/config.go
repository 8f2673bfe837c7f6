// ABOUTME: Configuration loading and parsing for docchat
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable overriding the config
// file location.
const EnvConfigPath = "DOCCHAT_CONFIG"

// Config represents the complete docchat configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	Streaming StreamingConfig `yaml:"streaming"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds backend address configuration
type ServerConfig struct {
	URL string `yaml:"url"`
}

// CacheConfig holds local conversation cache configuration
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// StreamingConfig holds simulated streaming configuration
type StreamingConfig struct {
	Simulate bool          `yaml:"simulate"`
	Batch    int           `yaml:"batch"`
	Tick     time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TickRaw string `yaml:"tick"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Server: ServerConfig{URL: "http://localhost:8000"},
		Cache:  CacheConfig{Enabled: true, Path: defaultCachePath()},
		Streaming: StreamingConfig{
			Simulate: true,
			Batch:    3,
			Tick:     40 * time.Millisecond,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load resolves the config file location and parses it. A missing file
// at every default location yields Default() rather than an error; an
// explicit path from DOCCHAT_CONFIG must exist.
func Load() (*Config, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return LoadFromPath(path)
	}

	for _, path := range defaultLocations() {
		cfg, err := LoadFromPath(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return cfg, err
	}
	return Default(), nil
}

// LoadFromPath reads a configuration file from the given path.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values. Fields left
// out of the file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	if !strings.HasPrefix(c.Server.URL, "http://") && !strings.HasPrefix(c.Server.URL, "https://") {
		return fmt.Errorf("server.url must start with http:// or https://")
	}

	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required when the cache is enabled")
	}

	if c.Streaming.Simulate {
		if c.Streaming.Batch < 1 {
			return fmt.Errorf("streaming.batch must be at least 1")
		}
		if c.Streaming.Tick <= 0 {
			return fmt.Errorf("streaming.tick must be positive")
		}
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Streaming.TickRaw != "" {
		tick, err := time.ParseDuration(cfg.Streaming.TickRaw)
		if err != nil {
			return fmt.Errorf("parsing streaming.tick %q: %w", cfg.Streaming.TickRaw, err)
		}
		cfg.Streaming.Tick = tick
	}
	return nil
}

func defaultLocations() []string {
	locations := []string{"docchat.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		locations = append(locations, filepath.Join(dir, "docchat", "config.yaml"))
	}
	return locations
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "docchat.db"
	}
	return filepath.Join(dir, "docchat", "cache.db")
}
