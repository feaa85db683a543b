package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the test channel harness.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Channel ChannelConfig `yaml:"channel"`
	Shell   ShellConfig   `yaml:"shell"`
	Logging LoggingConfig `yaml:"logging"`
}

// ChannelConfig contains controller connection settings.
type ChannelConfig struct {
	// Host is the address the simulated controller listens on.
	Host string `yaml:"host"`

	// Port is the controller's test channel port.
	Port int `yaml:"port"`

	// ConnectTimeout is the dial timeout in seconds.
	ConnectTimeout int `yaml:"connect_timeout"`

	// WriteTimeout is the per-frame write timeout in seconds.
	WriteTimeout int `yaml:"write_timeout"`
}

// ShellConfig contains interactive shell settings.
type ShellConfig struct {
	Prompt string `yaml:"prompt"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TESTCHANNEL_SECTION_KEY
// For example: TESTCHANNEL_CHANNEL_HOST, TESTCHANNEL_LOGGING_LEVEL
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment variable
// overrides applied. Used when no config file is present.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// defaultConfig returns a Config with sensible defaults. The default port
// matches the controller's conventional test channel port.
func defaultConfig() *Config {
	return &Config{
		Channel: ChannelConfig{
			Host:           "localhost",
			Port:           6111,
			ConnectTimeout: 10,
			WriteTimeout:   5,
		},
		Shell: ShellConfig{
			Prompt: "$ ",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TESTCHANNEL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Channel
	if v := os.Getenv("TESTCHANNEL_CHANNEL_HOST"); v != "" {
		cfg.Channel.Host = v
	}
	if v := os.Getenv("TESTCHANNEL_CHANNEL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Channel.Port = port
		}
	}

	// Logging
	if v := os.Getenv("TESTCHANNEL_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TESTCHANNEL_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Channel validation
	if c.Channel.Host == "" {
		errs = append(errs, "channel.host is required")
	}
	if c.Channel.Port < 1 || c.Channel.Port > 65535 {
		errs = append(errs, "channel.port must be between 1 and 65535")
	}
	if c.Channel.ConnectTimeout < 0 {
		errs = append(errs, "channel.connect_timeout must not be negative")
	}
	if c.Channel.WriteTimeout < 0 {
		errs = append(errs, "channel.write_timeout must not be negative")
	}

	// Logging validation
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, "logging.format must be json or text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Address returns the controller endpoint as "host:port".
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Channel.Host, c.Channel.Port)
}

// GetConnectTimeout returns the dial timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.Channel.ConnectTimeout) * time.Second
}

// GetWriteTimeout returns the frame write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Channel.WriteTimeout) * time.Second
}
