// Package config loads the optional daemonizer configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable consulted when no --config flag is
// given.
const EnvVar = "DAEMONIZER_CONFIG"

// Config holds launch defaults. Every field is optional; command-line
// flags take precedence.
type Config struct {
	Log             string            `yaml:"log"`
	PID             string            `yaml:"pid"`
	KeepEnvironment bool              `yaml:"keep_environment"`
	Command         string            `yaml:"command"`
	SearchPath      string            `yaml:"search_path"`
	Shell           string            `yaml:"shell"`
	EnvStrategy     string            `yaml:"env_strategy"`
	Adoption        AdoptionConfig    `yaml:"adoption"`
	Signals         map[string]string `yaml:"signals"`
}

// AdoptionConfig tunes the wait for the daemon's reparenting.
type AdoptionConfig struct {
	Interval        time.Duration `yaml:"interval"`
	Attempts        int           `yaml:"attempts"`
	AcceptSubreaper bool          `yaml:"accept_subreaper"`
}

// Path returns the configuration file to load: flagValue when set,
// otherwise $DAEMONIZER_CONFIG. Empty means no file.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvVar)
}

// Load reads path. An empty path yields an empty Config. Unlike an implicit
// default location, an explicitly named file must exist.
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values that can never work.
func (c *Config) Validate() error {
	if c.Adoption.Interval < 0 {
		return fmt.Errorf("adoption.interval must not be negative, got %s", c.Adoption.Interval)
	}
	if c.Adoption.Attempts < 0 {
		return fmt.Errorf("adoption.attempts must not be negative, got %d", c.Adoption.Attempts)
	}
	if _, err := c.CommandArgs(); err != nil {
		return err
	}
	return nil
}

// CommandArgs splits Command with shell quoting rules. It returns nil when
// no command is configured.
func (c *Config) CommandArgs() ([]string, error) {
	if c.Command == "" {
		return nil, nil
	}
	args, err := shlex.Split(c.Command)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", c.Command, err)
	}
	return args, nil
}
