package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default values for Config.
const (
	DefaultClockKeyword  = "traktor"
	DefaultBeatsPerBar   = 4
	DefaultBarsPerPhrase = 4
	DefaultOutputChannel = 1
)

// ClockConfig selects the MIDI clock source and the musical divisions the
// tracker counts with.
type ClockConfig struct {
	DeviceKeyword string `yaml:"device_keyword"`
	BeatsPerBar   int    `yaml:"beats_per_bar"`
	BarsPerPhrase int    `yaml:"bars_per_phrase"`
}

// OutputConfig names the MIDI port the light software listens on.
type OutputConfig struct {
	PortName string `yaml:"port_name"`
	Channel  uint8  `yaml:"channel"`
}

// Config is ~/.config/lightpilot/config.yaml.
type Config struct {
	Clock  ClockConfig  `yaml:"clock"`
	Output OutputConfig `yaml:"output"`
	Debug  bool         `yaml:"debug"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Clock: ClockConfig{
			DeviceKeyword: DefaultClockKeyword,
			BeatsPerBar:   DefaultBeatsPerBar,
			BarsPerPhrase: DefaultBarsPerPhrase,
		},
		Output: OutputConfig{
			Channel: DefaultOutputChannel,
		},
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Dir returns the config directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lightpilot"), nil
}

// Path returns the full path to config.yaml.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads and parses the config file at path. A missing file yields the
// defaults; missing fields keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that all config values are valid.
func Validate(cfg *Config) error {
	if cfg.Clock.DeviceKeyword == "" {
		return ValidationError{Field: "clock.device_keyword", Message: "must not be empty"}
	}
	if cfg.Clock.BeatsPerBar <= 0 {
		return ValidationError{Field: "clock.beats_per_bar", Message: "must be positive"}
	}
	if cfg.Clock.BarsPerPhrase <= 0 {
		return ValidationError{Field: "clock.bars_per_phrase", Message: "must be positive"}
	}
	if cfg.Output.Channel < 1 || cfg.Output.Channel > 16 {
		return ValidationError{Field: "output.channel", Message: "must be between 1 and 16"}
	}
	return nil
}

// Save writes the config to path, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
