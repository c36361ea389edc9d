// Package config provides configuration loading and management for Studio.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/toolforge/studio/persona"
)

// Config represents the complete Studio configuration
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Server   ServerConfig   `yaml:"server"`
	Mock     MockConfig     `yaml:"mock"`
	NATS     NATSConfig     `yaml:"nats"`
	Persona  PersonaConfig  `yaml:"persona"`
	Speech   SpeechConfig   `yaml:"speech"`
	Images   ImagesConfig   `yaml:"images"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ProviderConfig selects and tunes the stream provider
type ProviderConfig struct {
	// Name is the registered provider to stream from (default: "mock")
	Name string `yaml:"name"`
	// Timeout is the maximum duration of one streamed turn
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	// Listen is the address the server binds to
	Listen string `yaml:"listen"`
}

// MockConfig tunes the scripted provider's pacing. Zero delays are
// valid and useful for tests.
type MockConfig struct {
	// WordDelayMin is the lower bound between streamed words
	WordDelayMin time.Duration `yaml:"word_delay_min"`
	// WordDelayMax is the upper bound between streamed words
	WordDelayMax time.Duration `yaml:"word_delay_max"`
	// ToolDelay is the pause between emitted tool-call blocks
	ToolDelay time.Duration `yaml:"tool_delay"`
}

// NATSConfig configures session persistence
type NATSConfig struct {
	// URL is the NATS server URL (empty = persistence disabled)
	URL string `yaml:"url"`
	// SessionTTL is how long saved sessions are retained
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// PersonaConfig configures the avatar personalities
type PersonaConfig struct {
	// Default is the persona used when a session does not pick one
	Default string `yaml:"default"`
	// ScriptDir overrides the embedded conversation scripts; files in
	// this directory are hot-reloaded
	ScriptDir string `yaml:"script_dir"`
}

// SpeechConfig configures spoken replies. The API key comes from the
// environment, never from a config file.
type SpeechConfig struct {
	// Enabled turns voice synthesis on
	Enabled bool `yaml:"enabled"`
	// BaseURL overrides the synthesis endpoint
	BaseURL string `yaml:"base_url"`
}

// ImagesConfig configures workflow illustration. The API key comes from
// the environment, never from a config file.
type ImagesConfig struct {
	// Enabled turns image generation on
	Enabled bool `yaml:"enabled"`
	// BaseURL overrides the generation endpoint
	BaseURL string `yaml:"base_url"`
}

// MetricsConfig configures the metrics surface
type MetricsConfig struct {
	// Namespace prefixes every exported metric
	Namespace string `yaml:"namespace"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:    "mock",
			Timeout: 5 * time.Minute,
		},
		Server: ServerConfig{
			Listen: ":8090",
		},
		Mock: MockConfig{
			WordDelayMin: 30 * time.Millisecond,
			WordDelayMax: 80 * time.Millisecond,
			ToolDelay:    80 * time.Millisecond,
		},
		NATS: NATSConfig{
			URL:        "",
			SessionTTL: 30 * 24 * time.Hour,
		},
		Persona: PersonaConfig{
			Default:   string(persona.DefaultKey),
			ScriptDir: "",
		},
		Speech: SpeechConfig{
			Enabled: false,
		},
		Images: ImagesConfig{
			Enabled: false,
		},
		Metrics: MetricsConfig{
			Namespace: "studio",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Provider.Name == "" {
		return fmt.Errorf("provider.name is required")
	}
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if c.Mock.WordDelayMin < 0 || c.Mock.WordDelayMax < 0 || c.Mock.ToolDelay < 0 {
		return fmt.Errorf("mock delays must not be negative")
	}
	if c.Mock.WordDelayMin > c.Mock.WordDelayMax {
		return fmt.Errorf("mock.word_delay_min must not exceed mock.word_delay_max")
	}
	if c.NATS.SessionTTL <= 0 {
		return fmt.Errorf("nats.session_ttl must be positive")
	}
	if !persona.Known(persona.Key(c.Persona.Default)) {
		return fmt.Errorf("persona.default %q is not a known persona", c.Persona.Default)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Provider
	if other.Provider.Name != "" {
		c.Provider.Name = other.Provider.Name
	}
	if other.Provider.Timeout != 0 {
		c.Provider.Timeout = other.Provider.Timeout
	}

	// Server
	if other.Server.Listen != "" {
		c.Server.Listen = other.Server.Listen
	}

	// Mock
	if other.Mock.WordDelayMin != 0 {
		c.Mock.WordDelayMin = other.Mock.WordDelayMin
	}
	if other.Mock.WordDelayMax != 0 {
		c.Mock.WordDelayMax = other.Mock.WordDelayMax
	}
	if other.Mock.ToolDelay != 0 {
		c.Mock.ToolDelay = other.Mock.ToolDelay
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.SessionTTL != 0 {
		c.NATS.SessionTTL = other.NATS.SessionTTL
	}

	// Persona
	if other.Persona.Default != "" {
		c.Persona.Default = other.Persona.Default
	}
	if other.Persona.ScriptDir != "" {
		c.Persona.ScriptDir = other.Persona.ScriptDir
	}

	// Speech
	if other.Speech.Enabled {
		c.Speech.Enabled = true
	}
	if other.Speech.BaseURL != "" {
		c.Speech.BaseURL = other.Speech.BaseURL
	}

	// Images
	if other.Images.Enabled {
		c.Images.Enabled = true
	}
	if other.Images.BaseURL != "" {
		c.Images.BaseURL = other.Images.BaseURL
	}

	// Metrics
	if other.Metrics.Namespace != "" {
		c.Metrics.Namespace = other.Metrics.Namespace
	}
}
