package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Provider.Name != "mock" {
		t.Errorf("expected default provider mock, got %s", cfg.Provider.Name)
	}
	if cfg.Server.Listen != ":8090" {
		t.Errorf("expected default listen :8090, got %s", cfg.Server.Listen)
	}
	if cfg.Persona.Default != "oracle" {
		t.Errorf("expected default persona oracle, got %s", cfg.Persona.Default)
	}
	if cfg.NATS.SessionTTL != 30*24*time.Hour {
		t.Errorf("expected session TTL of 30 days, got %v", cfg.NATS.SessionTTL)
	}
	if cfg.Speech.Enabled || cfg.Images.Enabled {
		t.Error("expected speech and images disabled by default")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing provider name",
			modify:  func(c *Config) { c.Provider.Name = "" },
			wantErr: true,
		},
		{
			name:    "missing listen address",
			modify:  func(c *Config) { c.Server.Listen = "" },
			wantErr: true,
		},
		{
			name:    "negative mock delay",
			modify:  func(c *Config) { c.Mock.ToolDelay = -time.Second },
			wantErr: true,
		},
		{
			name: "inverted word delay bounds",
			modify: func(c *Config) {
				c.Mock.WordDelayMin = time.Second
				c.Mock.WordDelayMax = time.Millisecond
			},
			wantErr: true,
		},
		{
			name:    "zero session TTL",
			modify:  func(c *Config) { c.NATS.SessionTTL = 0 },
			wantErr: true,
		},
		{
			name:    "unknown default persona",
			modify:  func(c *Config) { c.Persona.Default = "wizard" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp file with config
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
provider:
  name: "mock"
  timeout: 10m
server:
  listen: ":9999"
mock:
  word_delay_min: 5ms
  word_delay_max: 10ms
  tool_delay: 20ms
nats:
  url: "nats://test:4222"
  session_ttl: 72h
persona:
  default: "spark"
  script_dir: "/etc/studio/scripts"
speech:
  enabled: true
metrics:
  namespace: "studio_dev"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Provider.Timeout != 10*time.Minute {
		t.Errorf("expected timeout 10m, got %v", cfg.Provider.Timeout)
	}
	if cfg.Server.Listen != ":9999" {
		t.Errorf("expected listen :9999, got %s", cfg.Server.Listen)
	}
	if cfg.Mock.WordDelayMin != 5*time.Millisecond {
		t.Errorf("expected word delay min 5ms, got %v", cfg.Mock.WordDelayMin)
	}
	if cfg.NATS.URL != "nats://test:4222" {
		t.Errorf("expected NATS URL nats://test:4222, got %s", cfg.NATS.URL)
	}
	if cfg.NATS.SessionTTL != 72*time.Hour {
		t.Errorf("expected session TTL 72h, got %v", cfg.NATS.SessionTTL)
	}
	if cfg.Persona.Default != "spark" {
		t.Errorf("expected persona spark, got %s", cfg.Persona.Default)
	}
	if cfg.Persona.ScriptDir != "/etc/studio/scripts" {
		t.Errorf("expected script dir /etc/studio/scripts, got %s", cfg.Persona.ScriptDir)
	}
	if !cfg.Speech.Enabled {
		t.Error("expected speech enabled")
	}
	if cfg.Metrics.Namespace != "studio_dev" {
		t.Errorf("expected namespace studio_dev, got %s", cfg.Metrics.Namespace)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Persona: PersonaConfig{
			Default: "forge",
		},
		NATS: NATSConfig{
			URL: "nats://override:4222",
		},
	}

	base.Merge(override)

	if base.Persona.Default != "forge" {
		t.Errorf("expected persona forge, got %s", base.Persona.Default)
	}
	if base.NATS.URL != "nats://override:4222" {
		t.Errorf("expected overridden NATS URL, got %s", base.NATS.URL)
	}
	// Listen should remain from base since override didn't set it
	if base.Server.Listen != ":8090" {
		t.Errorf("expected listen to remain default, got %s", base.Server.Listen)
	}
	if base.Mock.ToolDelay != 80*time.Millisecond {
		t.Errorf("expected tool delay to remain default, got %v", base.Mock.ToolDelay)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Persona.Default = "flow"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Persona.Default != "flow" {
		t.Errorf("expected persona flow, got %s", loaded.Persona.Default)
	}
}
