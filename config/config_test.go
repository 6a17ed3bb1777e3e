package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS URL nats://localhost:4222, got %s", cfg.NATS.URL)
	}
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("expected default provider gemini, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Errorf("expected default temperature 0.2, got %f", cfg.LLM.Temperature)
	}
	if cfg.Auth.TokenTTL != 7*24*time.Hour {
		t.Errorf("expected default token TTL of 7 days, got %s", cfg.Auth.TokenTTL)
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
			name:    "missing server addr",
			modify:  func(c *Config) { c.Server.Addr = "" },
			wantErr: true,
		},
		{
			name:    "missing nats url",
			modify:  func(c *Config) { c.NATS.URL = "" },
			wantErr: true,
		},
		{
			name:    "missing model",
			modify:  func(c *Config) { c.LLM.Model = "" },
			wantErr: true,
		},
		{
			name:    "temperature too low",
			modify:  func(c *Config) { c.LLM.Temperature = -0.1 },
			wantErr: true,
		},
		{
			name:    "temperature too high",
			modify:  func(c *Config) { c.LLM.Temperature = 1.1 },
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

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	other := &Config{}
	other.Server.Addr = ":9090"
	other.LLM.Model = "gemini-2.5-pro"
	other.Redis.TTL = time.Hour

	base.Merge(other)

	if base.Server.Addr != ":9090" {
		t.Errorf("expected merged addr :9090, got %s", base.Server.Addr)
	}
	if base.LLM.Model != "gemini-2.5-pro" {
		t.Errorf("expected merged model gemini-2.5-pro, got %s", base.LLM.Model)
	}
	if base.Redis.TTL != time.Hour {
		t.Errorf("expected merged redis TTL 1h, got %s", base.Redis.TTL)
	}
	// Zero values in other leave base untouched.
	if base.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected NATS URL unchanged, got %s", base.NATS.URL)
	}
	if base.LLM.Provider != "gemini" {
		t.Errorf("expected provider unchanged, got %s", base.LLM.Provider)
	}

	base.Merge(nil) // must not panic
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agromitra.yaml")
	content := `
server:
  addr: ":7070"
llm:
  model: gemini-2.5-flash
  temperature: 0.4
redis:
  addr: localhost:6379
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("expected addr :7070, got %s", cfg.Server.Addr)
	}
	if cfg.LLM.Temperature != 0.4 {
		t.Errorf("expected temperature 0.4, got %f", cfg.LLM.Temperature)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("expected redis addr localhost:6379, got %s", cfg.Redis.Addr)
	}
	// Unset fields keep their defaults.
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS URL, got %s", cfg.NATS.URL)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvNATSURL, "nats://prod:4222")
	t.Setenv(EnvServerAddr, ":80")

	loader := NewLoader(nil)
	cfg := DefaultConfig()
	loader.applyEnv(cfg)

	if cfg.NATS.URL != "nats://prod:4222" {
		t.Errorf("expected env NATS URL, got %s", cfg.NATS.URL)
	}
	if cfg.Server.Addr != ":80" {
		t.Errorf("expected env addr :80, got %s", cfg.Server.Addr)
	}
}
