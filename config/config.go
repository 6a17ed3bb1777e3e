// Package config provides configuration loading and management for Agromitra.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Agromitra configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	NATS    NATSConfig    `yaml:"nats"`
	Redis   RedisConfig   `yaml:"redis"`
	LLM     LLMConfig     `yaml:"llm"`
	Weather WeatherConfig `yaml:"weather"`
	Auth    AuthConfig    `yaml:"auth"`
}

// ServerConfig configures the HTTP/WebSocket server
type ServerConfig struct {
	// Addr is the listen address (default: ":8080")
	Addr string `yaml:"addr"`
	// BaseURL is the externally visible base URL, used for blob links
	BaseURL string `yaml:"base_url"`
}

// NATSConfig configures the NATS connection backing entity and blob storage
type NATSConfig struct {
	// URL is the NATS server URL
	URL string `yaml:"url"`
}

// RedisConfig configures the Redis cache used by the weather client
type RedisConfig struct {
	// Addr is the Redis address; empty disables caching
	Addr string `yaml:"addr"`
	// TTL is how long cached weather responses stay valid
	TTL time.Duration `yaml:"ttl"`
}

// LLMConfig configures the AI provider
type LLMConfig struct {
	// Provider selects the provider implementation (default: "gemini")
	Provider string `yaml:"provider"`
	// Model is the default generation model
	Model string `yaml:"model"`
	// Endpoint overrides the provider's default API endpoint
	Endpoint string `yaml:"endpoint"`
	// Temperature controls randomness (0.0-1.0)
	Temperature float64 `yaml:"temperature"`
	// Timeout is the maximum time to wait for model responses
	Timeout time.Duration `yaml:"timeout"`
}

// WeatherConfig configures the OpenWeatherMap client
type WeatherConfig struct {
	// BaseURL is the data API base (default: https://api.openweathermap.org/data/2.5)
	BaseURL string `yaml:"base_url"`
	// GeoBaseURL is the geocoding API base
	GeoBaseURL string `yaml:"geo_base_url"`
	// MapBaseURL is the tile server base
	MapBaseURL string `yaml:"map_base_url"`
}

// AuthConfig configures JWT issuance
type AuthConfig struct {
	// TokenTTL is the access token lifetime (default: 7 days)
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
		Redis: RedisConfig{
			Addr: "",
			TTL:  30 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-flash",
			Temperature: 0.2,
			Timeout:     3 * time.Minute,
		},
		Weather: WeatherConfig{
			BaseURL:    "https://api.openweathermap.org/data/2.5",
			GeoBaseURL: "http://api.openweathermap.org/geo/1.0",
			MapBaseURL: "https://tile.openweathermap.org/map",
		},
		Auth: AuthConfig{
			TokenTTL: 7 * 24 * time.Hour,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		return fmt.Errorf("llm.temperature must be between 0 and 1")
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

	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.BaseURL != "" {
		c.Server.BaseURL = other.Server.BaseURL
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}

	if other.Redis.Addr != "" {
		c.Redis.Addr = other.Redis.Addr
	}
	if other.Redis.TTL != 0 {
		c.Redis.TTL = other.Redis.TTL
	}

	if other.LLM.Provider != "" {
		c.LLM.Provider = other.LLM.Provider
	}
	if other.LLM.Model != "" {
		c.LLM.Model = other.LLM.Model
	}
	if other.LLM.Endpoint != "" {
		c.LLM.Endpoint = other.LLM.Endpoint
	}
	if other.LLM.Temperature != 0 {
		c.LLM.Temperature = other.LLM.Temperature
	}
	if other.LLM.Timeout != 0 {
		c.LLM.Timeout = other.LLM.Timeout
	}

	if other.Weather.BaseURL != "" {
		c.Weather.BaseURL = other.Weather.BaseURL
	}
	if other.Weather.GeoBaseURL != "" {
		c.Weather.GeoBaseURL = other.Weather.GeoBaseURL
	}
	if other.Weather.MapBaseURL != "" {
		c.Weather.MapBaseURL = other.Weather.MapBaseURL
	}

	if other.Auth.TokenTTL != 0 {
		c.Auth.TokenTTL = other.Auth.TokenTTL
	}
}
