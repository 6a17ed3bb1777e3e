package config

import (
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "agromitra.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/agromitra"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"

	// EnvNATSURL overrides nats.url
	EnvNATSURL = "AGROMITRA_NATS_URL"
	// EnvRedisAddr overrides redis.addr
	EnvRedisAddr = "AGROMITRA_REDIS_ADDR"
	// EnvServerAddr overrides server.addr
	EnvServerAddr = "AGROMITRA_ADDR"
)

// Secrets are read from the environment only, never from config files.
const (
	EnvGeminiAPIKey  = "GEMINI_API_KEY"
	EnvWeatherAPIKey = "OPENWEATHERMAP_API_KEY"
	EnvJWTSecret     = "JWT_SECRET_KEY"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/agromitra/config.yaml)
// 3. Project config (agromitra.yaml in current or parent directories)
// 4. Environment variables
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	userConfigPath := l.userConfigPath()
	if userConfig, err := LoadFromFile(userConfigPath); err == nil {
		l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
		config.Merge(userConfig)
	} else if !os.IsNotExist(err) {
		l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
	}

	projectConfigPath := l.findProjectConfig()
	if projectConfigPath != "" {
		if projectConfig, err := LoadFromFile(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(projectConfig)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	l.applyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnv overlays environment variable overrides.
func (l *Loader) applyEnv(config *Config) {
	if url := os.Getenv(EnvNATSURL); url != "" {
		config.NATS.URL = url
	}
	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		config.Redis.Addr = addr
	}
	if addr := os.Getenv(EnvServerAddr); addr != "" {
		config.Server.Addr = addr
	}
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist
func (l *Loader) EnsureUserConfig() error {
	userConfigPath := l.userConfigPath()

	if _, err := os.Stat(userConfigPath); err == nil {
		return nil
	}

	config := DefaultConfig()
	if err := config.SaveToFile(userConfigPath); err != nil {
		return err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for agromitra.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
