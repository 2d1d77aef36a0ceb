package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"incomedash/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Data    DataConfig    `yaml:"data"`
	Model   ModelConfig   `yaml:"model"`
	Charts  ChartsConfig  `yaml:"charts"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string        `yaml:"port"`
	GinMode         string        `yaml:"gin_mode"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DataConfig holds the dataset source
type DataConfig struct {
	// Path is a .csv/.tsv/.xlsx file or a postgres:// or sqlite:// URL
	Path     string `yaml:"path"`
	Encoding string `yaml:"encoding"`
	// LoadTimeout bounds each dataset and model load; zero disables it
	LoadTimeout time.Duration `yaml:"load_timeout"`
}

// ModelConfig holds the model artifact location
type ModelConfig struct {
	Path string `yaml:"path"`
}

// ChartsConfig holds chart cache settings
type ChartsConfig struct {
	CacheSize int `yaml:"cache_size"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			GinMode:         "release",
			ShutdownTimeout: 10 * time.Second,
		},
		Data: DataConfig{
			Path:        "./input/previsao_de_renda.csv",
			Encoding:    "utf-8",
			LoadTimeout: time.Minute,
		},
		Model:   ModelConfig{Path: "modelo_pipeline.json"},
		Charts:  ChartsConfig{CacheSize: 16},
		Logging: LoggingConfig{Level: "INFO"},
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE, then environment variables, and validates it
func Load() (*Config, error) {
	config := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, errors.Wrap(err, "failed to load configuration file")
		}
	}

	applyEnv(config)

	if err := Validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return nil
}

func applyEnv(config *Config) {
	config.Server.Port = getEnvOrDefault("PORT", config.Server.Port)
	config.Server.GinMode = getEnvOrDefault("GIN_MODE", config.Server.GinMode)
	config.Server.ShutdownTimeout = getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", config.Server.ShutdownTimeout)
	config.Data.Path = getEnvOrDefault("DATASET_PATH", config.Data.Path)
	config.Data.Encoding = getEnvOrDefault("DATASET_ENCODING", config.Data.Encoding)
	config.Data.LoadTimeout = getEnvDurationOrDefault("LOAD_TIMEOUT", config.Data.LoadTimeout)
	config.Model.Path = getEnvOrDefault("MODEL_PATH", config.Model.Path)
	config.Charts.CacheSize = getEnvIntOrDefault("CHART_CACHE_SIZE", config.Charts.CacheSize)
	config.Logging.Level = getEnvOrDefault("LOG_LEVEL", config.Logging.Level)
}

// Validate checks required fields
func Validate(config *Config) error {
	if strings.TrimSpace(config.Data.Path) == "" {
		return errors.ConfigInvalid("dataset path is required")
	}
	if strings.TrimSpace(config.Model.Path) == "" {
		return errors.ConfigInvalid("model path is required")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Data.LoadTimeout < 0 {
		return errors.ConfigInvalid("load timeout cannot be negative")
	}
	if config.Charts.CacheSize <= 0 {
		return errors.ConfigInvalid("chart cache size must be positive")
	}
	switch strings.ToLower(config.Data.Encoding) {
	case "", "utf-8", "utf8", "latin1", "iso-8859-1":
	default:
		return errors.ConfigInvalid("unsupported dataset encoding " + config.Data.Encoding)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
