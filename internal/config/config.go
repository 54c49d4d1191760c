package config

import (
	"fmt"
	"os"
	"time"

	"voxnow-backend/internal/llm"

	"gopkg.in/yaml.v3"
)

// Duration decodes yaml scalars like "30s" or "24h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds application configuration.
type Config struct {
	Server struct {
		Port        string `yaml:"port"`
		Environment string `yaml:"environment"` // "local" or "production"
	} `yaml:"server"`

	Database struct {
		Type string `yaml:"type"` // "sqlite" or "postgres"
		Path string `yaml:"path"` // SQLite path or PostgreSQL URL
	} `yaml:"database"`

	// LLM providers tried in order, with failover
	Providers []llm.ProviderConfig `yaml:"providers"`

	MaxFailuresBeforeSwitch int `yaml:"max_failures_before_switch"`

	Classifier struct {
		Temperature     float32       `yaml:"temperature"`
		MaxOutputTokens int           `yaml:"max_output_tokens"`
		MaxAttempts     int           `yaml:"max_attempts"`
		AttemptTimeout  Duration      `yaml:"attempt_timeout"`
	} `yaml:"classifier"`

	Chat struct {
		APIKey    string `yaml:"api_key"`
		BaseURL   string `yaml:"base_url"`
		ModelName string `yaml:"model_name"`
	} `yaml:"chat"`

	Auth struct {
		JWTSecret string   `yaml:"jwt_secret"`
		TokenTTL  Duration `yaml:"token_ttl"`
		// Optional initial admin, created only when the users table is empty
		BootstrapUsername string `yaml:"bootstrap_username"`
		BootstrapPassword string `yaml:"bootstrap_password"`
	} `yaml:"auth"`

	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
}

// LoadConfig loads configuration from a YAML file and applies defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	applyDefaults(config)

	// Expand environment variables in secrets
	for i := range config.Providers {
		config.Providers[i].APIKey = os.ExpandEnv(config.Providers[i].APIKey)
	}
	config.Chat.APIKey = os.ExpandEnv(config.Chat.APIKey)
	config.Auth.JWTSecret = os.ExpandEnv(config.Auth.JWTSecret)
	config.Auth.BootstrapPassword = os.ExpandEnv(config.Auth.BootstrapPassword)
	config.Telegram.BotToken = os.ExpandEnv(config.Telegram.BotToken)

	if config.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required")
	}

	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.Environment == "" {
		config.Server.Environment = "local"
	}
	if config.Database.Type == "" {
		config.Database.Type = "sqlite"
	}
	if config.Database.Path == "" {
		config.Database.Path = "./data/voxnow.db"
	}
	if config.MaxFailuresBeforeSwitch == 0 {
		config.MaxFailuresBeforeSwitch = 3
	}
	if config.Classifier.Temperature == 0 {
		config.Classifier.Temperature = 0.2
	}
	if config.Classifier.MaxOutputTokens == 0 {
		config.Classifier.MaxOutputTokens = 500
	}
	if config.Classifier.MaxAttempts == 0 {
		config.Classifier.MaxAttempts = 3
	}
	if config.Classifier.AttemptTimeout == 0 {
		config.Classifier.AttemptTimeout = Duration(30 * time.Second)
	}
	if config.Chat.BaseURL == "" {
		config.Chat.BaseURL = "https://api.openai.com/v1"
	}
	if config.Chat.ModelName == "" {
		config.Chat.ModelName = "gpt-4o-mini"
	}
	if config.Auth.TokenTTL == 0 {
		config.Auth.TokenTTL = Duration(24 * time.Hour)
	}
}
