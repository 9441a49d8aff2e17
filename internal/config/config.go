package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Accounts []AccountConfig `yaml:"accounts"`
	Message  MessageConfig   `yaml:"message"`
	Stealth  StealthConfig   `yaml:"stealth"`
	Database DatabaseConfig  `yaml:"database"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// AccountConfig pairs one account's credentials with its lead list file.
// Credentials live in memory for the run only and are never persisted.
type AccountConfig struct {
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	LeadsFile string `yaml:"leads_file"`
}

// MessageConfig contains the campaign message settings
type MessageConfig struct {
	Template      string `yaml:"template"`
	DelaySeconds  int    `yaml:"delay_seconds"`
	PerAccountCap int    `yaml:"per_account_cap"`
}

// StealthConfig contains anti-detection settings
type StealthConfig struct {
	Headless bool `yaml:"headless"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level    string `yaml:"level"`
	ToFile   bool   `yaml:"to_file"`
	FilePath string `yaml:"file_path"`
}

// Load loads configuration from YAML file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if not present)
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in YAML
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills in unset optional fields.
func (c *Config) applyDefaults() {
	if c.Message.DelaySeconds == 0 {
		c.Message.DelaySeconds = 30
	}
	if c.Message.PerAccountCap == 0 {
		c.Message.PerAccountCap = 50
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/instadm.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "./logs/instadm.log"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("at least one account is required")
	}
	for i, account := range c.Accounts {
		if account.Username == "" {
			return fmt.Errorf("account %d: username is required", i+1)
		}
		if account.Password == "" {
			return fmt.Errorf("account %d (%s): password is required", i+1, account.Username)
		}
		if account.LeadsFile == "" {
			return fmt.Errorf("account %d (%s): leads_file is required", i+1, account.Username)
		}
	}

	if c.Message.Template == "" {
		return fmt.Errorf("message template is required")
	}
	if c.Message.DelaySeconds < 0 {
		return fmt.Errorf("delay_seconds must be non-negative")
	}
	if c.Message.PerAccountCap <= 0 {
		return fmt.Errorf("per_account_cap must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// MessageDelay returns the base inter-message delay as a duration.
func (c *Config) MessageDelay() time.Duration {
	return time.Duration(c.Message.DelaySeconds) * time.Second
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(s string) string {
	// Pattern matches ${VAR} or ${VAR:default}
	pattern := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return pattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := pattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}
