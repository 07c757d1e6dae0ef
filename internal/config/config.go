package config

import (
	"os"
	"strconv"
	"time"

	"formsheet/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Mail   MailConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port      string
	AdminPort string
}

// StoreConfig holds tabular store settings
type StoreConfig struct {
	SheetFile   string
	SheetName   string
	DatabaseURL string
	LockTimeout time.Duration
	Timezone    string
}

// MailConfig holds notification mailer settings
type MailConfig struct {
	Enabled  bool
	SMTPHost string
	SMTPPort string
	From     string
	To       string
	Subject  string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: loadServerConfig(),
		Store:  loadStoreConfig(),
		Mail:   loadMailConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:      getEnvOrDefault("PORT", "8080"),
		AdminPort: getEnvOrDefault("ADMIN_PORT", "8090"),
	}
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{
		SheetFile:   getEnvOrDefault("SHEET_FILE", "candidatures.xlsx"),
		SheetName:   getEnvOrDefault("SHEET_NAME", "Réponses"),
		DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
		LockTimeout: getEnvDurationOrDefault("LOCK_TIMEOUT", 30*time.Second),
		Timezone:    getEnvOrDefault("TIMEZONE", ""),
	}
}

func loadMailConfig() MailConfig {
	return MailConfig{
		Enabled:  getEnvBoolOrDefault("NOTIFY_ENABLED", false),
		SMTPHost: getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort: getEnvOrDefault("SMTP_PORT", "587"),
		From:     getEnvOrDefault("MAIL_FROM", ""),
		To:       getEnvOrDefault("MAIL_TO", ""),
		Subject:  getEnvOrDefault("MAIL_SUBJECT", "🚀 Nouvelle candidature ambassadeur Code Arena 2025"),
	}
}

func validateConfig(config *Config) error {
	if config.Store.SheetFile == "" && config.Store.DatabaseURL == "" {
		return errors.ConfigInvalid("either SHEET_FILE or DATABASE_URL is required")
	}
	if config.Store.LockTimeout <= 0 {
		return errors.ConfigInvalid("LOCK_TIMEOUT must be positive")
	}
	if config.Mail.Enabled {
		if config.Mail.SMTPHost == "" {
			return errors.ConfigInvalid("SMTP_HOST is required when notifications are enabled")
		}
		if config.Mail.From == "" || config.Mail.To == "" {
			return errors.ConfigInvalid("MAIL_FROM and MAIL_TO are required when notifications are enabled")
		}
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
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
