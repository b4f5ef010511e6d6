// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/GalaxyBotTeam/captcha-gate/internal/captcha"
)

// Config holds all application configuration.
type Config struct {
	Port         string
	DBPath       string
	GatewayURL   string
	GatewayToken string

	// Captcha holds the process-wide verification defaults; individual
	// presentations may override them per call.
	Captcha captcha.Config
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	defaults := captcha.DefaultConfig()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DBPath:       getEnv("DB_PATH", "./data/captcha-gate.db"),
		GatewayURL:   getEnv("GATEWAY_URL", ""),
		GatewayToken: getEnv("GATEWAY_TOKEN", ""),
		Captcha: captcha.Config{
			RoleID:            getEnv("CAPTCHA_ROLE_ID", ""),
			ChannelID:         getEnv("CAPTCHA_CHANNEL_ID", ""),
			SendToTextChannel: getEnvBool("CAPTCHA_SEND_TO_TEXT_CHANNEL", defaults.SendToTextChannel),
			AddRoleOnSuccess:  getEnvBool("CAPTCHA_ADD_ROLE_ON_SUCCESS", defaults.AddRoleOnSuccess),
			KickOnFailure:     getEnvBool("CAPTCHA_KICK_ON_FAILURE", defaults.KickOnFailure),
			CaseSensitive:     getEnvBool("CAPTCHA_CASE_SENSITIVE", defaults.CaseSensitive),
			Attempts:          getEnvInt("CAPTCHA_ATTEMPTS", defaults.Attempts),
			Timeout:           time.Duration(getEnvInt("CAPTCHA_TIMEOUT_MS", int(defaults.Timeout/time.Millisecond))) * time.Millisecond,
			ShowAttemptCount:  getEnvBool("CAPTCHA_SHOW_ATTEMPT_COUNT", defaults.ShowAttemptCount),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.GatewayURL == "" {
		return fmt.Errorf("GATEWAY_URL cannot be empty")
	}
	if c.GatewayToken == "" {
		return fmt.Errorf("GATEWAY_TOKEN cannot be empty")
	}
	if err := c.Captcha.Validate(); err != nil {
		return fmt.Errorf("captcha defaults: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
