package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override file settings.
const (
	EnvBackend  = "STT_DEMO_BACKEND"
	EnvLanguage = "STT_DEMO_LANGUAGE"
	EnvLogLevel = "STT_DEMO_LOG_LEVEL"
	EnvOpenAI   = "OPENAI_API_KEY"
)

// LoadDotEnv loads variables from the given .env file into the process
// environment. Variables that are already set win. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values with the STT_DEMO_* environment
// variables and picks up OPENAI_API_KEY when no key is configured.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvBackend)); v != "" {
		c.Processing.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLanguage)); v != "" {
		c.Whisper.Language = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = v
	}
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = strings.TrimSpace(os.Getenv(EnvOpenAI))
	}
}
