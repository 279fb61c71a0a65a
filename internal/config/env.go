package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultEnvFiles are probed in order by LoadEnv
var DefaultEnvFiles = []string{".env", ".env.local"}

// LoadEnv loads the first env file that exists. Returns the loaded path, or
// "" when none was found; missing files are not an error because the
// variables may be set by the process environment.
func LoadEnv(paths ...string) (string, error) {
	if len(paths) == 0 {
		paths = DefaultEnvFiles
	}

	for _, envPath := range paths {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			return "", fmt.Errorf("error loading %s file: %w", envPath, err)
		}
		return envPath, nil
	}
	return "", nil
}

// validateAPIKeys rejects credentials that are obviously malformed so the
// service fails at startup instead of on the first upload.
func validateAPIKeys(c *Config) error {
	if key := c.Providers.OpenAI.APIKey; c.Providers.OpenAI.Enabled && key != "" {
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OPENAI_API_KEY format: must start with 'sk-'")
		}
		if len(key) < 20 {
			return fmt.Errorf("invalid OPENAI_API_KEY format: too short")
		}
	}

	if key := c.Providers.Gemini.APIKey; c.Providers.Gemini.Enabled && key != "" {
		if !strings.HasPrefix(key, "AIza") {
			return fmt.Errorf("invalid GEMINI_API_KEY format: must start with 'AIza'")
		}
		if len(key) < 30 {
			return fmt.Errorf("invalid GEMINI_API_KEY format: too short")
		}
	}

	if key := c.Providers.AssemblyAI.APIKey; c.Providers.AssemblyAI.Enabled && strings.ContainsAny(key, " \t\n") {
		return fmt.Errorf("invalid ASSEMBLYAI_API_KEY format: contains whitespace")
	}
	return nil
}
