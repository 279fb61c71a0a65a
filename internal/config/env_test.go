package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TRANSCRIBER_TEST_ENV_VALUE=from-file\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("TRANSCRIBER_TEST_ENV_VALUE") })

	loaded, err := LoadEnv(filepath.Join(dir, "missing.env"), envFile)
	require.NoError(t, err)
	assert.Equal(t, envFile, loaded)
	assert.Equal(t, "from-file", os.Getenv("TRANSCRIBER_TEST_ENV_VALUE"))
}

func TestLoadEnvNoFiles(t *testing.T) {
	loaded, err := LoadEnv(filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestValidateAPIKeys(t *testing.T) {
	testCases := []struct {
		name          string
		mutate        func(c *Config)
		expectError   bool
		errorContains string
	}{
		{
			name:   "assemblyai key only",
			mutate: func(c *Config) {},
		},
		{
			name: "valid OpenAI key",
			mutate: func(c *Config) {
				c.Providers.OpenAI.Enabled = true
				c.Providers.OpenAI.APIKey = "sk-1234567890abcdef1234567890abcdef"
			},
		},
		{
			name: "invalid OpenAI key format",
			mutate: func(c *Config) {
				c.Providers.OpenAI.Enabled = true
				c.Providers.OpenAI.APIKey = "invalid-key"
			},
			expectError:   true,
			errorContains: "invalid OPENAI_API_KEY format",
		},
		{
			name: "OpenAI key too short",
			mutate: func(c *Config) {
				c.Providers.OpenAI.Enabled = true
				c.Providers.OpenAI.APIKey = "sk-short"
			},
			expectError:   true,
			errorContains: "too short",
		},
		{
			name: "disabled provider keys are ignored",
			mutate: func(c *Config) {
				c.Providers.OpenAI.APIKey = "invalid-key"
				c.Providers.Gemini.APIKey = "invalid-key"
			},
		},
		{
			name: "invalid Gemini key format",
			mutate: func(c *Config) {
				c.Providers.Gemini.Enabled = true
				c.Providers.Gemini.APIKey = "invalid-key"
			},
			expectError:   true,
			errorContains: "invalid GEMINI_API_KEY format",
		},
		{
			name: "assemblyai key with whitespace",
			mutate: func(c *Config) {
				c.Providers.AssemblyAI.APIKey = "abc def"
			},
			expectError:   true,
			errorContains: "whitespace",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Providers.AssemblyAI.APIKey = "0123456789abcdef0123456789abcdef"
			tc.mutate(cfg)

			err := validateAPIKeys(cfg)
			if tc.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errorContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
