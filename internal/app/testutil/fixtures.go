package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"audio-transcriber/internal/app/api/provider"
	"audio-transcriber/internal/config"
)

// FakeMP3 is an ID3 header followed by one silent MPEG frame header. Good
// enough for anything that only reads bytes.
var FakeMP3 = []byte{
	'I', 'D', '3', 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFB, 0x90, 0x64, 0x00, 0x00, 0x00, 0x00,
}

// WriteAudio writes FakeMP3 to name inside a fresh temp dir
func WriteAudio(t testing.TB, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, FakeMP3, 0o600))
	return path
}

// TestConfig returns a valid configuration that uses only temp paths
func TestConfig(t testing.TB) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Environment = "test"
	cfg.Gateway.TempDir = t.TempDir()
	cfg.Providers.AssemblyAI.APIKey = "test-key"
	return cfg
}

// NewRegistry registers providers in order; the first is the default
func NewRegistry(t testing.TB, providers ...*MockProvider) *provider.DefaultProviderRegistry {
	t.Helper()
	registry := provider.NewProviderRegistry()
	for _, p := range providers {
		require.NoError(t, registry.RegisterProvider(p.Name, p))
	}
	return registry
}

// RequireRemoved fails unless every path is gone
func RequireRemoved(t testing.TB, paths ...string) {
	t.Helper()
	for _, path := range paths {
		_, err := os.Stat(path)
		require.Truef(t, os.IsNotExist(err), "expected %s to be removed", path)
	}
}
