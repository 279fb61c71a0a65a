package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	_ "audio-transcriber/internal/app/api/assemblyai"
	"audio-transcriber/internal/app/testutil"
	"audio-transcriber/internal/config"
)

func TestInitializeServer(t *testing.T) {
	cfg := testutil.TestConfig(t)

	srv, err := InitializeServer(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestInitializeGatewayUnknownDefault(t *testing.T) {
	cfg := testutil.TestConfig(t)
	cfg.Gateway.DefaultProvider = config.ProviderOpenAI

	_, err := InitializeGateway(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestInitializeGatewaySweepsOrphans(t *testing.T) {
	cfg := testutil.TestConfig(t)
	cfg.Gateway.OrphanMaxAge = time.Minute

	stale := filepath.Join(cfg.Gateway.TempDir, "upload-stale")
	require.NoError(t, os.Mkdir(stale, 0o700))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	gw, err := InitializeGateway(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{config.ProviderAssemblyAI}, gw.Registry().ListProviders())

	testutil.RequireRemoved(t, stale)
}
