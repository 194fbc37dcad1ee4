package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.EndpointAddr)
	assert.Equal(t, 24*time.Hour, cfg.SessionTokenValidity)
	assert.Equal(t, 5*time.Minute, cfg.SessionStaleAfter)
	assert.Equal(t, 5, cfg.AuthRateLimit)
	assert.NotEmpty(t, cfg.DatabaseDSN)
	assert.NotEmpty(t, cfg.S3Bucket)
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_Overlay(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{
		"endpoint_addr":          ":9090",
		"secret_key":             "json-secret",
		"session_token_validity": "12h",
		"session_stale_after":    "2m",
		"auth_rate_limit":        20,
	})

	os.Args = []string{"testbin", "-config", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, ":9090", cfg.EndpointAddr)
	assert.Equal(t, "json-secret", cfg.SecretKey)
	assert.Equal(t, 12*time.Hour, cfg.SessionTokenValidity)
	assert.Equal(t, 2*time.Minute, cfg.SessionStaleAfter)
	assert.Equal(t, 20, cfg.AuthRateLimit)

	// absent fields keep defaults
	assert.Equal(t, "us-east-1", cfg.S3Region)
}

func Test_parseFlags_Overrides(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"testbin",
		"-a", ":7070",
		"-d", "postgres://test/db",
		"-s", "flag-secret",
		"-t", "30",
		"-b", "backups",
	}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, ":7070", cfg.EndpointAddr)
	assert.Equal(t, "postgres://test/db", cfg.DatabaseDSN)
	assert.Equal(t, "flag-secret", cfg.SecretKey)
	assert.Equal(t, 30*time.Minute, cfg.SessionTokenValidity)
	assert.Equal(t, "backups", cfg.S3Bucket)
}

func Test_FlagsOverrideJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{"endpoint_addr": ":9090"})
	os.Args = []string{"testbin", "-config", path, "-a", ":7070"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)

	assert.Equal(t, ":7070", cfg.EndpointAddr)
}
