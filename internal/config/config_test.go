package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("KEYHOLE_BASE_URL", "")
	t.Setenv("KEYHOLE_LOG_LEVEL", "")
	t.Setenv("KEYHOLE_TIMEOUT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverlay(t *testing.T) {
	t.Setenv("KEYHOLE_BASE_URL", "")
	t.Setenv("KEYHOLE_LOG_LEVEL", "")
	t.Setenv("KEYHOLE_TIMEOUT", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
base_url: https://app.example.com/
request_timeout: 3s
cache_dir: ` + dir + `
endpoints:
  current_user: /api/me
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "/api/me", cfg.Endpoints.CurrentUser)
	assert.Equal(t, "/login", cfg.Endpoints.Login, "unset endpoints keep their defaults")
	assert.Equal(t, filepath.Join(dir, "keyhole.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "debug.log"), cfg.LogPath)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: https://file.example.com\n"), 0o600))

	t.Setenv("KEYHOLE_BASE_URL", "https://env.example.com")
	t.Setenv("KEYHOLE_LOG_LEVEL", "debug")
	t.Setenv("KEYHOLE_TIMEOUT", "250ms")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.BaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestTimeout)
}

func TestLoad_BadTimeout(t *testing.T) {
	t.Setenv("KEYHOLE_BASE_URL", "")
	t.Setenv("KEYHOLE_TIMEOUT", "soon")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KEYHOLE_TIMEOUT")
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: [unterminated\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"http", "http://localhost:8000", false},
		{"https", "https://app.example.com", false},
		{"empty", "", true},
		{"no scheme", "app.example.com", true},
		{"ftp", "ftp://app.example.com", true},
		{"no host", "https://", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.BaseURL = tt.baseURL
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_NegativeIntervals(t *testing.T) {
	cfg := Default()
	cfg.SessionCheckInterval = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.RequestTimeout = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestLoad_OptionOverridesEnv(t *testing.T) {
	t.Setenv("KEYHOLE_BASE_URL", "https://env.example.com")

	cfg, err := Load("", WithBaseURL("https://flag.example.com/"))
	require.NoError(t, err)
	assert.Equal(t, "https://flag.example.com", cfg.BaseURL)

	cfg, err = Load("", WithBaseURL(""))
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.BaseURL)
}
