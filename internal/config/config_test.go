package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvConfigFile, EnvCatalogURL, EnvCatalogFile, EnvPort, EnvStorePath, EnvRefreshSchedule} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "3002", cfg.Server.Port)
	assert.True(t, cfg.Thumbnails.Dedupe)
	assert.False(t, cfg.HasCatalogSource())
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "videohub.yaml", `
server:
  port: "8080"
catalog:
  url: https://cdn.example.com/catalog.json
  prefer_local: false
thumbnails:
  concurrency: 4
  timeout: 5s
  dedupe: false
refresh:
  schedule: "0 */15 * * * *"
log:
  debug: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "https://cdn.example.com/catalog.json", cfg.Catalog.URL)
	assert.False(t, cfg.Catalog.PreferLocal)
	assert.Equal(t, 4, cfg.Thumbnails.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Thumbnails.Timeout)
	assert.False(t, cfg.Thumbnails.Dedupe)
	assert.Equal(t, int64(10<<20), cfg.Thumbnails.MaxBytes, "unset keys keep defaults")
	assert.Equal(t, int64(40_000_000), cfg.Thumbnails.MaxPixels)
	assert.Equal(t, "0 */15 * * * *", cfg.Refresh.Schedule)
	assert.True(t, cfg.Log.Debug)
	assert.True(t, cfg.HasCatalogSource())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "videohub.yaml", "catalog:\n  url: https://a.example.com/c.json\n")

	t.Setenv(EnvCatalogURL, "https://b.example.com/c.json")
	t.Setenv(EnvCatalogFile, "/srv/catalog.json")
	t.Setenv(EnvPort, "9000")
	t.Setenv(EnvStorePath, filepath.Join(dir, "x.db"))
	t.Setenv(EnvRefreshSchedule, "@every 1h")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://b.example.com/c.json", cfg.Catalog.URL)
	assert.Equal(t, "/srv/catalog.json", cfg.Catalog.File)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "x.db"), cfg.Store.Path)
	assert.Equal(t, "@every 1h", cfg.Refresh.Schedule)
}

func TestLoadConfigFileFromEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "env.yaml", "server:\n  port: \"4000\"\n")
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "4000", cfg.Server.Port)
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "bad.yaml", "server: [unterminated\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"non-numeric port", func(c *Config) { c.Server.Port = "http" }},
		{"port out of range", func(c *Config) { c.Server.Port = "70000" }},
		{"zero concurrency", func(c *Config) { c.Thumbnails.Concurrency = 0 }},
		{"zero max bytes", func(c *Config) { c.Thumbnails.MaxBytes = 0 }},
		{"zero max pixels", func(c *Config) { c.Thumbnails.MaxPixels = 0 }},
		{"zero timeout", func(c *Config) { c.Thumbnails.Timeout = 0 }},
		{"negative rate limit", func(c *Config) { c.Thumbnails.RateLimit = -1 }},
		{"negative max clients", func(c *Config) { c.Server.MaxClients = -1 }},
		{"empty store path", func(c *Config) { c.Store.Path = "" }},
	}

	require.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
