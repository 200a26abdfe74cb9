package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "./badger_data", cfg.Storage.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "http://localhost:8080", cfg.Client.ServerURL)
	assert.False(t, cfg.Scraper.Enabled)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  addr: ":9000"
auth:
  password: from-file
storage:
  path: /tmp/nav
telegram:
  allowed_users: [1, 2]
client:
  server_url: https://nav.example.com/
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("CLOUDNAV_AUTH_PASSWORD", "from-env")
	t.Setenv("CLOUDNAV_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "from-env", cfg.Auth.Password, "env overrides file")
	assert.Equal(t, "/tmp/nav", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []int64{1, 2}, cfg.Telegram.AllowedUsers)
	assert.Equal(t, "https://nav.example.com", cfg.Client.ServerURL)
}

func TestLoadConfig_BrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [oops"), 0o600))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestValidateServer(t *testing.T) {
	var cfg Config
	cfg.Storage.Path = "./data"
	assert.ErrorIs(t, cfg.ValidateServer(), ErrNoPassword)

	cfg.Auth.PasswordHash = "$argon2id$..."
	assert.NoError(t, cfg.ValidateServer())
}
