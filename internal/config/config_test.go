package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ROADMAP_CONFIG_PATH",
		"ROADMAP_CONTENT_DIR",
		"ROADMAP_PUBLIC_DIR",
		"ROADMAP_SERVER_HOST",
		"ROADMAP_SERVER_PORT",
		"ROADMAP_TRANSPORT_MODE",
		"ROADMAP_DB_PATH",
		"ROADMAP_LOG_LEVEL",
		"ROADMAP_LOG_PATH",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, "_content", cfg.Content.Dir)
	require.Equal(t, "public", cfg.Content.PublicDir)
	require.Equal(t, ModeStdio, cfg.Transport.Mode)
	require.Equal(t, "roadmap.db", cfg.DB.Path)
	require.Equal(t, "127.0.0.1:8080", cfg.Addr())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "roadmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
content:
  dir: site/_content
  public_dir: site/public
server:
  port: 9090
log:
  level: debug
`), 0o644))

	t.Setenv("ROADMAP_CONFIG_PATH", path)
	t.Setenv("ROADMAP_PUBLIC_DIR", "dist")
	t.Setenv("ROADMAP_TRANSPORT_MODE", "http")
	t.Setenv("ROADMAP_LOG_PATH", "/tmp/roadmap.log")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "site/_content", cfg.Content.Dir)
	require.Equal(t, "dist", cfg.Content.PublicDir)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, ModeHTTP, cfg.Transport.Mode)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "/tmp/roadmap.log", cfg.Log.Path)
}

func TestLoad_EmptyDBPathDisablesLedger(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROADMAP_DB_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Empty(t, cfg.DB.Path)
}

func TestLoad_InvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROADMAP_SERVER_PORT", "eighty")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "ROADMAP_SERVER_PORT")
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROADMAP_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Transport.Mode = "grpc"
	cfg.Log.Level = "loud"
	cfg.Content.Dir = " "

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	require.Contains(t, err.Error(), "transport.mode")
	require.Contains(t, err.Error(), "log.level")
	require.Contains(t, err.Error(), "content.dir")

	require.NoError(t, Default().Validate())
}
