package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, DirectorySQLite, cfg.Directory)
	assert.Equal(t, "squares.db", cfg.SQLitePath)
	assert.Equal(t, 4, cfg.InitialSquares)
	assert.Equal(t, 8, cfg.SubscriberBuffer)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SQUARES_ADDR", ":9090")
	t.Setenv("SQUARES_DIRECTORY", "sqlite")
	t.Setenv("SQUARES_SQLITE_PATH", "/tmp/p.db")
	t.Setenv("SQUARES_INITIAL_SQUARES", "2")
	t.Setenv("SQUARES_SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, DirectorySQLite, cfg.Directory)
	assert.Equal(t, "/tmp/p.db", cfg.SQLitePath)
	assert.Equal(t, 2, cfg.InitialSquares)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoadDotEnvFile(t *testing.T) {
	// register cleanup for the variable the file sets
	t.Setenv("SQUARES_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("SQUARES_LOG_LEVEL"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SQUARES_LOG_LEVEL=debug\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Config{
		Directory:        DirectoryPostgres,
		InitialSquares:   0,
		SubscriberBuffer: 0,
		LogFormat:        "xml",
	}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"SQUARES_DATABASE_URL", "INITIAL_SQUARES", "SUBSCRIBER_BUFFER", "xml"} {
		assert.Contains(t, err.Error(), want)
	}

	assert.Error(t, Config{Directory: "redis", InitialSquares: 4, SubscriberBuffer: 1, LogFormat: "json"}.Validate())
}
