package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tourbook/internal/config"
	"tourbook/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("memory", func(t *testing.T) {
		store, db, err := OpenStore(config.DatabaseConfig{Driver: "memory"}, &logger)
		require.NoError(t, err)
		assert.Nil(t, db)
		assert.IsType(t, &repository.MemoryStore{}, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tourbook.db")
		store, db, err := OpenStore(config.DatabaseConfig{Driver: "sqlite", Path: path}, &logger)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		require.NotNil(t, db)
		assert.Equal(t, path, db.Path())
		assert.NoError(t, store.Ping(context.Background()))
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := OpenStore(config.DatabaseConfig{Driver: "mongo"}, &logger)
		assert.Error(t, err)
	})
}

func TestConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, defaultConfigPath, ConfigPath())

	t.Setenv("CONFIG_PATH", "/etc/tourbook.yaml")
	assert.Equal(t, "/etc/tourbook.yaml", ConfigPath())
}

func TestLoadConfigAndLogger(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: memory
logging:
  level: debug
  output: stdout
api:
  auth:
    jwt_secret: secret
`), 0o644))

	cfg, logger, closer, err := LoadConfigAndLogger(path, "test")
	require.NoError(t, err)
	if closer != nil {
		t.Cleanup(func() { _ = closer.Close() })
	}
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.NotNil(t, logger)

	_, _, _, err = LoadConfigAndLogger(filepath.Join(dir, "missing.yaml"), "test")
	assert.Error(t, err)
}
