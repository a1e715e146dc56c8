package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
model:
  path: /srv/model.onnx
  url: https://example.com/model.onnx
database:
  type: postgres
  connection_string: postgres://localhost:5432/alzheimers
cache:
  redis_addr: localhost:6379
  ttl: 5m
log:
  level: debug
  development: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/srv/model.onnx", cfg.Model.Path)
	assert.Equal(t, "models/model_metadata.json", cfg.Model.MetadataPath)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Log.Development)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\ndatabase:\n  type: sqlite\n  connection_string: file.db\n")
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_DRIVER", "mysql")
	t.Setenv("DATABASE_DSN", "root:pw@tcp(localhost:3306)/Alzheimers")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Type)
	assert.Equal(t, "root:pw@tcp(localhost:3306)/Alzheimers", cfg.Database.ConnectionString)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 6060\n")
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "database:\n  type: oracle\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [\n"))
	assert.Error(t, err)

	t.Setenv("PORT", "eighty")
	_, err = Load(writeConfig(t, ""))
	assert.Error(t, err)
}
