package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "", cfg.Server.PublicURL)
	assert.Equal(t, 5, cfg.Server.MaxConnsPerIP)
	assert.Equal(t, 1000, cfg.Server.MaxTotalConns)
	assert.Equal(t, 100, cfg.Room.MaxRooms)
	assert.Equal(t, 2*time.Minute, cfg.Room.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.Room.SweepInterval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "", cfg.Auth.Secret)
	assert.False(t, cfg.Auth.Required)
	assert.Equal(t, "", cfg.Analytics.Path)
	assert.Equal(t, 5*time.Second, cfg.Analytics.FlushInterval)
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	path := writeConfig(t, "arena.json", `{
		"server": { "addr": ":9000", "publicUrl": "https://arena.example" },
		"room": { "maxRooms": 8, "idleTimeout": "45s" },
		"log": { "level": "debug", "format": "json" }
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "https://arena.example", cfg.Server.PublicURL)
	assert.Equal(t, 8, cfg.Room.MaxRooms)
	assert.Equal(t, 45*time.Second, cfg.Room.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.Room.SweepInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfig(t, "arena.yaml", "analytics:\n  path: /tmp/arena.db\n  flushInterval: 1s\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/arena.db", cfg.Analytics.Path)
	assert.Equal(t, time.Second, cfg.Analytics.FlushInterval)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "arena.json", `{"room": {"maxRooms": 8}}`)
	t.Setenv("ARENA_ROOM_MAXROOMS", "3")
	t.Setenv("ARENA_AUTH_SECRET", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Room.MaxRooms)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/arena.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, "arena.json", `{
		"room": { "maxRooms": 0 },
		"log": { "format": "xml" },
		"auth": { "required": true }
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "room.maxRooms")
	assert.Contains(t, err.Error(), "log.format")
	assert.Contains(t, err.Error(), "auth.required")
}
