package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("COURSEHUB_API_URL", "")
	t.Setenv("COURSEHUB_TOKEN_FILE", "")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CHAT_ROOM", "")
	t.Setenv("CHAT_ARCHIVE_REDIS_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api/v1", cfg.API.BaseURL)
	assert.Equal(t, "http://localhost:8000", cfg.API.RootURL())
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, "room1", cfg.Chat.Room)
	assert.Equal(t, 30*time.Second, cfg.Chat.PingInterval)
	assert.Equal(t, ".coursehub", filepath.Base(filepath.Dir(cfg.Auth.TokenFile)))
	assert.False(t, cfg.Archive.Enabled())
	assert.Equal(t, "chat:transcripts", cfg.Archive.Stream)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COURSEHUB_API_URL", "https://learn.example.com/api/v1/")
	t.Setenv("COURSEHUB_HTTP_TIMEOUT", "5")
	t.Setenv("COURSEHUB_TOKEN_FILE", "/tmp/token")
	t.Setenv("CHAT_ROOM", "course-42")
	t.Setenv("CHAT_PING_INTERVAL", "2s")
	t.Setenv("CHAT_READ_TIMEOUT", "5s")
	t.Setenv("CHAT_ARCHIVE_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://learn.example.com/api/v1", cfg.API.BaseURL)
	assert.Equal(t, "https://learn.example.com", cfg.API.RootURL())
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "/tmp/token", cfg.Auth.TokenFile)
	assert.Equal(t, "course-42", cfg.Chat.Room)
	assert.Equal(t, 2*time.Second, cfg.Chat.PingInterval)
	assert.True(t, cfg.Archive.Enabled())
}

func TestLoadArchiveDisabledFlag(t *testing.T) {
	t.Setenv("COURSEHUB_TOKEN_FILE", "/tmp/token")
	t.Setenv("CHAT_ARCHIVE_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("CHAT_ARCHIVE_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Archive.Enabled())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad scheme", "COURSEHUB_API_URL", "ftp://example.com"},
		{"missing host", "COURSEHUB_API_URL", "http://"},
		{"bad duration", "CHAT_WRITE_TIMEOUT", "soon"},
		{"negative duration", "CHAT_HANDSHAKE_TIMEOUT", "-3"},
		{"read below ping", "CHAT_READ_TIMEOUT", "1s"},
		{"bad bool", "CHAT_ARCHIVE_ENABLED", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("COURSEHUB_TOKEN_FILE", "/tmp/token")
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
