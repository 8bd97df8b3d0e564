package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_LEVEL", "NOTES_BACKEND", "NOTES_DATA_DIR", "NOTES_FILE",
		"DATABASE_URL", "SQLITE_PATH", "WATCH_NOTES_FILE", "CORS_ORIGINS", "NOTES_REMOTE_URL", "NOTES_REMOTE_TIMEOUT"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendFile, cfg.Backend)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "algorithm_notes.json", cfg.NotesFile)
	assert.True(t, cfg.WatchFile)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 10*time.Second, cfg.RemoteTimeout)
	assert.True(t, filepath.IsAbs(cfg.NotesPath()))
	assert.True(t, strings.HasSuffix(cfg.NotesPath(), filepath.Join("data", "algorithm_notes.json")))
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("NOTES_BACKEND", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/notes.db")
	t.Setenv("WATCH_NOTES_FILE", "false")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("NOTES_REMOTE_TIMEOUT", "3s")

	cfg := FromEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.False(t, cfg.WatchFile)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, 3*time.Second, cfg.RemoteTimeout)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := &Config{Port: "8080", Backend: BackendPostgres, DataDir: "data", NotesFile: "n.json", RemoteTimeout: time.Second}
	assert.Error(t, cfg.Validate(), "postgres backend needs DATABASE_URL")

	cfg.DatabaseURL = "postgres://localhost/notes"
	assert.NoError(t, cfg.Validate())

	cfg.Backend = "mongo"
	assert.Error(t, cfg.Validate())

	cfg.Backend = BackendFile
	cfg.Port = "http"
	assert.Error(t, cfg.Validate())
}

func TestNotesPathAbsolute(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{DataDir: dir, NotesFile: "notes.json"}
	assert.Equal(t, filepath.Join(dir, "notes.json"), cfg.NotesPath())
}
