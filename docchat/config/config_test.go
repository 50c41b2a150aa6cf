package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"DOCCHAT_API_BASE_URL", "DOCCHAT_STATE_BACKEND", "DOCCHAT_STATE_PATH",
		"DOCCHAT_DB_DRIVER", "DOCCHAT_DB_DSN", "DOCCHAT_LOG_DIR", "DOCCHAT_SUMMARY_DIR",
		"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_SECURE",
		"NATS_URL", "NATS_SUBJECT", "DOCCHAT_BRIDGE_ADDR", "DOCCHAT_BRIDGE_SECRET",
		"DOCCHAT_RECORD_CMD", "DOCCHAT_RECORD_MIME", "DOCCHAT_PLAY_CMD",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	cfg := LoadConfig()

	assert.Equal(t, "http://127.0.0.1:8000", cfg.APIBaseURL)
	assert.Equal(t, "file", cfg.StateBackend)
	assert.Equal(t, filepath.Join(home, ".docchat/state.yaml"), cfg.StatePath)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "./logs", cfg.LogDir)
	assert.Equal(t, "docchat-summaries", cfg.MinIOBucket)
	assert.False(t, cfg.MinIOSecure)
	assert.False(t, cfg.UsesMinIO())
	assert.Equal(t, "docchat.timeline", cfg.NatsSubject)
	assert.Equal(t, ":8787", cfg.BridgeAddr)
	assert.Equal(t, "audio/webm", cfg.RecordMIME)
}

func TestLoadConfig_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOCCHAT_API_BASE_URL", "https://docs.example.com/")
	t.Setenv("DOCCHAT_STATE_BACKEND", "db")
	t.Setenv("DOCCHAT_DB_DRIVER", "postgres")
	t.Setenv("DOCCHAT_DB_DSN", "host=localhost user=docchat dbname=docchat")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_SECURE", "true")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg := LoadConfig()

	assert.Equal(t, "https://docs.example.com", cfg.APIBaseURL, "trailing slash is trimmed")
	assert.Equal(t, "db", cfg.StateBackend)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "host=localhost user=docchat dbname=docchat", cfg.DBDSN)
	assert.True(t, cfg.MinIOSecure)
	assert.True(t, cfg.UsesMinIO())
	assert.Equal(t, "nats://localhost:4222", cfg.NatsURL)
}

func TestLoadConfig_InvalidBool(t *testing.T) {
	clearEnv(t)
	t.Setenv("MINIO_SECURE", "sometimes")

	cfg := LoadConfig()

	assert.False(t, cfg.MinIOSecure)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	assert.Equal(t, filepath.Join(home, "a/b"), ExpandHome("~/a/b"))
	assert.Equal(t, "/absolute/path", ExpandHome("/absolute/path"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}
