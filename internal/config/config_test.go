package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"APP_PORT", "DATA_DIR", "VECTOR_STORE", "MAX_UPLOAD_MB", "QUERY_TIMEOUT", "NATS_URL", "CHUNK_SIZE", "CHUNK_OVERLAP"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	assert.Equal(t, "3000", cfg.App.Port)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, "sqlite", cfg.Storage.VectorStore)
	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
	assert.Equal(t, 200, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, int64(50*1024*1024), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, 60*time.Second, cfg.Query.Timeout)
	assert.Equal(t, "", cfg.App.NatsURL)
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"go duration", "90m", 90 * time.Minute},
		{"seconds", "30", 30 * time.Second},
		{"garbage", "soon", time.Hour},
		{"empty", "", time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION", time.Hour))
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	assert.True(t, getEnvAsBool("TEST_BOOL", false))

	t.Setenv("TEST_BOOL", "nope")
	assert.False(t, getEnvAsBool("TEST_BOOL", false))
}
