package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Index.Type)
	assert.Equal(t, "hash", cfg.Embedder.Type)
	assert.Equal(t, 500, cfg.Chunker.ChunkSize)
	assert.Equal(t, 50, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, "en", cfg.Redactor.Locale)
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := []byte("server:\n  addr: \":9999\"\nindex:\n  type: memory\nextractor:\n  type: ollama\n")
	require.NoError(t, os.WriteFile(path, partial, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Index.Type)
	assert.Equal(t, 30, cfg.Extractor.TimeoutSecs)
	assert.Equal(t, 100, cfg.Extractor.MaxTokens)
	require.NotNil(t, cfg.Extractor.Ollama)
	assert.Equal(t, "http://localhost:11434", cfg.Extractor.Ollama.BaseURL)
	assert.Equal(t, 384, cfg.Embedder.Dimension)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := defaultConfig()
	cfg.UploadDir = "elsewhere"

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", loaded.UploadDir)
	assert.Equal(t, cfg.Server, loaded.Server)
}
