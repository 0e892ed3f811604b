package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Chunk.WindowTokens != 200 {
		t.Errorf("expected WindowTokens=200, got %d", cfg.Chunk.WindowTokens)
	}
	if cfg.Chunk.OverlapTokens != 40 {
		t.Errorf("expected OverlapTokens=40, got %d", cfg.Chunk.OverlapTokens)
	}
	if cfg.Fetch.PreferredLanguage != "en-US" {
		t.Errorf("expected PreferredLanguage=en-US, got %s", cfg.Fetch.PreferredLanguage)
	}
	if cfg.Retrieve.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieve.TopK)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "zen.yaml")

	content := `
chunk:
  window_tokens: 120
  overlap_tokens: 10
fetch:
  backoff_base: 500ms
retrieve:
  top_k: 10
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Chunk.WindowTokens != 120 {
		t.Errorf("expected WindowTokens=120, got %d", cfg.Chunk.WindowTokens)
	}
	if cfg.Fetch.BackoffBase != 500*time.Millisecond {
		t.Errorf("expected BackoffBase=500ms, got %s", cfg.Fetch.BackoffBase)
	}
	if cfg.Retrieve.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieve.TopK)
	}
	// untouched sections keep defaults
	if cfg.Embedding.Metric != "cosine" {
		t.Errorf("expected default metric, got %s", cfg.Embedding.Metric)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "zen.yaml")

	content := `
retrieve:
  context_tokens: 8000
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Retrieve.ContextTokens != 8000 {
		t.Errorf("expected ContextTokens=8000, got %d", cfg.Retrieve.ContextTokens)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CHANNEL_URL", "https://www.youtube.com/@example")
	t.Setenv("MAX_VIDEOS", "7")
	t.Setenv("EXCLUDE_SHORTS", "0")

	cfg, err := LoadFromDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source.ChannelURL != "https://www.youtube.com/@example" {
		t.Errorf("unexpected channel url %q", cfg.Source.ChannelURL)
	}
	if cfg.Source.MaxVideos != 7 {
		t.Errorf("expected MaxVideos=7, got %d", cfg.Source.MaxVideos)
	}
	if cfg.Source.ExcludeShorts {
		t.Error("expected ExcludeShorts=false")
	}
}

func TestValidate_OverlapNotSmallerThanWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chunk.WindowTokens = 50
	cfg.Chunk.OverlapTokens = 50

	err := cfg.Validate()
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}

	var ce *domain.ConfigError
	if !errors.As(err, &ce) || ce.Field != "chunk.overlap_tokens" {
		t.Errorf("expected field chunk.overlap_tokens, got %v", err)
	}
}

func TestValidate_UnknownMetric(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Embedding.Metric = "manhattan"
	if err := cfg.Validate(); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zen.yaml")
	cfg := DefaultConfig()
	cfg.Source.ChannelURL = "https://www.youtube.com/@saved"

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Source.ChannelURL != cfg.Source.ChannelURL {
		t.Errorf("expected %q, got %q", cfg.Source.ChannelURL, loaded.Source.ChannelURL)
	}
}
