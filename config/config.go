package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"gopkg.in/yaml.v3"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

// Config holds all configuration for the transcript pipeline.
type Config struct {
	Source     SourceConfig     `yaml:"source"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Store      StoreConfig      `yaml:"store"`
	Chunk      ChunkConfig      `yaml:"chunk"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SourceConfig controls video enumeration.
type SourceConfig struct {
	ChannelURL    string `yaml:"channel_url"`
	VideoList     string `yaml:"video_list"` // JSONL of {id, source_url}
	MaxVideos     int    `yaml:"max_videos"` // 0 = no limit
	ExcludeShorts bool   `yaml:"exclude_shorts"`
}

// FetchConfig controls transcript retrieval.
type FetchConfig struct {
	PreferredLanguage  string        `yaml:"preferred_language"`
	FallbackLanguage   string        `yaml:"fallback_language"`
	TranslateTo        string        `yaml:"translate_to"`
	MaxAttempts        int           `yaml:"max_attempts"`
	BackoffBase        time.Duration `yaml:"backoff_base"`
	BackoffCap         time.Duration `yaml:"backoff_cap"`
	Timeout            time.Duration `yaml:"timeout"` // per video
	Workers            int           `yaml:"workers"`
	RatePerSecond      float64       `yaml:"rate_per_second"`
	MinTranscriptBytes int           `yaml:"min_transcript_bytes"`
	Identities         []string      `yaml:"identities"`        // impersonation profiles rotated on rate limit
	CookiesFile        string        `yaml:"cookies_file"`      // Netscape cookies.txt
	ProxyAPIKeyEnv     string        `yaml:"proxy_api_key_env"` // Webshare proxy pool, optional
	SkipExisting       bool          `yaml:"skip_existing"`
}

// StoreConfig locates on-disk artifacts.
type StoreConfig struct {
	DataDir string `yaml:"data_dir"`
}

// ChunkConfig holds chunking configuration.
type ChunkConfig struct {
	WindowTokens  int `yaml:"window_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
	MinTokens     int `yaml:"min_tokens"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "openai", "ollama", "jina", "local"
	Model     string `yaml:"model"`       // e.g., "text-embedding-3-small"
	BaseURL   string `yaml:"base_url"`    // overrides the provider default
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	Dimension int    `yaml:"dimension"`   // 0 = model default
	BatchSize int    `yaml:"batch_size"`
	Metric    string `yaml:"metric"` // "cosine" or "inner_product"
}

// GenerationConfig holds answer generation configuration.
type GenerationConfig struct {
	Provider    string        `yaml:"provider"` // "openai" or "none" (extractive answers)
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK          int           `yaml:"top_k"`
	ContextTokens int           `yaml:"context_tokens"`
	CacheSize     int           `yaml:"cache_size"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

// ServerConfig holds the query API configuration.
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	MCPAddr string `yaml:"mcp_addr"`
	Watch   bool   `yaml:"watch"` // reload the vector index when it is republished
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			VideoList:     "video_ids.jsonl",
			ExcludeShorts: true,
		},
		Fetch: FetchConfig{
			PreferredLanguage:  "en-US",
			FallbackLanguage:   "en",
			TranslateTo:        "en",
			MaxAttempts:        4,
			BackoffBase:        2 * time.Second,
			BackoffCap:         60 * time.Second,
			Timeout:            3 * time.Minute,
			Workers:            4,
			RatePerSecond:      1,
			MinTranscriptBytes: 100,
			Identities:         []string{"chrome", "safari", "edge"},
			ProxyAPIKeyEnv:     "WEBSHARE_API_KEY",
			SkipExisting:       true,
		},
		Store: StoreConfig{
			DataDir: ".zen",
		},
		Chunk: ChunkConfig{
			WindowTokens:  200,
			OverlapTokens: 40,
			MinTokens:     20,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			BatchSize: 64,
			Metric:    "cosine",
		},
		Generation: GenerationConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   800,
			Temperature: 0.2,
			Timeout:     60 * time.Second,
		},
		Retrieve: RetrieveConfig{
			TopK:          5,
			ContextTokens: 3000,
			CacheSize:     100,
			CacheTTL:      5 * time.Minute,
		},
		Server: ServerConfig{
			Addr:    ":8000",
			MCPAddr: ":8891",
			Watch:   true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		// Defaults if no config file
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for zen.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "zen.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".zen", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays the environment variables the ingestion scripts always honoured.
func (c *Config) applyEnv() {
	c.Source.ChannelURL = env.Str("CHANNEL_URL", c.Source.ChannelURL)
	c.Source.MaxVideos = env.Int("MAX_VIDEOS", c.Source.MaxVideos)
	if v := env.Str("EXCLUDE_SHORTS", ""); v != "" {
		c.Source.ExcludeShorts = v == "1" || v == "true"
	}
	c.Fetch.CookiesFile = env.Str("YT_COOKIES", c.Fetch.CookiesFile)
	if profile := env.Str("BROWSER_PROFILE", ""); profile != "" {
		c.Fetch.Identities = append([]string{profile}, c.Fetch.Identities...)
	}
	c.Fetch.Workers = env.Int("FETCH_WORKERS", c.Fetch.Workers)
	c.Store.DataDir = env.Str("ZEN_DATA_DIR", c.Store.DataDir)
	c.Generation.Model = env.Str("LLM_MODEL", c.Generation.Model)
	c.Generation.BaseURL = env.Str("LLM_API_BASE", c.Generation.BaseURL)
	c.Server.Addr = env.Str("ZEN_ADDR", c.Server.Addr)
	c.Logging.Level = env.Str("LOG_LEVEL", c.Logging.Level)
}

// Validate reports the first invalid setting as a domain.ConfigError.
func (c *Config) Validate() error {
	switch {
	case c.Chunk.WindowTokens <= 0:
		return domain.NewConfigError("chunk.window_tokens", "must be positive")
	case c.Chunk.OverlapTokens < 0:
		return domain.NewConfigError("chunk.overlap_tokens", "must not be negative")
	case c.Chunk.OverlapTokens >= c.Chunk.WindowTokens:
		return domain.NewConfigError("chunk.overlap_tokens",
			fmt.Sprintf("overlap %d must be smaller than window %d", c.Chunk.OverlapTokens, c.Chunk.WindowTokens))
	case c.Embedding.Metric != domain.MetricCosine && c.Embedding.Metric != domain.MetricInnerProduct:
		return domain.NewConfigError("embedding.metric", fmt.Sprintf("unknown metric %q", c.Embedding.Metric))
	case c.Retrieve.TopK <= 0:
		return domain.NewConfigError("retrieve.top_k", "must be positive")
	case c.Fetch.MaxAttempts <= 0:
		return domain.NewConfigError("fetch.max_attempts", "must be positive")
	case c.Fetch.Workers <= 0:
		return domain.NewConfigError("fetch.workers", "must be positive")
	case c.Logging.Format != "" && c.Logging.Format != "text" && c.Logging.Format != "json":
		return domain.NewConfigError("logging.format", fmt.Sprintf("unknown format %q", c.Logging.Format))
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// TranscriptDir returns the root of the transcript content store.
func (c *Config) TranscriptDir(root string) string {
	return filepath.Join(c.dataDir(root), "subs")
}

// ManifestPath returns the path of the transcript index manifest.
func (c *Config) ManifestPath(root string) string {
	return filepath.Join(c.dataDir(root), "manifest.jsonl")
}

// CorpusPath returns the path of the chunked corpus.
func (c *Config) CorpusPath(root string) string {
	return filepath.Join(c.dataDir(root), "corpus.jsonl")
}

// VectorIndexPath returns the path of the published vector index.
func (c *Config) VectorIndexPath(root string) string {
	return filepath.Join(c.dataDir(root), "vectors.db")
}

// LedgerPath returns the path of the fetch attempt ledger.
func (c *Config) LedgerPath(root string) string {
	return filepath.Join(c.dataDir(root), "ledger.db")
}

// VideoListPath returns the enumerated video list path.
func (c *Config) VideoListPath(root string) string {
	if filepath.IsAbs(c.Source.VideoList) {
		return c.Source.VideoList
	}
	return filepath.Join(c.dataDir(root), c.Source.VideoList)
}

// EnsureDataDir ensures the data directory exists.
func (c *Config) EnsureDataDir(root string) error {
	return os.MkdirAll(c.dataDir(root), 0755)
}

func (c *Config) dataDir(root string) string {
	if filepath.IsAbs(c.Store.DataDir) {
		return c.Store.DataDir
	}
	return filepath.Join(root, c.Store.DataDir)
}
