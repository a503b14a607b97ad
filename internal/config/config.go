package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// UploadRatePerMin and AskRatePerMin bound requests per client IP.
	UploadRatePerMin int `yaml:"upload_rate_per_min"`
	AskRatePerMin    int `yaml:"ask_rate_per_min"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// IndexConfig selects and configures the vector index implementation.
type IndexConfig struct {
	Type    string        `yaml:"type"`
	DataDir string        `yaml:"data_dir"`
	Qdrant  *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector index.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GeminiExtractorConfig configures the Gemini-backed skill extractor.
type GeminiExtractorConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// OllamaExtractorConfig configures the Ollama-backed skill extractor.
type OllamaExtractorConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// ExtractorConfig selects and configures the skill extractor backend.
type ExtractorConfig struct {
	Type        string                 `yaml:"type"`
	TimeoutSecs int                    `yaml:"timeout_secs"`
	MaxTokens   int                    `yaml:"max_tokens"`
	Gemini      *GeminiExtractorConfig `yaml:"gemini,omitempty"`
	Ollama      *OllamaExtractorConfig `yaml:"ollama,omitempty"`
}

// RedactorConfig configures the PII analyzer.
type RedactorConfig struct {
	Locale string `yaml:"locale"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server       ServerConfig    `yaml:"server"`
	UploadDir    string          `yaml:"upload_dir"`
	Index        IndexConfig     `yaml:"index"`
	Embedder     EmbedderConfig  `yaml:"embedder"`
	Extractor    ExtractorConfig `yaml:"extractor"`
	Chunker      ChunkerConfig   `yaml:"chunker"`
	Redactor     RedactorConfig  `yaml:"redactor"`
	EmbedWorkers int             `yaml:"embed_workers"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/resumerag/config.yaml.
// If neither exists, it writes defaults to ~/.config/resumerag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "resumerag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:             ":8000",
			UploadRatePerMin: 30,
			AskRatePerMin:    60,
		},
		UploadDir: "uploads",
		Index:     IndexConfig{Type: "sqlite", DataDir: "data"},
		Embedder:  EmbedderConfig{Type: "hash", Dimension: 384},
		Extractor: ExtractorConfig{
			Type:        "gemini",
			TimeoutSecs: 30,
			MaxTokens:   100,
			Gemini:      &GeminiExtractorConfig{APIKeyEnv: "GEMINI_API_KEY", Model: "gemini-2.5-flash"},
		},
		Chunker:      ChunkerConfig{ChunkSize: 500, ChunkOverlap: 50},
		Redactor:     RedactorConfig{Locale: "en"},
		EmbedWorkers: 4,
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.UploadRatePerMin == 0 {
		cfg.Server.UploadRatePerMin = 30
	}
	if cfg.Server.AskRatePerMin == 0 {
		cfg.Server.AskRatePerMin = 60
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "sqlite"
	}
	if cfg.Index.Type == "sqlite" && cfg.Index.DataDir == "" {
		cfg.Index.DataDir = "data"
	}
	if cfg.Index.Type == "qdrant" && cfg.Index.Qdrant != nil {
		if cfg.Index.Qdrant.Collection == "" {
			cfg.Index.Qdrant.Collection = "resumes"
		}
		if cfg.Index.Qdrant.TimeoutSecs == 0 {
			cfg.Index.Qdrant.TimeoutSecs = 30
		}
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hash"
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 384
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	if cfg.Extractor.Type == "" {
		cfg.Extractor.Type = "gemini"
	}
	if cfg.Extractor.TimeoutSecs == 0 {
		cfg.Extractor.TimeoutSecs = 30
	}
	if cfg.Extractor.MaxTokens == 0 {
		cfg.Extractor.MaxTokens = 100
	}
	if cfg.Extractor.Type == "gemini" && cfg.Extractor.Gemini == nil {
		cfg.Extractor.Gemini = &GeminiExtractorConfig{APIKeyEnv: "GEMINI_API_KEY", Model: "gemini-2.5-flash"}
	}
	if cfg.Extractor.Type == "ollama" && cfg.Extractor.Ollama == nil {
		cfg.Extractor.Ollama = &OllamaExtractorConfig{BaseURL: "http://localhost:11434", Model: "llama3"}
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 500
	}
	if cfg.Chunker.ChunkOverlap == 0 {
		cfg.Chunker.ChunkOverlap = 50
	}
	if cfg.Redactor.Locale == "" {
		cfg.Redactor.Locale = "en"
	}
	if cfg.EmbedWorkers == 0 {
		cfg.EmbedWorkers = 4
	}
}
