// Package config loads application configuration from a YAML file with
// sensible defaults for local development. Secrets come from the
// environment, never from the file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures structured logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ProviderConfig selects the model backend and its models.
type ProviderConfig struct {
	// Type is "ollama" or "openai".
	Type           string `yaml:"type"`
	OllamaBaseURL  string `yaml:"ollama_base_url"`
	EmbeddingModel string `yaml:"embedding_model"`
	LLMModel       string `yaml:"llm_model"`
	APIKeyEnv      string `yaml:"api_key_env"`
}

// RerankerConfig configures the cross-encoder scoring service.
type RerankerConfig struct {
	URL string `yaml:"url"`
}

// IngestConfig holds chunking and document watching parameters.
type IngestConfig struct {
	ChunkSize int    `yaml:"chunk_size"`
	Overlap   int    `yaml:"overlap"`
	WatchDir  string `yaml:"watch_dir"`
}

// RetrievalConfig tunes the candidate and prompt pool sizes.
type RetrievalConfig struct {
	RetrieveK int `yaml:"retrieve_k"`
	PromptTop int `yaml:"prompt_top"`
}

// Config is the root application configuration.
type Config struct {
	Server       ServerConfig    `yaml:"server"`
	Log          LogConfig       `yaml:"log"`
	Provider     ProviderConfig  `yaml:"provider"`
	Reranker     RerankerConfig  `yaml:"reranker"`
	Ingest       IngestConfig    `yaml:"ingest"`
	Retrieval    RetrievalConfig `yaml:"retrieval"`
	DataDir      string          `yaml:"data_dir"`
	Collection   string          `yaml:"collection"`
	SettingsPath string          `yaml:"settings_path"`
}

// Load reads configuration from path. A missing file returns the
// defaults so the server runs out of the box against local Ollama.
//
// The file is decoded on top of the defaults, so omitted keys keep
// their default values while explicit zeros survive (overlap: 0 is a
// valid non-overlapping configuration, not a request for the default).
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyModelDefaults(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	applyModelDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// APIKey resolves the provider API key from the environment. Empty is
// fine for Ollama.
func (c *Config) APIKey() string {
	return os.Getenv(c.Provider.APIKeyEnv)
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8000"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Provider: ProviderConfig{
			Type:          "ollama",
			OllamaBaseURL: "http://localhost:11434",
			APIKeyEnv:     "OPENAI_API_KEY",
		},
		Reranker:     RerankerConfig{URL: "http://localhost:8082"},
		Ingest:       IngestConfig{ChunkSize: 600, Overlap: 80},
		Retrieval:    RetrievalConfig{RetrieveK: 5, PromptTop: 3},
		DataDir:      "./data",
		Collection:   "docs",
		SettingsPath: "./config.json",
	}
}

// applyModelDefaults fills the model names per provider. These are the
// only defaults that cannot be pre-populated before decoding because
// they depend on the configured provider type.
func applyModelDefaults(cfg *Config) {
	if cfg.Provider.EmbeddingModel == "" {
		if cfg.Provider.Type == "openai" {
			cfg.Provider.EmbeddingModel = "text-embedding-3-small"
		} else {
			cfg.Provider.EmbeddingModel = "nomic-embed-text"
		}
	}
	if cfg.Provider.LLMModel == "" {
		if cfg.Provider.Type == "openai" {
			cfg.Provider.LLMModel = "gpt-4o-mini"
		} else {
			cfg.Provider.LLMModel = "llama3.2"
		}
	}
}

func validate(cfg *Config) error {
	switch cfg.Provider.Type {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unknown provider type %q", cfg.Provider.Type)
	}
	if cfg.Ingest.Overlap >= cfg.Ingest.ChunkSize {
		return fmt.Errorf("ingest overlap %d must be smaller than chunk size %d", cfg.Ingest.Overlap, cfg.Ingest.ChunkSize)
	}
	if cfg.Retrieval.PromptTop > cfg.Retrieval.RetrieveK {
		return fmt.Errorf("prompt_top %d cannot exceed retrieve_k %d", cfg.Retrieval.PromptTop, cfg.Retrieval.RetrieveK)
	}
	return nil
}
