package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default configuration values
const (
	// Runtime defaults. The managed instance binds a non-default port so it
	// never collides with a system-wide installation on 11434.
	DefaultRuntimePort         = 11435
	DefaultPreferSystem        = true
	DefaultMaxRestartAttempts  = 3
	DefaultHealthCheckInterval = 30 * time.Second

	// Embedding defaults
	DefaultEmbeddingProvider = "ollama"
	DefaultOllamaEmbedModel  = "nomic-embed-text"
	DefaultOpenAIEmbedModel  = "text-embedding-3-small"

	// LLM defaults
	DefaultLLMProvider    = "ollama"
	DefaultOllamaLLMModel = "llama3"

	// Retrieval defaults
	DefaultTopK      = 5
	DefaultBatchSize = 50

	// Store
	DefaultStoreFileName = "embeddings.db"
)

// DefaultConfigDir returns the default configuration directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/rowflow"
	}
	return filepath.Join(home, ".config", "rowflow")
}

// DefaultDataDir returns the default data directory path. Runtime binaries
// and model caches live under this directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".local/share/rowflow"
	}
	return filepath.Join(home, ".local", "share", "rowflow")
}

// DefaultStorePath returns the default embedding store file path.
func DefaultStorePath() string {
	return filepath.Join(DefaultDataDir(), DefaultStoreFileName)
}
