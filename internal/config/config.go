// Package config handles configuration loading and validation for rowflow.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// Config represents the complete rowflow configuration.
type Config struct {
	Runtime    RuntimeConfig    `mapstructure:"runtime"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Store      StoreConfig      `mapstructure:"store"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
}

// RuntimeConfig configures the supervised inference runtime.
type RuntimeConfig struct {
	Port                int           `mapstructure:"port"`
	Binary              string        `mapstructure:"binary"` // explicit binary path; empty means use the locator
	DataDir             string        `mapstructure:"data_dir"`
	PreferSystem        bool          `mapstructure:"prefer_system"`
	MaxRestartAttempts  int           `mapstructure:"max_restart_attempts"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
}

// EmbeddingsConfig configures the embedding service.
type EmbeddingsConfig struct {
	Provider string            `mapstructure:"provider"`
	Ollama   OllamaEmbedConfig `mapstructure:"ollama"`
	OpenAI   OpenAIEmbedConfig `mapstructure:"openai"`
}

// OllamaEmbedConfig configures Ollama embeddings. An empty URL means use the
// endpoint the runtime supervisor resolves.
type OllamaEmbedConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// OpenAIEmbedConfig configures OpenAI embeddings.
type OpenAIEmbedConfig struct {
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Dimensions int    `mapstructure:"dimensions"`
}

// LLMConfig configures the generation service used for grounded answers.
type LLMConfig struct {
	Provider string          `mapstructure:"provider"`
	Ollama   OllamaLLMConfig `mapstructure:"ollama"`
}

// OllamaLLMConfig configures the Ollama generation model.
type OllamaLLMConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// StoreConfig configures the embedding store.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// RetrievalConfig configures embedding and search behavior.
type RetrievalConfig struct {
	TopK      int `mapstructure:"top_k"`
	BatchSize int `mapstructure:"batch_size"`
}

// Global configuration instance
var cfg *Config

// Get returns the current configuration.
func Get() *Config {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			Port:                DefaultRuntimePort,
			DataDir:             DefaultDataDir(),
			PreferSystem:        DefaultPreferSystem,
			MaxRestartAttempts:  DefaultMaxRestartAttempts,
			HealthCheckInterval: DefaultHealthCheckInterval,
		},
		Embeddings: EmbeddingsConfig{
			Provider: DefaultEmbeddingProvider,
			Ollama: OllamaEmbedConfig{
				Model: DefaultOllamaEmbedModel,
			},
			OpenAI: OpenAIEmbedConfig{
				Model: DefaultOpenAIEmbedModel,
			},
		},
		LLM: LLMConfig{
			Provider: DefaultLLMProvider,
			Ollama: OllamaLLMConfig{
				Model: DefaultOllamaLLMModel,
			},
		},
		Store: StoreConfig{
			Path: DefaultStorePath(),
		},
		Retrieval: RetrievalConfig{
			TopK:      DefaultTopK,
			BatchSize: DefaultBatchSize,
		},
	}
}

// Load reads configuration from file and environment variables.
func Load(configFile string) error {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(DefaultConfigDir())
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("ROWFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug("No config file found, using defaults")
	} else {
		log.Debug("Loaded config from", "file", viper.ConfigFileUsed())
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	loadAPIKeysFromEnv()

	return nil
}

// setDefaults sets default values in viper.
func setDefaults() {
	// Runtime
	viper.SetDefault("runtime.port", DefaultRuntimePort)
	viper.SetDefault("runtime.data_dir", DefaultDataDir())
	viper.SetDefault("runtime.prefer_system", DefaultPreferSystem)
	viper.SetDefault("runtime.max_restart_attempts", DefaultMaxRestartAttempts)
	viper.SetDefault("runtime.health_check_interval", DefaultHealthCheckInterval)

	// Embeddings
	viper.SetDefault("embeddings.provider", DefaultEmbeddingProvider)
	viper.SetDefault("embeddings.ollama.model", DefaultOllamaEmbedModel)
	viper.SetDefault("embeddings.openai.model", DefaultOpenAIEmbedModel)

	// LLM
	viper.SetDefault("llm.provider", DefaultLLMProvider)
	viper.SetDefault("llm.ollama.model", DefaultOllamaLLMModel)

	// Store
	viper.SetDefault("store.path", DefaultStorePath())

	// Retrieval
	viper.SetDefault("retrieval.top_k", DefaultTopK)
	viper.SetDefault("retrieval.batch_size", DefaultBatchSize)
}

// loadAPIKeysFromEnv loads API keys from environment variables if not already set.
func loadAPIKeysFromEnv() {
	if cfg.Embeddings.OpenAI.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Embeddings.OpenAI.APIKey = key
		}
	}
}

// ConfigFilePath returns the path of the loaded config file, or empty string if none.
func ConfigFilePath() string {
	return viper.ConfigFileUsed()
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}
