package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zachrizzo/RowFlow/internal/config"
)

// TestGetModelDimensions tests known model dimension lookups.
func TestGetModelDimensions(t *testing.T) {
	tests := []struct {
		model    string
		expected int
	}{
		{"nomic-embed-text", 768},
		{"mxbai-embed-large", 1024},
		{"all-minilm", 384},
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"unknown-model", 0},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetModelDimensions(tt.model))
		})
	}
}

func TestNewOllamaService(t *testing.T) {
	t.Run("with default URL", func(t *testing.T) {
		svc, err := NewOllamaService("", "nomic-embed-text")
		require.NoError(t, err)

		assert.Equal(t, "http://127.0.0.1:11434", svc.baseURL)
		assert.Equal(t, "nomic-embed-text", svc.model)
		assert.Equal(t, 768, svc.dimensions)
		assert.Equal(t, ProviderOllama, svc.Provider())
		assert.Equal(t, "nomic-embed-text", svc.ModelName())
	})

	t.Run("with custom URL", func(t *testing.T) {
		svc, err := NewOllamaService("http://custom:8080/", "mxbai-embed-large")
		require.NoError(t, err)

		assert.Equal(t, "http://custom:8080", svc.baseURL)
		assert.Equal(t, 1024, svc.Dimensions())
	})
}

func TestOllamaEmbed(t *testing.T) {
	var gotRequest ollamaEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		resp := ollamaEmbedResponse{
			Embeddings: make([][]float32, len(gotRequest.Input)),
		}
		for i := range resp.Embeddings {
			resp.Embeddings[i] = []float32{0.1, 0.2, 0.3}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	svc, err := NewOllamaService(srv.URL, "nomic-embed-text")
	require.NoError(t, err)

	t.Run("document prefix", func(t *testing.T) {
		embedding, err := svc.Embed(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, embedding)
		assert.Equal(t, "search_document: hello", gotRequest.Input[0])
	})

	t.Run("query prefix", func(t *testing.T) {
		_, err := svc.EmbedQuery(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, "search_query: hello", gotRequest.Input[0])
	})

	t.Run("batch", func(t *testing.T) {
		embeddings, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		assert.Len(t, embeddings, 2)
		assert.Len(t, gotRequest.Input, 2)
	})

	t.Run("dimensions updated from response", func(t *testing.T) {
		assert.Equal(t, 3, svc.Dimensions())
	})

	t.Run("empty batch", func(t *testing.T) {
		embeddings, err := svc.EmbedBatch(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, embeddings)
	})
}

func TestOllamaEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	svc, err := NewOllamaService(srv.URL, "nomic-embed-text")
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestNewService(t *testing.T) {
	t.Run("ollama uses resolved endpoint", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Embeddings.Provider = "ollama"
		cfg.Embeddings.Ollama.URL = ""

		svc, err := NewService(cfg, "http://127.0.0.1:11435")
		require.NoError(t, err)

		ollama, ok := svc.(*OllamaService)
		require.True(t, ok)
		assert.Equal(t, "http://127.0.0.1:11435", ollama.baseURL)
	})

	t.Run("explicit ollama URL wins", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Embeddings.Ollama.URL = "http://elsewhere:9999"

		svc, err := NewService(cfg, "http://127.0.0.1:11435")
		require.NoError(t, err)

		ollama, ok := svc.(*OllamaService)
		require.True(t, ok)
		assert.Equal(t, "http://elsewhere:9999", ollama.baseURL)
	})

	t.Run("openai requires api key", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Embeddings.Provider = "openai"
		cfg.Embeddings.OpenAI.APIKey = ""

		_, err := NewService(cfg, "")
		require.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Embeddings.Provider = "bogus"

		_, err := NewService(cfg, "")
		require.Error(t, err)
	})
}
