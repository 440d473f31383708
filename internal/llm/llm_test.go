package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zachrizzo/RowFlow/internal/vecstore"
)

// stubLLM echoes the last user message.
type stubLLM struct {
	lastMessages []Message
}

func (s *stubLLM) Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	s.lastMessages = messages
	return "stub answer", nil
}

func (s *stubLLM) Provider() Provider { return ProviderOllama }
func (s *stubLLM) ModelName() string  { return "stub" }

func TestOllamaComplete(t *testing.T) {
	var gotRequest ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaMessage{Role: "assistant", Content: "hello back"},
			Done:    true,
		})
	}))
	defer srv.Close()

	svc, err := NewOllamaService(srv.URL, "llama3")
	require.NoError(t, err)

	answer, err := svc.Complete(context.Background(), []Message{
		{Role: "user", Content: "hello"},
	}, DefaultCompletionOptions())
	require.NoError(t, err)

	assert.Equal(t, "hello back", answer)
	assert.Equal(t, "llama3", gotRequest.Model)
	assert.False(t, gotRequest.Stream)
	require.Len(t, gotRequest.Messages, 1)
	assert.Equal(t, "hello", gotRequest.Messages[0].Content)
}

func TestQAAnswer(t *testing.T) {
	stub := &stubLLM{}
	qa := NewQAService(stub)

	matches := []vecstore.SearchMatch{
		{RowReference: "id=1", Schema: "public", Table: "users", Score: 0.9, Content: "name: Ada"},
		{RowReference: "id=2", Schema: "public", Table: "users", Score: 0.5, Content: "name: Grace"},
	}

	result, err := qa.Answer(context.Background(), "who is ada", matches, DefaultQAOptions())
	require.NoError(t, err)

	assert.Equal(t, "stub answer", result.Answer)
	assert.Len(t, result.Sources, 2)

	// Prompt carries the question and the retrieved rows
	require.Len(t, stub.lastMessages, 2)
	assert.Contains(t, stub.lastMessages[1].Content, "who is ada")
	assert.Contains(t, stub.lastMessages[1].Content, "public.users")
	assert.Contains(t, stub.lastMessages[1].Content, "name: Ada")
}

func TestQAAnswerNoMatches(t *testing.T) {
	stub := &stubLLM{}
	qa := NewQAService(stub)

	result, err := qa.Answer(context.Background(), "anything", nil, DefaultQAOptions())
	require.NoError(t, err)

	// No LLM call is made without context rows
	assert.Nil(t, stub.lastMessages)
	assert.NotEmpty(t, result.Answer)
	assert.Empty(t, result.Sources)
}

func TestQAAnswerLimitsContextRows(t *testing.T) {
	stub := &stubLLM{}
	qa := NewQAService(stub)

	matches := make([]vecstore.SearchMatch, 10)
	for i := range matches {
		matches[i] = vecstore.SearchMatch{RowReference: "r", Schema: "s", Table: "t", Content: "c"}
	}

	opts := DefaultQAOptions()
	opts.MaxContextRows = 3

	result, err := qa.Answer(context.Background(), "q", matches, opts)
	require.NoError(t, err)
	assert.Len(t, result.Sources, 3)
}
