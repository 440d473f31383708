package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/zachrizzo/RowFlow/internal/vecstore"
)

const qaSystemPrompt = `You are a helpful assistant answering questions about data stored in a database.
You are given rows retrieved by semantic similarity to the user's question.
Answer using only the provided rows. If the rows do not contain enough
information, say so. Reference rows by their schema.table and row reference.`

// QAService generates answers to questions using retrieved rows as context.
type QAService struct {
	llm Service
}

// QAOptions configures the answer generation.
type QAOptions struct {
	// Temperature controls creativity (0-1).
	Temperature float64

	// MaxTokens limits the response length.
	MaxTokens int

	// MaxContextRows limits how many retrieved rows to include.
	MaxContextRows int
}

// DefaultQAOptions returns sensible defaults.
func DefaultQAOptions() QAOptions {
	return QAOptions{
		Temperature:    0.3, // Lower for more focused answers
		MaxTokens:      2048,
		MaxContextRows: 5,
	}
}

// QAResult contains the answer and its sources.
type QAResult struct {
	Answer  string                 `json:"answer"`
	Sources []vecstore.SearchMatch `json:"sources"`
}

// NewQAService creates a new Q&A service.
func NewQAService(llm Service) *QAService {
	return &QAService{llm: llm}
}

// Answer generates an answer to the question grounded in the retrieved rows.
func (qa *QAService) Answer(ctx context.Context, question string, matches []vecstore.SearchMatch, opts QAOptions) (*QAResult, error) {
	if len(matches) == 0 {
		return &QAResult{
			Answer: "I couldn't find any embedded rows relevant to your question. Try embedding more tables or rephrasing the query.",
		}, nil
	}

	contextMatches := matches
	if opts.MaxContextRows > 0 && len(matches) > opts.MaxContextRows {
		contextMatches = matches[:opts.MaxContextRows]
	}

	messages := []Message{
		{
			Role:    "system",
			Content: qaSystemPrompt,
		},
		{
			Role:    "user",
			Content: fmt.Sprintf("Question: %s\n\n%s", question, buildContext(contextMatches)),
		},
	}

	answer, err := qa.llm.Complete(ctx, messages, CompletionOptions{
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return &QAResult{
		Answer:  answer,
		Sources: contextMatches,
	}, nil
}

// buildContext formats retrieved rows for the prompt.
func buildContext(matches []vecstore.SearchMatch) string {
	var sb strings.Builder
	sb.WriteString("Retrieved rows:\n\n")

	for i, m := range matches {
		fmt.Fprintf(&sb, "[%d] %s.%s (row %s, score %.2f)\n%s\n\n",
			i+1, m.Schema, m.Table, m.RowReference, m.Score, m.Content)
	}

	return sb.String()
}
