// Package retrieval orchestrates row embedding and semantic search over the
// embedding store.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/zachrizzo/RowFlow/internal/config"
	"github.com/zachrizzo/RowFlow/internal/embeddings"
	"github.com/zachrizzo/RowFlow/internal/vecstore"
)

// Row is one source row to embed.
type Row struct {
	// Reference is an opaque, caller-supplied identifier for the row (e.g. a
	// primary key rendering). It is only stable across re-embeddings if the
	// caller keeps it stable.
	Reference string `json:"reference"`

	// Columns maps column names to their values.
	Columns map[string]any `json:"columns"`
}

// Engine embeds rows and serves semantic search over them.
type Engine struct {
	store    vecstore.Store
	embedder embeddings.Service
	batch    int
}

// New creates a retrieval engine.
func New(st vecstore.Store, emb embeddings.Service, cfg *config.Config) *Engine {
	batch := cfg.Retrieval.BatchSize
	if batch <= 0 {
		batch = config.DefaultBatchSize
	}
	return &Engine{
		store:    st,
		embedder: emb,
		batch:    batch,
	}
}

// EmbedTable embeds the given rows for one table scope and upserts them into
// the store. Returns the number of records stored. Re-running with unchanged
// rows is idempotent.
func (e *Engine) EmbedTable(ctx context.Context, connectionID, schema, table string, rows []Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	log.Debug("Embedding table rows",
		"connection", connectionID, "schema", schema, "table", table, "rows", len(rows))

	total := 0
	for start := 0; start < len(rows); start += e.batch {
		end := start + e.batch
		if end > len(rows) {
			end = len(rows)
		}

		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}

		count, err := e.embedBatch(ctx, connectionID, schema, table, rows[start:end])
		if err != nil {
			return total, err
		}
		total += count
	}

	return total, nil
}

func (e *Engine) embedBatch(ctx context.Context, connectionID, schema, table string, rows []Row) (int, error) {
	texts := make([]string, len(rows))
	for i, row := range rows {
		texts[i] = BuildContent(row.Columns)
	}

	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed batch: %w", err)
	}
	if len(vectors) != len(rows) {
		return 0, fmt.Errorf("embedding count mismatch: %d != %d", len(vectors), len(rows))
	}

	records := make([]vecstore.EmbeddingRecord, len(rows))
	for i, row := range rows {
		hash, err := Fingerprint(row.Columns)
		if err != nil {
			return 0, err
		}

		metadata, err := json.Marshal(row.Columns)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize row metadata: %w", err)
		}

		records[i] = vecstore.EmbeddingRecord{
			ConnectionID: connectionID,
			SchemaName:   schema,
			TableName:    table,
			RowReference: row.Reference,
			ChunkHash:    hash,
			Content:      texts[i],
			Metadata:     metadata,
			Embedding:    vectors[i],
		}
	}

	return e.store.Upsert(records)
}

// Search embeds the query and returns the topK most similar stored rows for
// the connection, optionally narrowed to a schema and table. topK <= 0 uses
// the default of 5.
func (e *Engine) Search(ctx context.Context, connectionID, schema, table, query string, topK int) ([]vecstore.SearchMatch, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if topK <= 0 {
		topK = config.DefaultTopK
	}

	log.Debug("Searching embeddings",
		"connection", connectionID, "schema", schema, "table", table, "topK", topK)

	queryEmbedding, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return e.store.Search(connectionID, schema, table, queryEmbedding, topK)
}

// TableMetadata reports embedding coverage per table for a connection.
func (e *Engine) TableMetadata(connectionID string) ([]vecstore.TableMetadata, error) {
	return e.store.TableMetadata(connectionID)
}

// Forget removes all embeddings for one table scope and returns the count.
func (e *Engine) Forget(connectionID, schema, table string) (int64, error) {
	return e.store.DeleteTable(connectionID, schema, table)
}
