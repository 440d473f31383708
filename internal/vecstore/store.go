package vecstore

// Store defines the interface for embedding storage operations.
type Store interface {
	// Upsert inserts or updates records as a single transaction and returns
	// the number of records processed. An empty batch is a no-op returning 0.
	Upsert(records []EmbeddingRecord) (int, error)

	// Search scans records for the connection (optionally narrowed to a
	// schema and table) and returns the topK most similar matches, sorted by
	// descending cosine similarity.
	Search(connectionID, schema, table string, queryEmbedding []float32, topK int) ([]SearchMatch, error)

	// TableMetadata aggregates record counts and freshness per table.
	TableMetadata(connectionID string) ([]TableMetadata, error)

	// DeleteTable removes all records for the exact (connection, schema,
	// table) scope and returns the number removed.
	DeleteTable(connectionID, schema, table string) (int64, error)

	Close() error
}
