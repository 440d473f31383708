// Package vecstore provides durable storage and similarity search for
// row-level text embeddings using SQLite.
package vecstore

import (
	"encoding/json"
	"fmt"
)

// EmbeddingRecord represents one embedded chunk of row content.
type EmbeddingRecord struct {
	ConnectionID string          `json:"connection_id"`
	SchemaName   string          `json:"schema_name"`
	TableName    string          `json:"table_name"`
	RowReference string          `json:"row_reference"` // opaque, caller-supplied row identifier
	ChunkHash    string          `json:"chunk_hash"`    // fingerprint of the embedded content's metadata
	Content      string          `json:"content"`       // the text that was embedded
	Metadata     json.RawMessage `json:"metadata"`      // original row fields, column name -> value
	Embedding    []float32       `json:"embedding"`
	CreatedAt    int64           `json:"created_at"` // seconds since epoch
}

// SearchMatch represents a ranked similarity search result.
type SearchMatch struct {
	RowReference string          `json:"row_reference"`
	Schema       string          `json:"schema"`
	Table        string          `json:"table"`
	Score        float64         `json:"score"` // cosine similarity, higher is better
	Content      string          `json:"content"`
	Metadata     json.RawMessage `json:"metadata"`
}

// TableMetadata summarizes embedding coverage for one table within a connection.
type TableMetadata struct {
	ConnectionID string `json:"connection_id"`
	SchemaName   string `json:"schema_name"`
	TableName    string `json:"table_name"`
	RowCount     int64  `json:"row_count"`
	LastUpdated  int64  `json:"last_updated"` // max created_at, seconds since epoch
}

// StorageError wraps I/O, schema, and (de)serialization failures from the
// backing store. Corrupt persisted payloads surface as a StorageError on read
// rather than being silently skipped.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("vecstore: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageErr wraps err as a StorageError, passing nil through.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
