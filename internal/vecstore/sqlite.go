package vecstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and initializes if needed) an embedding store at the
// given path. Construction is idempotent against an existing database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, storageErr("create database directory", err)
	}

	// WAL keeps concurrent readers from blocking on writers.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, storageErr("open database", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, storageErr("initialize schema", err)
	}

	log.Debug("Opened embedding store", "path", dbPath)

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Upsert inserts or updates records in a single transaction. The unique key
// (connection_id, schema_name, table_name, row_reference, chunk_hash) is
// enforced by the database; re-inserting the same key updates content,
// metadata, embedding, and created_at in place.
func (s *SQLiteStore) Upsert(records []EmbeddingRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, storageErr("begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO embeddings (
			connection_id, schema_name, table_name, row_reference, chunk_hash,
			content, metadata, embedding, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(connection_id, schema_name, table_name, row_reference, chunk_hash)
		DO UPDATE SET
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			created_at = excluded.created_at
	`)
	if err != nil {
		return 0, storageErr("prepare upsert", err)
	}
	defer stmt.Close()

	count := 0
	now := time.Now().Unix()
	for i, record := range records {
		metadata := record.Metadata
		if metadata == nil {
			metadata = json.RawMessage("{}")
		}

		embedding, err := json.Marshal(record.Embedding)
		if err != nil {
			return 0, storageErr(fmt.Sprintf("serialize embedding %d", i), err)
		}

		createdAt := record.CreatedAt
		if createdAt == 0 {
			createdAt = now
		}

		if _, err := stmt.Exec(
			record.ConnectionID, record.SchemaName, record.TableName,
			record.RowReference, record.ChunkHash,
			record.Content, string(metadata), string(embedding), createdAt,
		); err != nil {
			return 0, storageErr(fmt.Sprintf("upsert record %d", i), err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit upsert", err)
	}

	return count, nil
}

// Search scans stored records for the connection, narrowed by schema and
// table when non-empty, and returns the topK most similar matches sorted by
// descending cosine similarity. An empty candidate set yields an empty slice.
func (s *SQLiteStore) Search(connectionID, schema, table string, queryEmbedding []float32, topK int) ([]SearchMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT row_reference, schema_name, table_name, content, metadata, embedding
		FROM embeddings WHERE connection_id = ?
	`
	args := []any{connectionID}
	if schema != "" {
		query += " AND schema_name = ?"
		args = append(args, schema)
	}
	if table != "" {
		query += " AND table_name = ?"
		args = append(args, table)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("search query", err)
	}
	defer rows.Close()

	var matches []SearchMatch
	for rows.Next() {
		var match SearchMatch
		var metadata, embedding string

		if err := rows.Scan(
			&match.RowReference, &match.Schema, &match.Table,
			&match.Content, &metadata, &embedding,
		); err != nil {
			return nil, storageErr("scan search row", err)
		}

		if !json.Valid([]byte(metadata)) {
			return nil, storageErr("decode metadata", fmt.Errorf("corrupt metadata for row %q", match.RowReference))
		}
		match.Metadata = json.RawMessage(metadata)

		var stored []float32
		if err := json.Unmarshal([]byte(embedding), &stored); err != nil {
			return nil, storageErr("decode embedding", fmt.Errorf("corrupt embedding for row %q: %w", match.RowReference, err))
		}

		match.Score = cosineSimilarity(queryEmbedding, stored)
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate search rows", err)
	}

	// Stable sort keeps tie ordering deterministic.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}

	return matches, nil
}

// TableMetadata aggregates record counts and last-update times per
// (schema, table) group within a connection.
func (s *SQLiteStore) TableMetadata(connectionID string) ([]TableMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT connection_id, schema_name, table_name, COUNT(*), MAX(created_at)
		FROM embeddings
		WHERE connection_id = ?
		GROUP BY connection_id, schema_name, table_name
	`, connectionID)
	if err != nil {
		return nil, storageErr("table metadata query", err)
	}
	defer rows.Close()

	var results []TableMetadata
	for rows.Next() {
		var meta TableMetadata
		if err := rows.Scan(
			&meta.ConnectionID, &meta.SchemaName, &meta.TableName,
			&meta.RowCount, &meta.LastUpdated,
		); err != nil {
			return nil, storageErr("scan table metadata", err)
		}
		results = append(results, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate table metadata", err)
	}

	return results, nil
}

// DeleteTable removes all records matching the exact scope and returns the
// number removed. A scope with no records is not an error.
func (s *SQLiteStore) DeleteTable(connectionID, schema, table string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`
		DELETE FROM embeddings
		WHERE connection_id = ? AND schema_name = ? AND table_name = ?
	`, connectionID, schema, table)
	if err != nil {
		return 0, storageErr("delete table embeddings", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, storageErr("count deleted rows", err)
	}

	log.Debug("Deleted table embeddings",
		"connection", connectionID, "schema", schema, "table", table, "count", deleted)

	return deleted, nil
}
