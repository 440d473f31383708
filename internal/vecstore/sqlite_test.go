package vecstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return store
}

func testRecord(conn, schema, table, ref, hash string, embedding []float32) EmbeddingRecord {
	return EmbeddingRecord{
		ConnectionID: conn,
		SchemaName:   schema,
		TableName:    table,
		RowReference: ref,
		ChunkHash:    hash,
		Content:      "content for " + ref,
		Metadata:     json.RawMessage(`{"name":"test"}`),
		Embedding:    embedding,
	}
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	// Parent directory and database file are created
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)

	// Re-opening the same path is idempotent
	store2, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	store2.Close()
}

func TestUpsertEmpty(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	count, err := store.Upsert(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestUpsertIdempotence(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	record := testRecord("c1", "public", "users", "id=1", "xxh64:abc", []float32{1, 0})

	count, err := store.Upsert([]EmbeddingRecord{record})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Same key again with new content updates in place
	record.Content = "updated content"
	record.Embedding = []float32{0, 1}
	count, err = store.Upsert([]EmbeddingRecord{record})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	matches, err := store.Search("c1", "", "", []float32{0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "updated content", matches[0].Content)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestSearchRanking(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	records := []EmbeddingRecord{
		testRecord("c1", "public", "users", "id=1", "xxh64:a", []float32{1, 0}),
		testRecord("c1", "public", "users", "id=2", "xxh64:b", []float32{0, 1}),
	}
	_, err := store.Upsert(records)
	require.NoError(t, err)

	// Query identical to the first vector must rank it first with score 1.0
	matches, err := store.Search("c1", "public", "users", []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "id=1", matches[0].RowReference)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)

	// Scores are non-increasing
	matches, err = store.Search("c1", "public", "users", []float32{1, 0.1}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
}

func TestSearchZeroVector(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	records := []EmbeddingRecord{
		testRecord("c1", "public", "users", "id=1", "xxh64:a", []float32{1, 0}),
		testRecord("c1", "public", "users", "id=2", "xxh64:b", []float32{0, 0}),
	}
	_, err := store.Upsert(records)
	require.NoError(t, err)

	// Zero query vector scores 0 against everything, never NaN
	matches, err := store.Search("c1", "", "", []float32{0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, 0.0, m.Score)
	}

	// Stored zero vector scores 0 against a real query
	matches, err = store.Search("c1", "", "", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "id=1", matches[0].RowReference)
	assert.Equal(t, 0.0, matches[1].Score)
}

func TestSearchScopeIsolation(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	records := []EmbeddingRecord{
		testRecord("c1", "public", "users", "id=1", "xxh64:a", []float32{1, 0}),
		testRecord("c2", "public", "users", "id=1", "xxh64:a", []float32{1, 0}),
	}
	_, err := store.Upsert(records)
	require.NoError(t, err)

	matches, err := store.Search("c1", "", "", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	// Unknown connection yields an empty result, not an error
	matches, err = store.Search("c3", "", "", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearchSchemaTableFilters(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	records := []EmbeddingRecord{
		testRecord("c1", "public", "users", "id=1", "xxh64:a", []float32{1, 0}),
		testRecord("c1", "public", "orders", "id=1", "xxh64:b", []float32{1, 0}),
		testRecord("c1", "sales", "users", "id=1", "xxh64:c", []float32{1, 0}),
	}
	_, err := store.Upsert(records)
	require.NoError(t, err)

	matches, err := store.Search("c1", "public", "", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	matches, err = store.Search("c1", "public", "users", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "users", matches[0].Table)
	assert.Equal(t, "public", matches[0].Schema)
}

func TestTableMetadata(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	records := []EmbeddingRecord{
		testRecord("c1", "public", "users", "id=1", "xxh64:a", []float32{1, 0}),
		testRecord("c1", "public", "users", "id=2", "xxh64:b", []float32{0, 1}),
		testRecord("c1", "public", "orders", "id=1", "xxh64:c", []float32{1, 1}),
		testRecord("c2", "public", "users", "id=1", "xxh64:d", []float32{1, 0}),
	}
	_, err := store.Upsert(records)
	require.NoError(t, err)

	metadata, err := store.TableMetadata("c1")
	require.NoError(t, err)
	require.Len(t, metadata, 2)

	byTable := map[string]TableMetadata{}
	for _, m := range metadata {
		byTable[m.TableName] = m
	}
	assert.Equal(t, int64(2), byTable["users"].RowCount)
	assert.Equal(t, int64(1), byTable["orders"].RowCount)
	assert.Greater(t, byTable["users"].LastUpdated, int64(0))
}

func TestDeleteTablePrecision(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	records := []EmbeddingRecord{
		testRecord("c1", "public", "users", "id=1", "xxh64:a", []float32{1, 0}),
		testRecord("c1", "public", "users", "id=2", "xxh64:b", []float32{0, 1}),
		testRecord("c1", "public", "orders", "id=1", "xxh64:c", []float32{1, 1}),
		testRecord("c2", "public", "users", "id=1", "xxh64:d", []float32{1, 0}),
	}
	_, err := store.Upsert(records)
	require.NoError(t, err)

	deleted, err := store.DeleteTable("c1", "public", "users")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	// Other table and other connection survive
	matches, err := store.Search("c1", "public", "orders", []float32{1, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = store.Search("c2", "", "", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	// Deleting a scope with no records is not an error
	deleted, err = store.DeleteTable("c1", "public", "users")
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestCorruptPayloadSurfacesStorageError(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	// Inject a row with a corrupt embedding payload behind the store's back
	_, err := store.db.Exec(`
		INSERT INTO embeddings (
			connection_id, schema_name, table_name, row_reference, chunk_hash,
			content, metadata, embedding, created_at
		) VALUES ('c1', 'public', 'users', 'id=1', 'xxh64:bad', 'c', '{}', 'not json', 0)
	`)
	require.NoError(t, err)

	_, err = store.Search("c1", "", "", []float32{1, 0}, 10)
	require.Error(t, err)

	var storageErr *StorageError
	assert.True(t, errors.As(err, &storageErr))
}

func TestUpsertNilMetadataDefaults(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	record := testRecord("c1", "public", "users", "id=1", "xxh64:a", []float32{1, 0})
	record.Metadata = nil

	_, err := store.Upsert([]EmbeddingRecord{record})
	require.NoError(t, err)

	matches, err := store.Search("c1", "", "", []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.JSONEq(t, "{}", string(matches[0].Metadata))
}
