package retriever

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"os"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	// Register the sqlite-vec extension with the mattn/go-sqlite3
	// driver as an auto-loadable extension.
	vec.Auto()
}

// SQLiteStore serves nearest-neighbor queries from a pre-built
// sqlite-vec passage index. The index file is produced offline by the
// index-builder tool with schema:
//
//	vec_passages(embedding float[768], doc_id TEXT, content TEXT)
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens the index read-only and verifies the passage
// table is queryable.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("vector index not found at %s: %w", path, err)
	}

	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}

	var count int
	if err := db.QueryRow("SELECT count(*) FROM vec_passages").Scan(&count); err != nil {
		db.Close()
		return nil, fmt.Errorf("vector index is not usable: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("vector index at %s contains no passages", path)
	}

	return &SQLiteStore{db: db}, nil
}

// Query returns the k nearest passages by cosine distance.
func (s *SQLiteStore) Query(ctx context.Context, queryEmbedding []float32, k int) ([]Fragment, error) {
	queryBlob := encodeFloat32SliceToBlob(queryEmbedding)

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			doc_id,
			content,
			vec_distance_cosine(embedding, ?) AS distance
		FROM vec_passages
		ORDER BY distance ASC
		LIMIT ?
	`, queryBlob, k)
	if err != nil {
		return nil, fmt.Errorf("passage search failed: %w", err)
	}
	defer rows.Close()

	var fragments []Fragment
	for rows.Next() {
		var f Fragment
		if err := rows.Scan(&f.DocID, &f.Content, &f.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan passage row: %w", err)
		}
		fragments = append(fragments, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating passage rows: %w", err)
	}
	return fragments, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// encodeFloat32SliceToBlob serializes an embedding into the little
// endian float32 blob format sqlite-vec expects.
func encodeFloat32SliceToBlob(values []float32) []byte {
	buf := new(bytes.Buffer)
	for _, v := range values {
		binary.Write(buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}
