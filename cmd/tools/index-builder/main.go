// Package main implements the index builder tool for creating the
// passage vector database served by the semantic retriever. It reads a
// JSONL passage file, embeds each passage, and writes a sqlite-vec
// index with schema vec_passages(embedding, doc_id, content).
//
// Usage: go run ./cmd/tools/index-builder -input data/passages.jsonl
package main

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"astrogeo/internal/common/config"
	"astrogeo/internal/engine/embedding"
)

const batchSize = 32

func init() {
	vec.Auto()
}

// Passage is one input line of the JSONL file.
type Passage struct {
	DocID   string `json:"doc_id"`
	Content string `json:"content"`
}

func main() {
	inputPath := flag.String("input", "data/passages.jsonl", "JSONL file of passages to index")
	outputPath := flag.String("output", "", "index path (default: retriever.sqlite_path from config)")
	flag.Parse()

	fmt.Println("index-builder: building passage vector index")

	cfg, err := config.Load()
	if err != nil {
		fatal("config load failed: %v", err)
	}

	out := *outputPath
	if out == "" {
		out = cfg.Retriever.SQLitePath
	}

	engine, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		fatal("embedding engine unavailable: %v", err)
	}
	fmt.Printf("embedder: %s (dimensions=%d)\n", engine.Name(), engine.Dimensions())

	passages, err := readPassages(*inputPath)
	if err != nil {
		fatal("failed to read passages: %v", err)
	}
	if len(passages) == 0 {
		fatal("no passages found in %s", *inputPath)
	}
	fmt.Printf("loaded %d passages from %s\n", len(passages), *inputPath)

	db, err := createIndex(out, engine.Dimensions())
	if err != nil {
		fatal("failed to create index: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := embedAndStore(ctx, engine, db, passages); err != nil {
		fatal("failed to build index: %v", err)
	}

	fmt.Printf("index written to %s\n", out)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ERROR: "+format+"\n", args...)
	os.Exit(1)
}

func readPassages(path string) ([]Passage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var passages []Passage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var p Passage
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if p.Content == "" {
			continue
		}
		if p.DocID == "" {
			p.DocID = fmt.Sprintf("passage-%d", line)
		}
		passages = append(passages, p)
	}
	return passages, scanner.Err()
}

func createIndex(path string, dimensions int) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// Rebuild from scratch so stale passages never linger.
	os.Remove(path)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS vec_passages USING vec0(
			embedding float[%d],
			doc_id TEXT,
			content TEXT
		)`, dimensions)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func embedAndStore(ctx context.Context, engine embedding.Engine, db *sql.DB, passages []Passage) error {
	for start := 0; start < len(passages); start += batchSize {
		end := start + batchSize
		if end > len(passages) {
			end = len(passages)
		}
		batch := passages[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.Content
		}

		vectors, err := engine.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch at %d: %w", start, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		for i, p := range batch {
			blob := encodeFloat32SliceToBlob(vectors[i])
			if _, err := tx.Exec(
				"INSERT INTO vec_passages (embedding, doc_id, content) VALUES (?, ?, ?)",
				blob, p.DocID, p.Content,
			); err != nil {
				tx.Rollback()
				return fmt.Errorf("inserting passage %s: %w", p.DocID, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}

		fmt.Printf("indexed %d/%d passages\n", end, len(passages))
	}
	return nil
}

func encodeFloat32SliceToBlob(values []float32) []byte {
	buf := new(bytes.Buffer)
	for _, v := range values {
		binary.Write(buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}
