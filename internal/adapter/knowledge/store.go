// Package knowledge is the document store behind the knowledge agent's
// retrieval step. Documents are chunked, indexed with SQLite FTS5, and
// optionally embedded for hybrid search.
package knowledge

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"agent-swarm/internal/domain"
)

const defaultChunkSize = 500 // words

// Chunk is one indexed slice of a source document.
type Chunk struct {
	ID        string
	Source    string
	Content   string
	CreatedAt time.Time
}

// Store implements knowledge retrieval backed by SQLite + FTS5 with optional
// vector embeddings. When an EmbeddingProvider is supplied, Store generates
// embeddings on ingest and supports hybrid (BM25 + cosine) search.
type Store struct {
	db        *sql.DB
	embedder  domain.EmbeddingProvider
	logger    *slog.Logger
	chunkSize int
}

// New opens (or creates) a SQLite database at dbPath, runs migrations, and
// returns a ready Store. Pass nil for embedder to use keyword-only search.
func New(dbPath string, chunkSize int, embedder domain.EmbeddingProvider, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", domain.ErrKnowledgeStore, err)
	}

	// SQLite write safety: single writer.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: pragma: %v", domain.ErrKnowledgeStore, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrKnowledgeStore, err)
	}

	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	return &Store{
		db:        db,
		embedder:  embedder,
		logger:    logger,
		chunkSize: chunkSize,
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// IngestFile reads a document from disk and ingests it under its path.
func (s *Store) IngestFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", domain.ErrKnowledgeStore, path, err)
	}
	return s.Ingest(ctx, path, string(data))
}

// Ingest splits text into chunks and stores them in a single transaction with
// one batched embedding call. Re-ingesting a source replaces its chunks.
func (s *Store) Ingest(ctx context.Context, source, text string) error {
	chunks := chunkWords(text, s.chunkSize)
	if len(chunks) == 0 {
		return nil
	}

	var embeddings [][]byte
	if s.embedder != nil {
		vecs, err := s.embedder.Embed(ctx, chunks)
		if err != nil {
			s.logger.Warn("knowledge: embedding failed, indexing keyword-only",
				"source", source, "error", err)
		} else {
			embeddings = make([][]byte, len(chunks))
			for i := range vecs {
				embeddings[i] = float32ToBytes(vecs[i])
			}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", domain.ErrKnowledgeStore, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE source = ?", source); err != nil {
		return fmt.Errorf("%w: clear source: %v", domain.ErrKnowledgeStore, err)
	}

	const insert = `
		INSERT INTO chunks (id, source, content, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", domain.ErrKnowledgeStore, err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, c := range chunks {
		var emb []byte
		if embeddings != nil {
			emb = embeddings[i]
		}
		id := ulid.MustNew(ulid.Now(), rand.Reader).String()
		if _, err := stmt.ExecContext(ctx, id, source, c, emb, now); err != nil {
			return fmt.Errorf("%w: insert chunk: %v", domain.ErrKnowledgeStore, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrKnowledgeStore, err)
	}

	s.logger.Info("knowledge ingested", "source", source, "chunks", len(chunks))
	return nil
}

// Count returns the number of indexed chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %v", domain.ErrKnowledgeStore, err)
	}
	return n, nil
}

// chunkWords splits text into chunks of at most size words.
func chunkWords(text string, size int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	for start := 0; start < len(words); start += size {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// migrate creates the schema if it doesn't exist.
func migrate(db *sql.DB) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS chunks (
			id         TEXT PRIMARY KEY,
			source     TEXT NOT NULL,
			content    TEXT NOT NULL,
			embedding  BLOB,
			created_at TEXT NOT NULL
		);

		CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
			content, content=chunks, content_rowid=rowid
		);

		-- Triggers to keep FTS in sync with the chunks table.
		CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
			INSERT INTO chunks_fts(rowid, content) VALUES (new.rowid, new.content);
		END;

		CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
			INSERT INTO chunks_fts(chunks_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
		END;

		CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
			INSERT INTO chunks_fts(chunks_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
			INSERT INTO chunks_fts(rowid, content) VALUES (new.rowid, new.content);
		END;
	`
	_, err := db.Exec(schema)
	return err
}
