// Package sqlite provides a durable vector store backed by SQLite.
// Embeddings are stored as little-endian float32 blobs; similarity is
// computed in process, which is plenty for single-user document sets.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id            TEXT PRIMARY KEY,
	document_id   TEXT NOT NULL,
	content_type  TEXT NOT NULL,
	content       TEXT NOT NULL,
	heading       TEXT NOT NULL DEFAULT '',
	section_path  TEXT NOT NULL DEFAULT '[]',
	pages         TEXT NOT NULL DEFAULT '[]',
	position      INTEGER NOT NULL,
	embedding     BLOB
);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
`

// Store is a SQLite-backed vector store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the chunk database under dataDir.
// If dataDir is empty, defaults to ~/.docquery/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docquery", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "chunks.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Upsert stores chunks in one transaction, overwriting same-ID rows.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, content_type, content, heading, section_path, pages, position, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			content_type = excluded.content_type,
			content = excluded.content,
			heading = excluded.heading,
			section_path = excluded.section_path,
			pages = excluded.pages,
			position = excluded.position,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		sectionJSON, err := json.Marshal(chunk.SectionPath)
		if err != nil {
			return fmt.Errorf("marshal section path: %w", err)
		}
		pagesJSON, err := json.Marshal(chunk.Pages)
		if err != nil {
			return fmt.Errorf("marshal pages: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.DocumentID, string(chunk.ContentType), chunk.Text,
			chunk.Heading, string(sectionJSON), string(pagesJSON), chunk.Index,
			float32SliceToBytes(chunk.Embedding),
		); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", chunk.ID, err)
		}
	}
	return tx.Commit()
}

// Search loads candidate rows under the scope filter and ranks them in
// process by cosine similarity, ties broken by document-order position.
func (s *Store) Search(ctx context.Context, query []float32, scope []string, k int) ([]driven.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}
	if scope != nil && len(scope) == 0 {
		return []driven.SearchHit{}, nil
	}

	sqlQuery := `SELECT id, document_id, content_type, content, heading, section_path, pages, position, embedding FROM chunks`
	var args []any
	if scope != nil {
		placeholders := ""
		for i, id := range scope {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "?"
			args = append(args, id)
		}
		sqlQuery += " WHERE document_id IN (" + placeholders + ")"
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var hits []driven.SearchHit
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, driven.SearchHit{
			Chunk: chunk,
			Score: cosineSimilarity(query, chunk.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.Index < hits[j].Chunk.Index
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteByDocument removes all of a document's chunks in one transaction,
// so a concurrent search sees either all of them or none.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete chunks for %s: %w", documentID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Count returns the total number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// DocumentStats aggregates stored chunk counts per document.
func (s *Store) DocumentStats(ctx context.Context) (map[string]domain.ChunkCounts, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, content_type, COUNT(*) FROM chunks
		GROUP BY document_id, content_type
	`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]domain.ChunkCounts)
	for rows.Next() {
		var docID, contentType string
		var n int
		if err := rows.Scan(&docID, &contentType, &n); err != nil {
			return nil, err
		}
		counts := stats[docID]
		switch domain.ContentType(contentType) {
		case domain.ContentText:
			counts.Text += n
		case domain.ContentTable:
			counts.Table += n
		case domain.ContentImage:
			counts.Image += n
		}
		stats[docID] = counts
	}
	return stats, rows.Err()
}

func scanChunk(rows *sql.Rows) (domain.Chunk, error) {
	var chunk domain.Chunk
	var contentType, sectionJSON, pagesJSON string
	var embeddingBlob []byte
	if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &contentType, &chunk.Text,
		&chunk.Heading, &sectionJSON, &pagesJSON, &chunk.Index, &embeddingBlob); err != nil {
		return chunk, fmt.Errorf("scan chunk: %w", err)
	}
	chunk.ContentType = domain.ContentType(contentType)
	if err := json.Unmarshal([]byte(sectionJSON), &chunk.SectionPath); err != nil {
		return chunk, fmt.Errorf("unmarshal section path: %w", err)
	}
	if err := json.Unmarshal([]byte(pagesJSON), &chunk.Pages); err != nil {
		return chunk, fmt.Errorf("unmarshal pages: %w", err)
	}
	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	return chunk, nil
}

// float32SliceToBytes encodes a vector as little-endian float32 bytes.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice decodes a little-endian float32 byte blob.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// cosineSimilarity matches the in-memory store's scoring so backends agree
// on ranking.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}
