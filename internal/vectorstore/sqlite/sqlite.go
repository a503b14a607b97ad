package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite" // SQLite driver

	"resumerag/internal/domain"
)

// Store is a durable vector store backed by SQLite. Embeddings are kept
// as little-endian float32 blobs. Writes run inside transactions and are
// committed before Upsert returns; WAL mode lets readers proceed while a
// write is in flight.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT PRIMARY KEY,
	source_id  TEXT NOT NULL,
	position   INTEGER NOT NULL,
	text       TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id);
`

// NewStore opens (creating if needed) the index database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %v", domain.ErrIndexUnavailable, err)
	}

	dbPath := filepath.Join(dataDir, "index.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", domain.ErrIndexUnavailable, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: applying schema: %v", domain.ErrIndexUnavailable, err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Upsert persists the chunks in one transaction. The commit is
// synchronous: once Upsert returns nil the chunks survive a crash.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", domain.ErrIndexUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, source_id, position, text, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			position = excluded.position,
			text = excluded.text,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing statement: %v", domain.ErrIndexUnavailable, err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		blob := float32SliceToBytes(chunk.Embedding)
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.SourceID, chunk.Position, chunk.Text, blob); err != nil {
			return fmt.Errorf("%w: saving chunk: %v", domain.ErrIndexUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Search scans all chunks in insertion (rowid) order and ranks them by
// cosine similarity. The stable sort keeps insertion order on ties.
func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_id, position, text, embedding
		FROM chunks ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %v", domain.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, domain.SearchResult{
			Chunk: chunk,
			Score: cosine(chunk.Embedding, vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating chunks: %v", domain.ErrIndexUnavailable, err)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

// BySource returns every chunk of the given source in position order.
func (s *Store) BySource(ctx context.Context, sourceID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_id, position, text, embedding
		FROM chunks WHERE source_id = ?
		ORDER BY position
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying source chunks: %v", domain.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating source chunks: %v", domain.ErrIndexUnavailable, err)
	}
	return chunks, nil
}

// Clear removes every indexed chunk.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("%w: clearing chunks: %v", domain.ErrIndexUnavailable, err)
	}
	return nil
}

func scanChunk(rows *sql.Rows) (domain.Chunk, error) {
	var chunk domain.Chunk
	var blob []byte
	if err := rows.Scan(&chunk.ID, &chunk.SourceID, &chunk.Position, &chunk.Text, &blob); err != nil {
		return domain.Chunk{}, fmt.Errorf("%w: scanning chunk: %v", domain.ErrIndexUnavailable, err)
	}
	chunk.Embedding = bytesToFloat32Slice(blob)
	return chunk, nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
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

// bytesToFloat32Slice converts a byte slice back to []float32.
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
