package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"resumerag/internal/domain"
)

// Store is an in-memory vector store using brute-force cosine similarity.
// It keeps chunks in insertion order so score ties rank older chunks
// first. Intended for tests and ephemeral runs; it does not survive
// restarts.
type Store struct {
	mu     sync.RWMutex
	chunks []domain.Chunk
}

func NewStore() *Store { return &Store{} }

// Upsert appends the chunks. Chunks must carry embeddings of equal width.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return errors.New("chunk missing embedding")
		}
	}
	s.chunks = append(s.chunks, chunks...)
	return nil
}

// Search returns the topK chunks by descending cosine similarity.
func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	results := make([]domain.SearchResult, 0, len(s.chunks))
	for _, c := range s.chunks {
		results = append(results, domain.SearchResult{Chunk: c, Score: cosine(c.Embedding, vector)})
	}
	// stable: ties keep insertion order
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

// BySource returns every chunk of the given source in position order.
func (s *Store) BySource(ctx context.Context, sourceID string) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Chunk
	for _, c := range s.chunks {
		if c.SourceID == sourceID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	return nil
}

func (s *Store) Close() error { return nil }

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
