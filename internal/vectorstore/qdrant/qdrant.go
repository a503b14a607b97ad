package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"resumerag/internal/domain"
)

// Store is a minimal REST client to Qdrant. It assumes cosine distance
// and creates the collection on first write. Durability comes from the
// Qdrant server; upserts use wait=true so acknowledged writes are
// persisted before the call returns.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu      sync.Mutex
	created bool
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "resume_rag"
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// ensureCollection creates the collection if this store has not done so
// yet. Qdrant returns 200 when it already exists with the same schema.
func (s *Store) ensureCollection(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created {
		return nil
	}
	if dimension <= 0 {
		return errors.New("invalid embedding dimension")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body); err != nil {
		return err
	}
	s.created = true
	return nil
}

func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(chunks[0].Embedding)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	points := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		points[i] = map[string]any{
			"id":     c.ID,
			"vector": c.Embedding,
			"payload": map[string]any{
				"source_id": c.SourceID,
				"position":  c.Position,
				"text":      c.Text,
			},
		}
	}
	body := map[string]any{"points": points}
	if err := s.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      string         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		chunk := chunkFromPayload(r.ID, r.Payload)
		results = append(results, domain.SearchResult{Chunk: chunk, Score: r.Score})
	}
	return results, nil
}

// BySource scrolls all points whose payload source_id matches.
func (s *Store) BySource(ctx context.Context, sourceID string) ([]domain.Chunk, error) {
	req := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "source_id", "match": map[string]any{"value": sourceID}},
			},
		},
		"limit":        1024,
		"with_payload": true,
	}
	var resp struct {
		Result struct {
			Points []struct {
				ID      string         `json:"id"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/scroll", s.url, s.collection), req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	chunks := make([]domain.Chunk, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		chunks = append(chunks, chunkFromPayload(p.ID, p.Payload))
	}
	sortByPosition(chunks)
	return chunks, nil
}

func (s *Store) Clear(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil)
	if err != nil {
		return err
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	_ = resp.Body.Close()
	s.mu.Lock()
	s.created = false
	s.mu.Unlock()
	return nil
}

func (s *Store) Close() error { return nil }

func chunkFromPayload(id string, payload map[string]any) domain.Chunk {
	chunk := domain.Chunk{ID: id}
	if v, ok := payload["source_id"].(string); ok {
		chunk.SourceID = v
	}
	if v, ok := payload["position"].(float64); ok {
		chunk.Position = int(v)
	}
	if v, ok := payload["text"].(string); ok {
		chunk.Text = v
	}
	return chunk
}

func sortByPosition(chunks []domain.Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Position < chunks[j].Position })
}

func (s *Store) putJSON(ctx context.Context, url string, body any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (s *Store) postJSON(ctx context.Context, url string, body any, out any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		dec := json.NewDecoder(resp.Body)
		return dec.Decode(out)
	}
	return nil
}
