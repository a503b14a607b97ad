package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Document is a single ingested file, already reduced to extracted text.
// Pages preserves the page structure the extractor produced; plain text
// files arrive as a single page.
type Document struct {
	SourceID string
	Pages    []string
}

// Chunk is a bounded text window of a document, embedded and indexed
// independently. Immutable once created; the vector store owns all
// persisted chunks and query results are copies.
type Chunk struct {
	ID        string
	SourceID  string
	Text      string
	Position  int
	Embedding []float32
}

// SearchResult is a matching chunk with its raw cosine similarity.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Job is a stored job description. IDs are monotonic integers assigned
// at creation, starting at 1, never reused.
type Job struct {
	ID          int       `json:"job_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"-"`
}

// MatchResult is the per-candidate outcome of a match request. It is
// derived on every call and never stored.
type MatchResult struct {
	Candidate       string   `json:"candidate"`
	MatchPercentage int      `json:"match_percentage"`
	RelevanceScore  int      `json:"relevance_score"`
	MatchingSkills  []string `json:"matching_skills"`
	MissingSkills   []string `json:"missing_skills"`
}

// MatchReport is the full output of the matching engine, ordered by
// match percentage descending.
type MatchReport struct {
	Results        []MatchResult `json:"results"`
	RequiredSkills []string      `json:"required_skills"`
}

// Snippet is one redacted answer fragment returned by the query engine.
type Snippet struct {
	Snippet string  `json:"snippet"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// AskReport is the query engine output, in retrieval order.
type AskReport struct {
	Results []Snippet `json:"results"`
}

// IngestRequest carries one document into the ingestion pipeline.
// IdempotencyKey, when set, deduplicates repeated submissions.
type IngestRequest struct {
	Path           string
	Pages          []string
	IdempotencyKey string
}

// IngestResult acknowledges a completed (or skipped) ingestion call.
type IngestResult struct {
	SourceID  string
	Chunks    int
	Duplicate bool
}

var supportedExtensions = map[string]struct{}{
	".txt": {},
	".md":  {},
}

// SupportedSource reports whether the path carries an ingestable file
// extension. Callers check this before performing any side effect.
func SupportedSource(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
