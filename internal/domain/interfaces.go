package domain

import "context"

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts free text into a numeric vector representation.
// Deterministic for a given model version.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore persists embedded chunks and supports similarity search.
// Implementations serialize their own writes and allow concurrent reads.
type VectorStore interface {
	// Upsert persists the chunks durably before returning.
	Upsert(ctx context.Context, chunks []Chunk) error
	// Search returns up to topK chunks ordered by descending cosine
	// similarity; ties keep insertion order.
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	// BySource returns every chunk whose source id equals sourceID,
	// in chunk position order.
	BySource(ctx context.Context, sourceID string) ([]Chunk, error)
	Clear(ctx context.Context) error
	Close() error
}

// SkillExtractor derives normalized required-skill keywords from a job
// description. Failures are reported as *ExtractionError values.
type SkillExtractor interface {
	Extract(ctx context.Context, jobDescription string) ([]string, error)
}

// Redactor masks personally identifiable spans before text leaves the
// system.
type Redactor interface {
	Redact(text string) string
}

// JobStore holds job descriptions for the process lifetime.
type JobStore interface {
	Create(description string) Job
	// Get returns ErrJobNotFound for unknown IDs.
	Get(id int) (Job, error)
}

// UploadStore is the upload-directory collaborator. A document is
// available for matching only while its file is still listed here.
type UploadStore interface {
	Save(name string, data []byte) (string, error)
	List() ([]string, error)
	Exists(name string) bool
	Path(name string) string
}
