package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"resumerag/internal/chunker"
	"resumerag/internal/domain"
	"resumerag/internal/jobs"
	"resumerag/internal/uploads"
)

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Name() string   { return "fake" }
func (f *fakeEmbedder) Dimension() int { return 3 }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	return []float32{float32(len(text)), 1, 0}, nil
}

// flakyEmbedder fails a fixed number of calls before recovering.
type flakyEmbedder struct {
	failures int
}

func (f *flakyEmbedder) Name() string   { return "flaky" }
func (f *flakyEmbedder) Dimension() int { return 3 }

func (f *flakyEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("embedding backend unavailable")
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

type fakeIndex struct {
	searchCalls int
	upserted    [][]domain.Chunk
	hits        []domain.SearchResult
	bySource    map[string][]domain.Chunk
}

func (f *fakeIndex) Upsert(_ context.Context, chunks []domain.Chunk) error {
	f.upserted = append(f.upserted, chunks)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, topK int) ([]domain.SearchResult, error) {
	f.searchCalls++
	if topK > len(f.hits) {
		topK = len(f.hits)
	}
	return f.hits[:topK], nil
}

func (f *fakeIndex) BySource(_ context.Context, sourceID string) ([]domain.Chunk, error) {
	return f.bySource[sourceID], nil
}

func (f *fakeIndex) Clear(context.Context) error { return nil }
func (f *fakeIndex) Close() error                { return nil }

type fakeExtractor struct {
	skills []string
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(context.Context, string) ([]string, error) {
	f.calls++
	return f.skills, f.err
}

type markRedactor struct{}

func (markRedactor) Redact(text string) string { return "[redacted]" + text }

func newTestService(t *testing.T, index *fakeIndex, extractor *fakeExtractor, dir *uploads.Dir) *Service {
	t.Helper()
	return New(Deps{
		Chunker:   chunker.NewRecursiveChunker(500, 50),
		Embedder:  &fakeEmbedder{},
		Index:     index,
		Extractor: extractor,
		Redactor:  markRedactor{},
		Jobs:      jobs.NewStore(),
		Uploads:   dir,
		Logger:    zap.NewNop(),
	}, 2)
}

func newUploadDir(t *testing.T, names ...string) *uploads.Dir {
	t.Helper()
	dir, err := uploads.NewDir(t.TempDir())
	require.NoError(t, err)
	for _, n := range names {
		_, err := dir.Save(n, []byte("stored"))
		require.NoError(t, err)
	}
	return dir
}

func hit(dir *uploads.Dir, name string, score float64) domain.SearchResult {
	return domain.SearchResult{
		Chunk: domain.Chunk{SourceID: dir.Path(name), Text: "chunk of " + name},
		Score: score,
	}
}

func TestMatchUnknownJobTouchesNothing(t *testing.T) {
	index := &fakeIndex{}
	extractor := &fakeExtractor{skills: []string{"Go"}}
	svc := newTestService(t, index, extractor, newUploadDir(t))

	_, err := svc.Match(context.Background(), 99, 3)
	require.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.Zero(t, extractor.calls)
	assert.Zero(t, index.searchCalls)
}

func TestMatchExtractionFailureStopsBeforeScoring(t *testing.T) {
	index := &fakeIndex{}
	cause := errors.New("model overloaded")
	extractor := &fakeExtractor{err: &domain.ExtractionError{Cause: cause}}
	svc := newTestService(t, index, extractor, newUploadDir(t))
	job := svc.CreateJob("any role")

	_, err := svc.Match(context.Background(), job.ID, 3)
	var extractionErr *domain.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Zero(t, index.searchCalls)
}

func TestMatchSkillCoverage(t *testing.T) {
	dir := newUploadDir(t, "jane.txt")
	index := &fakeIndex{
		hits: []domain.SearchResult{hit(dir, "jane.txt", 0.9)},
		bySource: map[string][]domain.Chunk{
			dir.Path("jane.txt"): {
				{Text: "Built services in Python with"},
				{Text: "Docker deployments."},
			},
		},
	}
	extractor := &fakeExtractor{skills: []string{"Python", "AWS", "Docker"}}
	svc := newTestService(t, index, extractor, dir)
	job := svc.CreateJob("Looking for a Python developer with AWS and Docker experience")

	report, err := svc.Match(context.Background(), job.ID, 3)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	got := report.Results[0]
	assert.Equal(t, "jane.txt", got.Candidate)
	assert.Equal(t, 67, got.MatchPercentage)
	assert.Equal(t, []string{"Python", "Docker"}, got.MatchingSkills)
	assert.Equal(t, []string{"AWS"}, got.MissingSkills)
	assert.Equal(t, 1, got.RelevanceScore)
	assert.Equal(t, []string{"Python", "AWS", "Docker"}, report.RequiredSkills)
}

func TestMatchSkipsRemovedUploads(t *testing.T) {
	dir := newUploadDir(t, "kept.txt", "also.txt")
	index := &fakeIndex{
		hits: []domain.SearchResult{
			hit(dir, "gone.txt", 0.95),
			hit(dir, "kept.txt", 0.9),
			hit(dir, "also.txt", 0.8),
		},
		bySource: map[string][]domain.Chunk{
			dir.Path("kept.txt"): {{Text: "Go services"}},
			dir.Path("also.txt"): {{Text: "Go and SQL"}},
		},
	}
	extractor := &fakeExtractor{skills: []string{"Go"}}
	svc := newTestService(t, index, extractor, dir)
	job := svc.CreateJob("Go developer")

	report, err := svc.Match(context.Background(), job.ID, 3)
	require.NoError(t, err)

	// gone.txt was indexed but its upload was removed; the result list
	// is shorter than top_n with no padding.
	require.Len(t, report.Results, 2)
	assert.Equal(t, "kept.txt", report.Results[0].Candidate)
	assert.Equal(t, "also.txt", report.Results[1].Candidate)
}

func TestMatchOrdersByPercentageOverTally(t *testing.T) {
	dir := newUploadDir(t, "broad.txt", "focused.txt")
	index := &fakeIndex{
		// broad.txt dominates retrieval but covers fewer skills.
		hits: []domain.SearchResult{
			hit(dir, "broad.txt", 0.9),
			hit(dir, "broad.txt", 0.85),
			hit(dir, "broad.txt", 0.8),
			hit(dir, "focused.txt", 0.7),
		},
		bySource: map[string][]domain.Chunk{
			dir.Path("broad.txt"):   {{Text: "Knows Python only"}},
			dir.Path("focused.txt"): {{Text: "Python and Kubernetes expert"}},
		},
	}
	extractor := &fakeExtractor{skills: []string{"Python", "Kubernetes"}}
	svc := newTestService(t, index, extractor, dir)
	job := svc.CreateJob("Python and Kubernetes role")

	report, err := svc.Match(context.Background(), job.ID, 3)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	assert.Equal(t, "focused.txt", report.Results[0].Candidate)
	assert.Equal(t, 100, report.Results[0].MatchPercentage)
	assert.Equal(t, "broad.txt", report.Results[1].Candidate)
	assert.Equal(t, 50, report.Results[1].MatchPercentage)
	assert.Equal(t, 3, report.Results[1].RelevanceScore)
}

func TestMatchNoSkillsYieldsZeroPercent(t *testing.T) {
	dir := newUploadDir(t, "cv.txt")
	index := &fakeIndex{
		hits:     []domain.SearchResult{hit(dir, "cv.txt", 0.9)},
		bySource: map[string][]domain.Chunk{dir.Path("cv.txt"): {{Text: "anything"}}},
	}
	extractor := &fakeExtractor{skills: nil}
	svc := newTestService(t, index, extractor, dir)
	job := svc.CreateJob("vague description")

	report, err := svc.Match(context.Background(), job.ID, 3)
	require.NoError(t, err)
	// a nil skill list from the extractor still serializes as [].
	require.NotNil(t, report.RequiredSkills)
	assert.Empty(t, report.RequiredSkills)
	require.Len(t, report.Results, 1)
	assert.Equal(t, 0, report.Results[0].MatchPercentage)
	assert.Empty(t, report.Results[0].MatchingSkills)
}

func TestIngestRejectsUnsupportedExtension(t *testing.T) {
	index := &fakeIndex{}
	svc := newTestService(t, index, &fakeExtractor{}, newUploadDir(t))

	_, err := svc.Ingest(context.Background(), domain.IngestRequest{
		Path:  "uploads/resume.pdf",
		Pages: []string{"content"},
	})
	require.ErrorIs(t, err, domain.ErrUnsupportedInput)
	assert.Empty(t, index.upserted)
}

func TestIngestEmbedsAndPersists(t *testing.T) {
	index := &fakeIndex{}
	svc := newTestService(t, index, &fakeExtractor{}, newUploadDir(t))

	res, err := svc.Ingest(context.Background(), domain.IngestRequest{
		Path:  "uploads/resume.txt",
		Pages: []string{"Go developer with five years of backend experience."},
	})
	require.NoError(t, err)
	assert.Equal(t, "uploads/resume.txt", res.SourceID)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 1, res.Chunks)

	require.Len(t, index.upserted, 1)
	for _, c := range index.upserted[0] {
		assert.NotEmpty(t, c.Embedding)
		assert.Equal(t, "uploads/resume.txt", c.SourceID)
	}
}

func TestIngestIdempotencyKey(t *testing.T) {
	index := &fakeIndex{}
	svc := newTestService(t, index, &fakeExtractor{}, newUploadDir(t))
	req := domain.IngestRequest{
		Path:           "uploads/resume.txt",
		Pages:          []string{"some resume text"},
		IdempotencyKey: "abc-123",
	}

	first, err := svc.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := svc.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Len(t, index.upserted, 1)
}

func TestIngestFailureFreesIdempotencyKey(t *testing.T) {
	index := &fakeIndex{}
	svc := New(Deps{
		Chunker:   chunker.NewRecursiveChunker(500, 50),
		Embedder:  &flakyEmbedder{failures: 1},
		Index:     index,
		Extractor: &fakeExtractor{},
		Redactor:  markRedactor{},
		Jobs:      jobs.NewStore(),
		Uploads:   newUploadDir(t),
		Logger:    zap.NewNop(),
	}, 1)
	req := domain.IngestRequest{
		Path:           "uploads/resume.txt",
		Pages:          []string{"some resume text"},
		IdempotencyKey: "retry-me",
	}

	_, err := svc.Ingest(context.Background(), req)
	require.Error(t, err)
	assert.Empty(t, index.upserted)

	// a failed ingestion must not burn the key; the retry indexes.
	res, err := svc.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Len(t, index.upserted, 1)
}

func TestAskRedactsSnippets(t *testing.T) {
	dir := newUploadDir(t, "cv.txt")
	index := &fakeIndex{
		hits: []domain.SearchResult{
			{Chunk: domain.Chunk{SourceID: dir.Path("cv.txt"), Text: "reach me at cv@example.com"}, Score: 1},
			{Chunk: domain.Chunk{SourceID: dir.Path("cv.txt"), Text: "worked on billing"}, Score: 0},
		},
	}
	svc := newTestService(t, index, &fakeExtractor{}, dir)

	report, err := svc.Ask(context.Background(), "who knows billing?")
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	assert.Equal(t, "[redacted]reach me at cv@example.com", report.Results[0].Snippet)
	assert.Equal(t, "cv.txt", report.Results[0].Source)
	assert.InDelta(t, 1.0, report.Results[0].Score, 1e-9)
	assert.InDelta(t, 0.5, report.Results[1].Score, 1e-9)
}
