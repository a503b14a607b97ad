// Package service orchestrates the resume pipeline: ingestion into the
// vector index, skill-based matching of indexed resumes against jobs,
// and redacted question answering.
package service

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"resumerag/internal/domain"
)

const (
	// searchBreadth is the fixed retrieval window used for matching,
	// independent of how many candidates the caller asks for.
	searchBreadth = 20
	// askTopK bounds the snippets returned per question.
	askTopK = 5
	// DefaultTopN is the candidate count when the caller passes none.
	DefaultTopN = 3

	defaultEmbedWorkers = 4
)

// Deps collects the collaborators the service orchestrates.
type Deps struct {
	Chunker   domain.Chunker
	Embedder  domain.Embedder
	Index     domain.VectorStore
	Extractor domain.SkillExtractor
	Redactor  domain.Redactor
	Jobs      domain.JobStore
	Uploads   domain.UploadStore
	Logger    *zap.Logger
}

// Service is the application core behind every transport.
type Service struct {
	chunker   domain.Chunker
	embedder  domain.Embedder
	index     domain.VectorStore
	extractor domain.SkillExtractor
	redactor  domain.Redactor
	jobs      domain.JobStore
	uploads   domain.UploadStore
	log       *zap.Logger

	embedWorkers int

	mu       sync.Mutex
	seenKeys map[string]struct{}
}

// New wires a service from its collaborators. embedWorkers bounds the
// number of concurrent embedding calls per ingestion; values below one
// fall back to the default.
func New(deps Deps, embedWorkers int) *Service {
	if embedWorkers < 1 {
		embedWorkers = defaultEmbedWorkers
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		chunker:      deps.Chunker,
		embedder:     deps.Embedder,
		index:        deps.Index,
		extractor:    deps.Extractor,
		redactor:     deps.Redactor,
		jobs:         deps.Jobs,
		uploads:      deps.Uploads,
		log:          log,
		embedWorkers: embedWorkers,
		seenKeys:     make(map[string]struct{}),
	}
}

// Ingest chunks, embeds, and durably indexes one document. The call
// returns only after the index write is acknowledged. A repeated
// idempotency key turns the call into a no-op success.
func (s *Service) Ingest(ctx context.Context, req domain.IngestRequest) (domain.IngestResult, error) {
	if !domain.SupportedSource(req.Path) {
		return domain.IngestResult{}, fmt.Errorf("%w: file type %q", domain.ErrUnsupportedInput, strings.ToLower(filepath.Ext(req.Path)))
	}

	// Reserve the key atomically so concurrent calls with the same key
	// cannot both index; a failed call frees it for retry.
	if req.IdempotencyKey != "" && !s.reserveKey(req.IdempotencyKey) {
		s.log.Info("skipping previously ingested document",
			zap.String("source", req.Path),
			zap.String("idempotency_key", req.IdempotencyKey))
		return domain.IngestResult{SourceID: req.Path, Duplicate: true}, nil
	}

	doc := domain.Document{SourceID: req.Path, Pages: req.Pages}
	chunks, err := s.chunker.Chunk(doc)
	if err != nil {
		s.releaseKey(req.IdempotencyKey)
		return domain.IngestResult{}, fmt.Errorf("chunk %s: %w", req.Path, err)
	}

	if len(chunks) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.embedWorkers)
		for i := range chunks {
			g.Go(func() error {
				vec, err := s.embedder.Embed(gctx, chunks[i].Text)
				if err != nil {
					return fmt.Errorf("embed chunk %d of %s: %w", chunks[i].Position, req.Path, err)
				}
				chunks[i].Embedding = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			s.releaseKey(req.IdempotencyKey)
			return domain.IngestResult{}, err
		}
		if err := s.index.Upsert(ctx, chunks); err != nil {
			s.releaseKey(req.IdempotencyKey)
			return domain.IngestResult{}, err
		}
	}

	s.log.Info("document ingested",
		zap.String("source", req.Path),
		zap.Int("chunks", len(chunks)))
	return domain.IngestResult{SourceID: req.Path, Chunks: len(chunks)}, nil
}

// CreateJob stores a job description and returns the assigned record.
func (s *Service) CreateJob(description string) domain.Job {
	job := s.jobs.Create(description)
	s.log.Info("job created", zap.Int("job_id", job.ID))
	return job
}

// Job returns a stored job or domain.ErrJobNotFound.
func (s *Service) Job(id int) (domain.Job, error) {
	return s.jobs.Get(id)
}

// Match ranks indexed resumes against the stored job. An unknown job or
// a skill-extraction failure aborts before any index access or scoring.
func (s *Service) Match(ctx context.Context, jobID, topN int) (domain.MatchReport, error) {
	if topN < 1 {
		topN = DefaultTopN
	}

	job, err := s.jobs.Get(jobID)
	if err != nil {
		return domain.MatchReport{}, err
	}

	skills, err := s.extractor.Extract(ctx, job.Description)
	if err != nil {
		return domain.MatchReport{}, err
	}
	if skills == nil {
		skills = []string{}
	}

	hits, err := s.search(ctx, job.Description, searchBreadth)
	if err != nil {
		return domain.MatchReport{}, err
	}

	candidates := s.rankCandidates(hits, topN)

	report := domain.MatchReport{
		Results:        make([]domain.MatchResult, 0, len(candidates)),
		RequiredSkills: skills,
	}
	for _, c := range candidates {
		text, err := s.candidateText(ctx, c.name)
		if err != nil {
			return domain.MatchReport{}, err
		}
		matching, missing := classifySkills(text, skills)
		report.Results = append(report.Results, domain.MatchResult{
			Candidate:       c.name,
			MatchPercentage: matchPercentage(len(matching), len(skills)),
			RelevanceScore:  c.tally,
			MatchingSkills:  matching,
			MissingSkills:   missing,
		})
	}

	// Percentage order decides the output; equal percentages keep the
	// tally order established above.
	sort.SliceStable(report.Results, func(i, j int) bool {
		return report.Results[i].MatchPercentage > report.Results[j].MatchPercentage
	})

	s.log.Info("match computed",
		zap.Int("job_id", jobID),
		zap.Int("skills", len(skills)),
		zap.Int("candidates", len(report.Results)))
	return report, nil
}

// Ask answers a free-text question with the most relevant indexed
// snippets, each redacted before it leaves the service.
func (s *Service) Ask(ctx context.Context, question string) (domain.AskReport, error) {
	hits, err := s.search(ctx, question, askTopK)
	if err != nil {
		return domain.AskReport{}, err
	}

	report := domain.AskReport{Results: make([]domain.Snippet, 0, len(hits))}
	for _, h := range hits {
		report.Results = append(report.Results, domain.Snippet{
			Snippet: s.redactor.Redact(h.Chunk.Text),
			Source:  filepath.Base(h.Chunk.SourceID),
			Score:   normalizeScore(h.Score),
		})
	}
	return report, nil
}

func (s *Service) search(ctx context.Context, text string, topK int) ([]domain.SearchResult, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.index.Search(ctx, vec, topK)
}

type candidate struct {
	name  string
	tally int
}

// rankCandidates tallies retrieval hits per basename, orders by tally
// descending with first-retrieved winning ties, drops sources whose
// upload no longer exists, and keeps the first topN.
func (s *Service) rankCandidates(hits []domain.SearchResult, topN int) []candidate {
	tally := make(map[string]int)
	var order []string
	for _, h := range hits {
		name := filepath.Base(h.Chunk.SourceID)
		if _, seen := tally[name]; !seen {
			order = append(order, name)
		}
		tally[name]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return tally[order[i]] > tally[order[j]]
	})

	available := s.availableUploads()
	candidates := make([]candidate, 0, topN)
	for _, name := range order {
		if _, ok := available[name]; !ok {
			continue
		}
		candidates = append(candidates, candidate{name: name, tally: tally[name]})
		if len(candidates) == topN {
			break
		}
	}
	return candidates
}

func (s *Service) availableUploads() map[string]struct{} {
	names, err := s.uploads.List()
	if err != nil {
		s.log.Warn("listing uploads failed, treating directory as empty", zap.Error(err))
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// candidateText reconstructs a document's full indexed text by joining
// its chunks, in position order, with single spaces.
func (s *Service) candidateText(ctx context.Context, name string) (string, error) {
	chunks, err := s.index.BySource(ctx, s.uploads.Path(name))
	if err != nil {
		return "", err
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, " "), nil
}

// classifySkills splits the required skills into matching and missing
// by case-insensitive substring containment, preserving skill order.
func classifySkills(text string, skills []string) (matching, missing []string) {
	lower := strings.ToLower(text)
	matching = make([]string, 0, len(skills))
	missing = make([]string, 0, len(skills))
	for _, skill := range skills {
		if strings.Contains(lower, strings.ToLower(skill)) {
			matching = append(matching, skill)
		} else {
			missing = append(missing, skill)
		}
	}
	return matching, missing
}

func matchPercentage(matching, required int) int {
	if required == 0 {
		return 0
	}
	return int(math.Round(100 * float64(matching) / float64(required)))
}

// normalizeScore maps cosine similarity from [-1, 1] onto [0, 1].
func normalizeScore(cos float64) float64 {
	return (cos + 1) / 2
}

// reserveKey records the key and reports whether it was unseen. The
// check and the record happen under one lock.
func (s *Service) reserveKey(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seenKeys[key]; ok {
		return false
	}
	s.seenKeys[key] = struct{}{}
	return true
}

func (s *Service) releaseKey(key string) {
	if key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seenKeys, key)
}
