// Package skills turns free-text job descriptions into normalized
// required-skill keyword lists via a generative text model.
package skills

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"resumerag/internal/domain"
)

// TextGenerator produces one text completion for a prompt, bounded to a
// maximum output length.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

const promptTemplate = "From the following job description, list the most important technical skills. " +
	"Return only a comma-separated list of keywords.\n\nJob Description:\n"

// DefaultMaxTokens bounds the completion length.
const DefaultMaxTokens = 100

// DefaultTimeout is the wall-clock budget for one extraction call.
const DefaultTimeout = 30 * time.Second

// Extractor orchestrates prompt construction, the generation call, and
// deterministic post-processing of the completion.
type Extractor struct {
	generator TextGenerator
	logger    *zap.Logger
	timeout   time.Duration
	maxTokens int
}

// NewExtractor creates an extractor around the given generator.
func NewExtractor(generator TextGenerator, logger *zap.Logger, timeout time.Duration, maxTokens int) *Extractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Extractor{generator: generator, logger: logger, timeout: timeout, maxTokens: maxTokens}
}

// Extract returns the normalized skill keywords for the job description.
// Any generation failure, including a blown time budget, is reported as
// a *domain.ExtractionError value.
func (e *Extractor) Extract(ctx context.Context, jobDescription string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.generator.Generate(ctx, promptTemplate+jobDescription, e.maxTokens)
	if err != nil {
		e.logger.Warn("skill extraction failed", zap.Error(err))
		return nil, &domain.ExtractionError{Cause: err}
	}

	skills := Normalize(raw)
	e.logger.Debug("extracted skills",
		zap.Int("count", len(skills)),
		zap.Strings("skills", skills),
	)
	return skills, nil
}

var markerReplacer = strings.NewReplacer("Skills:", "", "*", "", "-", "")

// Normalize applies the deterministic post-processing to a completion:
// strip marker tokens, split on commas, trim each item, drop empties and
// duplicates while preserving extraction order.
func Normalize(raw string) []string {
	cleaned := strings.TrimSpace(markerReplacer.Replace(raw))
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(cleaned, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key := strings.ToLower(part)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, part)
	}
	return out
}
