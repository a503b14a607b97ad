package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"resumerag/internal/domain"
)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of characters shared between
// consecutive chunks.
const DefaultChunkOverlap = 50

// RecursiveChunker splits page text into overlapping fixed-size windows,
// preferring to break at paragraph, sentence, and word boundaries before
// falling back to hard character cuts.
type RecursiveChunker struct {
	chunkSize int
	overlap   int
}

// NewRecursiveChunker creates a chunker with the given window size and
// overlap. Non-positive or inconsistent values fall back to defaults.
func NewRecursiveChunker(chunkSize, overlap int) *RecursiveChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &RecursiveChunker{chunkSize: chunkSize, overlap: overlap}
}

// Chunk splits every page of the document into windows. Chunk text keeps
// the raw spans so that, overlap aside, the pages can be reconstructed
// from the chunk sequence. Empty and whitespace-only input yields zero
// chunks.
func (c *RecursiveChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	position := 0
	for _, page := range document.Pages {
		for _, span := range c.splitPage(page) {
			chunks = append(chunks, domain.Chunk{
				ID:       uuid.New().String(),
				SourceID: document.SourceID,
				Text:     span,
				Position: position,
			})
			position++
		}
	}
	return chunks, nil
}

func (c *RecursiveChunker) splitPage(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= c.chunkSize {
		return []string{text}
	}
	var spans []string
	start := 0
	for start < len(text) {
		end := start + c.chunkSize
		if end >= len(text) {
			spans = append(spans, text[start:])
			break
		}
		cut := c.boundary(text, start, end)
		spans = append(spans, text[start:cut])
		next := runeFloor(text, cut-c.overlap)
		if next <= start {
			next = cut
		}
		start = next
	}
	return spans
}

// boundary picks the latest natural break inside the window, never
// shrinking the chunk below half its size.
func (c *RecursiveChunker) boundary(text string, start, end int) int {
	window := text[start:end]
	min := c.chunkSize / 2
	if i := strings.LastIndex(window, "\n\n"); i >= min {
		return start + i + 2
	}
	if i := lastSentenceEnd(window); i >= min {
		return start + i
	}
	if i := strings.LastIndexByte(window, '\n'); i >= min {
		return start + i + 1
	}
	if i := strings.LastIndexByte(window, ' '); i >= min {
		return start + i + 1
	}
	return runeFloor(text, end)
}

// runeFloor backs i up to the start of the rune containing it, so a
// hard cut never splits a multi-byte character.
func runeFloor(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// lastSentenceEnd returns the index just past the last terminator that is
// followed by whitespace, or -1 when the window has none.
func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i > 0; i-- {
		if s[i] != ' ' && s[i] != '\n' && s[i] != '\t' {
			continue
		}
		switch s[i-1] {
		case '.', '!', '?':
			return i + 1
		}
	}
	return -1
}
