package skills

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"resumerag/internal/domain"
)

type stubGenerator struct {
	response      string
	err           error
	lastPrompt    string
	lastMaxTokens int
}

func (s *stubGenerator) Generate(_ context.Context, prompt string, maxTokens int) (string, error) {
	s.lastPrompt = prompt
	s.lastMaxTokens = maxTokens
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestExtractBuildsPromptAndNormalizes(t *testing.T) {
	stub := &stubGenerator{response: "Skills: Python, AWS, Docker"}
	e := NewExtractor(stub, zap.NewNop(), 0, 0)

	skills, err := e.Extract(context.Background(), "Looking for a Python developer with AWS and Docker experience")
	require.NoError(t, err)
	assert.Equal(t, []string{"Python", "AWS", "Docker"}, skills)

	assert.True(t, strings.Contains(stub.lastPrompt, "Job Description:"))
	assert.True(t, strings.Contains(stub.lastPrompt, "Python developer"))
	assert.Equal(t, DefaultMaxTokens, stub.lastMaxTokens)
}

func TestExtractReportsStructuredFailure(t *testing.T) {
	stub := &stubGenerator{err: errors.New("model unavailable")}
	e := NewExtractor(stub, zap.NewNop(), 0, 0)

	skills, err := e.Extract(context.Background(), "any description")
	require.Error(t, err)
	assert.Nil(t, skills)

	var extractionErr *domain.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Contains(t, extractionErr.Error(), "model unavailable")
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "markers and bullets",
			raw:  "Skills: * Python, - AWS, Docker",
			want: []string{"Python", "AWS", "Docker"},
		},
		{
			name: "empty items dropped",
			raw:  "Python, , ,Docker,",
			want: []string{"Python", "Docker"},
		},
		{
			name: "duplicates collapse case insensitively",
			raw:  "Go, go, GO, Kubernetes",
			want: []string{"Go", "Kubernetes"},
		},
		{
			name: "blank completion",
			raw:  "   ",
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.raw))
		})
	}
}
