package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"resumerag/internal/config"
	"resumerag/internal/domain"
	"resumerag/internal/uploads"
)

type fakeCore struct {
	jobs      map[int]domain.Job
	nextJobID int
	ingested  []domain.IngestRequest
	matchFn   func(jobID, topN int) (domain.MatchReport, error)
	askFn     func(question string) (domain.AskReport, error)
}

func newFakeCore() *fakeCore {
	return &fakeCore{jobs: make(map[int]domain.Job), nextJobID: 1}
}

func (f *fakeCore) Ingest(_ context.Context, req domain.IngestRequest) (domain.IngestResult, error) {
	f.ingested = append(f.ingested, req)
	return domain.IngestResult{SourceID: req.Path, Chunks: 1}, nil
}

func (f *fakeCore) CreateJob(description string) domain.Job {
	job := domain.Job{ID: f.nextJobID, Description: description}
	f.nextJobID++
	f.jobs[job.ID] = job
	return job
}

func (f *fakeCore) Job(id int) (domain.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeCore) Match(_ context.Context, jobID, topN int) (domain.MatchReport, error) {
	if f.matchFn != nil {
		return f.matchFn(jobID, topN)
	}
	if _, ok := f.jobs[jobID]; !ok {
		return domain.MatchReport{}, domain.ErrJobNotFound
	}
	return domain.MatchReport{Results: []domain.MatchResult{}, RequiredSkills: []string{}}, nil
}

func (f *fakeCore) Ask(_ context.Context, question string) (domain.AskReport, error) {
	if f.askFn != nil {
		return f.askFn(question)
	}
	return domain.AskReport{Results: []domain.Snippet{}}, nil
}

func newTestServer(t *testing.T, core *fakeCore) (*Server, *uploads.Dir) {
	t.Helper()
	dir, err := uploads.NewDir(t.TempDir())
	require.NoError(t, err)
	cfg := config.ServerConfig{Addr: ":0", UploadRatePerMin: 1000, AskRatePerMin: 1000}
	return New(cfg, core, dir, zap.NewNop()), dir
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func multipartUpload(t *testing.T, name string, content []byte, key string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/resumes", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestRootEndpoint(t *testing.T) {
	s, _ := newTestServer(t, newFakeCore())
	w := doJSON(t, s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "running")
}

func TestCreateAndGetJob(t *testing.T) {
	s, _ := newTestServer(t, newFakeCore())

	w := doJSON(t, s, http.MethodPost, "/api/jobs", `{"description":"Go developer"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var created domain.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 1, created.ID)

	w = doJSON(t, s, http.MethodGet, "/api/jobs/1", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateJobMissingDescription(t *testing.T) {
	s, _ := newTestServer(t, newFakeCore())
	w := doJSON(t, s, http.MethodPost, "/api/jobs", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUnknownJobIs404(t *testing.T) {
	s, _ := newTestServer(t, newFakeCore())
	w := doJSON(t, s, http.MethodGet, "/api/jobs/7", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMatchStatusMapping(t *testing.T) {
	core := newFakeCore()
	core.CreateJob("role")

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", domain.ErrJobNotFound, http.StatusNotFound},
		{"extraction failure", &domain.ExtractionError{Cause: errors.New("quota")}, http.StatusBadGateway},
		{"index failure", domain.ErrIndexUnavailable, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core.matchFn = func(int, int) (domain.MatchReport, error) {
				return domain.MatchReport{}, tt.err
			}
			s, _ := newTestServer(t, core)
			w := doJSON(t, s, http.MethodPost, "/api/jobs/1/match", `{"top_n":3}`)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestUploadTextResume(t *testing.T) {
	core := newFakeCore()
	s, dir := newTestServer(t, core)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, multipartUpload(t, "cv.txt", []byte("Go engineer"), "key-1"))
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, core.ingested, 1)
	assert.Equal(t, dir.Path("cv.txt"), core.ingested[0].Path)
	assert.Equal(t, []string{"Go engineer"}, core.ingested[0].Pages)
	assert.Equal(t, "key-1", core.ingested[0].IdempotencyKey)
	assert.True(t, dir.Exists("cv.txt"))
}

func TestUploadUnsupportedTypeLeavesNoTrace(t *testing.T) {
	core := newFakeCore()
	s, dir := newTestServer(t, core)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, multipartUpload(t, "cv.pdf", []byte("%PDF"), ""))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// the rejected file must not reach the upload directory or the index
	assert.Empty(t, core.ingested)
	assert.False(t, dir.Exists("cv.pdf"))
	names, err := dir.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestUploadZipIndexesSupportedEntries(t *testing.T) {
	core := newFakeCore()
	s, dir := newTestServer(t, core)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"a.txt":      "alpha resume",
		"b.md":       "beta resume",
		"ignore.png": "binary",
	} {
		fw, err := zw.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, multipartUpload(t, "batch.zip", buf.Bytes(), "batch-key"))
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, core.ingested, 2)
	for _, req := range core.ingested {
		assert.True(t, strings.HasPrefix(req.IdempotencyKey, "batch-key/"))
	}
	assert.True(t, dir.Exists("a.txt"))
	assert.True(t, dir.Exists("b.md"))
	assert.False(t, dir.Exists("ignore.png"))
}

func TestUploadEmptyZipIs422(t *testing.T) {
	s, _ := newTestServer(t, newFakeCore())

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create("photo.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("jpeg"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, multipartUpload(t, "photos.zip", buf.Bytes(), ""))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestListResumesPagination(t *testing.T) {
	s, dir := newTestServer(t, newFakeCore())
	for _, n := range []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"} {
		_, err := dir.Save(n, []byte("x"))
		require.NoError(t, err)
	}

	w := doJSON(t, s, http.MethodGet, "/api/resumes?limit=2&offset=2", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Resumes    []string `json:"resumes"`
		Total      int      `json:"total"`
		NextOffset *int     `json:"next_offset"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"c.txt", "d.txt"}, resp.Resumes)
	assert.Equal(t, 5, resp.Total)
	require.NotNil(t, resp.NextOffset)
	assert.Equal(t, 4, *resp.NextOffset)

	w = doJSON(t, s, http.MethodGet, "/api/resumes?limit=2&offset=4", "")
	resp.NextOffset = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"e.txt"}, resp.Resumes)
	assert.Nil(t, resp.NextOffset)
}

func TestAskEndpoint(t *testing.T) {
	core := newFakeCore()
	core.askFn = func(q string) (domain.AskReport, error) {
		return domain.AskReport{Results: []domain.Snippet{
			{Snippet: "<PERSON> knows Go", Source: "cv.txt", Score: 0.9},
		}}, nil
	}
	s, _ := newTestServer(t, core)

	w := doJSON(t, s, http.MethodPost, "/api/ask", `{"question":"who knows Go?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<PERSON>")

	w = doJSON(t, s, http.MethodPost, "/api/ask", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAskRateLimit(t *testing.T) {
	core := newFakeCore()
	dir, err := uploads.NewDir(t.TempDir())
	require.NoError(t, err)
	cfg := config.ServerConfig{Addr: ":0", UploadRatePerMin: 1000, AskRatePerMin: 1}
	s := New(cfg, core, dir, zap.NewNop())

	first := doJSON(t, s, http.MethodPost, "/api/ask", `{"question":"q"}`)
	assert.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, s, http.MethodPost, "/api/ask", `{"question":"q"}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
