package server

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"resumerag/internal/domain"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "ResumeRAG API is running"})
}

type uploadedFile struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
	Skipped  bool   `json:"skipped,omitempty"`
}

// handleUploadResume accepts one .txt or .md resume, or a .zip of them,
// stores the files in the upload directory, and indexes each before
// responding.
func (s *Server) handleUploadResume(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open upload"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
		return
	}

	key := c.GetHeader("Idempotency-Key")
	name := filepath.Base(fileHeader.Filename)

	var uploaded []uploadedFile
	if strings.EqualFold(filepath.Ext(name), ".zip") {
		uploaded, err = s.ingestArchive(c, name, data, key)
	} else {
		var one uploadedFile
		one, err = s.ingestFile(c, name, data, key)
		uploaded = []uploadedFile{one}
	}
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"uploaded": uploaded})
}

// ingestFile validates the file type before writing anything, so a
// rejected upload never appears in the resume listing.
func (s *Server) ingestFile(c *gin.Context, name string, data []byte, key string) (uploadedFile, error) {
	if !domain.SupportedSource(name) {
		return uploadedFile{}, fmt.Errorf("%w: file type %q", domain.ErrUnsupportedInput, strings.ToLower(filepath.Ext(name)))
	}
	path, err := s.uploads.Save(name, data)
	if err != nil {
		return uploadedFile{}, err
	}
	res, err := s.core.Ingest(c.Request.Context(), domain.IngestRequest{
		Path:           path,
		Pages:          []string{string(data)},
		IdempotencyKey: key,
	})
	if err != nil {
		return uploadedFile{}, err
	}
	return uploadedFile{Filename: name, Chunks: res.Chunks, Skipped: res.Duplicate}, nil
}

// ingestArchive indexes every supported entry of a zip upload. Entries
// share the request's idempotency key, scoped per entry name.
func (s *Server) ingestArchive(c *gin.Context, archiveName string, data []byte, key string) ([]uploadedFile, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid zip archive", domain.ErrUnsupportedInput)
	}

	var uploaded []uploadedFile
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(entry.Name)
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".txt" && ext != ".md" {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("read archive entry %s: %w", name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read archive entry %s: %w", name, err)
		}
		entryKey := key
		if entryKey != "" {
			entryKey = key + "/" + name
		}
		one, err := s.ingestFile(c, name, content, entryKey)
		if err != nil {
			return nil, err
		}
		uploaded = append(uploaded, one)
	}
	if len(uploaded) == 0 {
		return nil, fmt.Errorf("%w: archive %s contains no .txt or .md files", domain.ErrUnsupportedInput, archiveName)
	}
	return uploaded, nil
}

func (s *Server) handleListResumes(c *gin.Context) {
	limit := intQuery(c, "limit", defaultListLimit)
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := intQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	names, err := s.uploads.List()
	if err != nil {
		s.writeError(c, err)
		return
	}

	total := len(names)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	resp := gin.H{"resumes": names[offset:end], "total": total}
	if end < total {
		resp["next_offset"] = end
	}
	c.JSON(http.StatusOK, resp)
}

type createJobRequest struct {
	Description string `json:"description" binding:"required"`
}

func (s *Server) handleCreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description is required"})
		return
	}
	job := s.core.CreateJob(req.Description)
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleGetJob(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job id must be an integer"})
		return
	}
	job, err := s.core.Job(id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

type matchRequest struct {
	TopN int `json:"top_n"`
}

func (s *Server) handleMatch(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job id must be an integer"})
		return
	}
	var req matchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	report, err := s.core.Match(c.Request.Context(), id, req.TopN)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

func (s *Server) handleAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}
	report, err := s.core.Ask(c.Request.Context(), req.Question)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	var extractionErr *domain.ExtractionError
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
	case errors.Is(err, domain.ErrUnsupportedInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &extractionErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": extractionErr.Error()})
	default:
		s.log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
