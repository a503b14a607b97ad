// Package server exposes the resume pipeline over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"resumerag/internal/config"
	"resumerag/internal/domain"
)

// Core is the application surface the handlers call into.
type Core interface {
	Ingest(ctx context.Context, req domain.IngestRequest) (domain.IngestResult, error)
	CreateJob(description string) domain.Job
	Job(id int) (domain.Job, error)
	Match(ctx context.Context, jobID, topN int) (domain.MatchReport, error)
	Ask(ctx context.Context, question string) (domain.AskReport, error)
}

// Server wires the gin router around the application core.
type Server struct {
	cfg     config.ServerConfig
	core    Core
	uploads domain.UploadStore
	log     *zap.Logger
	router  *gin.Engine
	httpSrv *http.Server
}

// New builds a server with all routes and middleware registered.
func New(cfg config.ServerConfig, core Core, uploads domain.UploadStore, log *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:     cfg,
		core:    core,
		uploads: uploads,
		log:     log,
		router:  gin.New(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(s.log))
	s.router.Use(corsMiddleware())
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleRoot)

	api := s.router.Group("/api")
	api.POST("/resumes", rateLimit(s.cfg.UploadRatePerMin), s.handleUploadResume)
	api.GET("/resumes", s.handleListResumes)
	api.POST("/jobs", s.handleCreateJob)
	api.GET("/jobs/:id", s.handleGetJob)
	api.POST("/jobs/:id/match", s.handleMatch)
	api.POST("/ask", rateLimit(s.cfg.AskRatePerMin), s.handleAsk)
}

// Router returns the underlying gin engine, used by handler tests.
func (s *Server) Router() *gin.Engine { return s.router }

// Start blocks serving HTTP until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.log.Info("http server listening", zap.String("addr", s.cfg.Addr))
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
