// Package server provides the HTTP API for intently.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/intently/internal/artifact"
	"github.com/hyperjump/intently/internal/classifier"
	"github.com/hyperjump/intently/internal/config"
	"github.com/hyperjump/intently/internal/embedding"
	"github.com/hyperjump/intently/internal/metrics"
)

// ErrDimensionsDiffer is returned when an artifact was built with vectors of a different
// length than the configured embedder produces.
var ErrDimensionsDiffer = errors.New("artifact dimensions differ from embedder")

// snapshot is an immutable loaded index. Requests read one snapshot for their whole lifetime.
type snapshot struct {
	classifier *classifier.Classifier
	id         string
	model      string
	createdAt  time.Time
	loadedAt   time.Time
	path       string
}

// Server is the HTTP server for the intently API.
type Server struct {
	embedder  embedding.Embedder
	current   atomic.Pointer[snapshot]
	k         int
	threshold float64
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server that embeds queries with embedder. No index is loaded until
// SetArtifact or LoadArtifact succeeds.
func NewServer(embedder embedding.Embedder, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		embedder:  embedder,
		k:         cfg.Classifier.K,
		threshold: cfg.Classifier.ThresholdOrDefault(),
		config:    &cfg.Server,
		logger:    logger,
	}
}

// SetArtifact replaces the served index with a. On error the previous index stays in place.
func (s *Server) SetArtifact(a *artifact.Artifact, path string) error {
	if d := s.embedder.Dimensions(); d > 0 && d != a.Dimensions {
		return fmt.Errorf("%w: artifact has %d, embedder has %d", ErrDimensionsDiffer, a.Dimensions, d)
	}
	c, err := a.Classifier()
	if err != nil {
		return err
	}
	s.current.Store(&snapshot{
		classifier: c,
		id:         a.ID,
		model:      a.Model,
		createdAt:  a.CreatedAt,
		loadedAt:   time.Now().UTC(),
		path:       path,
	})
	metrics.IndexEntries.Set(float64(c.Size()))
	s.logger.Info("index loaded",
		zap.String("id", a.ID),
		zap.String("model", a.Model),
		zap.Int("entries", c.Size()),
		zap.Int("dimensions", c.Dimensions()),
	)
	return nil
}

// LoadArtifact reads the artifact at path and serves it. It is used both at startup and
// by the file watcher; a failed load keeps the previous index.
func (s *Server) LoadArtifact(path string) error {
	a, err := artifact.Load(path)
	if err == nil {
		err = s.SetArtifact(a, path)
	}
	if err != nil {
		metrics.IndexReloadsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("load artifact %s: %w", path, err)
	}
	metrics.IndexReloadsTotal.WithLabelValues("success").Inc()
	return nil
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/api/v1/classify", s.handleClassify)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
