package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/intently/internal/classifier"
	"github.com/hyperjump/intently/internal/embedding"
	"github.com/hyperjump/intently/internal/metrics"
	"github.com/hyperjump/intently/internal/vector"
)

type classifyRequest struct {
	Query     string   `json:"query"`
	K         *int     `json:"k,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Explain   bool     `json:"explain,omitempty"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ClassificationErrorsTotal.WithLabelValues("bad_request").Inc()
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		metrics.ClassificationErrorsTotal.WithLabelValues("bad_request").Inc()
		s.respondError(w, http.StatusBadRequest, "Missing 'query' field")
		return
	}

	snap := s.current.Load()
	if snap == nil {
		metrics.ClassificationErrorsTotal.WithLabelValues("no_index").Inc()
		s.respondError(w, http.StatusServiceUnavailable, "no index loaded")
		return
	}

	opts := []classifier.Option{
		classifier.WithK(s.k),
		classifier.WithThreshold(s.threshold),
		classifier.WithNeighbors(req.Explain),
	}
	if req.K != nil {
		opts = append(opts, classifier.WithK(*req.K))
	}
	if req.Threshold != nil {
		opts = append(opts, classifier.WithThreshold(*req.Threshold))
	}

	s.logger.Debug("classify request", zap.String("query", req.Query), zap.Bool("explain", req.Explain))
	emb, err := s.embedder.Embed(r.Context(), req.Query)
	if err != nil {
		s.fail(w, err)
		return
	}
	result, err := snap.classifier.Classify(emb, opts...)
	if err != nil {
		s.fail(w, err)
		return
	}

	metrics.ClassificationsTotal.WithLabelValues(result.Intent).Inc()
	metrics.ClassificationConfidence.Observe(result.Confidence)
	s.respondJSON(w, http.StatusOK, result)
}

// fail maps err to a status code, records it and writes the error response.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status, kind := classifyError(err)
	metrics.ClassificationErrorsTotal.WithLabelValues(kind).Inc()
	if status >= http.StatusInternalServerError {
		s.logger.Error("classification failed", zap.String("kind", kind), zap.Error(err))
	} else {
		s.logger.Debug("classification rejected", zap.String("kind", kind), zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, classifier.ErrInvalidParameter):
		return http.StatusBadRequest, "invalid_parameter"
	case errors.Is(err, vector.ErrDimensionMismatch):
		// The query vector comes from the configured embedder, not the client.
		return http.StatusInternalServerError, "dimension_mismatch"
	case errors.Is(err, vector.ErrZeroVector), errors.Is(err, vector.ErrNonFinite):
		return http.StatusBadRequest, "invalid_query_vector"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, embedding.ErrEmbeddingFailed):
		return http.StatusBadGateway, "embedding"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"classifier": map[string]interface{}{
			"k":         s.k,
			"threshold": s.threshold,
		},
		"embedding_dimensions": s.embedder.Dimensions(),
	}
	snap := s.current.Load()
	if snap == nil {
		resp["status"] = "no_index"
		s.respondJSON(w, http.StatusOK, resp)
		return
	}
	resp["status"] = "ok"
	resp["index"] = map[string]interface{}{
		"id":         snap.id,
		"model":      snap.model,
		"path":       snap.path,
		"entries":    snap.classifier.Size(),
		"dimensions": snap.classifier.Dimensions(),
		"labels":     snap.classifier.Labels(),
		"created_at": snap.createdAt,
		"loaded_at":  snap.loadedAt,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
