// Package chi exposes the HTTP API: universe-scoped search plus the
// entity change endpoints that feed the indexing pipeline.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arcforge/loredex/internal/domain"
	"github.com/arcforge/loredex/internal/logger"
	healthuc "github.com/arcforge/loredex/internal/usecase/health"
	indexinguc "github.com/arcforge/loredex/internal/usecase/indexing"
	searchuc "github.com/arcforge/loredex/internal/usecase/search"
)

// ErrorCode identifies an API error category.
type ErrorCode string

const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeNotFound          ErrorCode = "not_found"
	CodeQueueFull         ErrorCode = "queue_full"
	CodeIndexUnavailable  ErrorCode = "index_unavailable"
	CodeVectorDimMismatch ErrorCode = "vector_dim_mismatch"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the body of POST /v1/universes/{universeID}/search.
type SearchRequest struct {
	Query     string   `json:"query"`
	Threshold *float64 `json:"threshold,omitempty"`
	Limit     *int     `json:"limit,omitempty"`
}

// SearchResultItem is one ranked entity in a search response.
type SearchResultItem struct {
	EntityID   string  `json:"entity_id"`
	Title      string  `json:"title"`
	Kind       string  `json:"kind"`
	Summary    string  `json:"summary,omitempty"`
	Content    string  `json:"content,omitempty"`
	Similarity float64 `json:"similarity"`
}

// SearchResponse carries results plus the degradation marker, so
// clients can tell "nothing matched" from "the provider was down".
type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
	Status  string             `json:"status"`
	Reason  string             `json:"reason,omitempty"`
}

// UpsertEntityRequest is the body of PUT /v1/universes/{u}/entities/{e}.
type UpsertEntityRequest struct {
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	Content string `json:"content,omitempty"`
	Version int64  `json:"version"`
}

// AcceptedResponse acknowledges an enqueued indexing job.
type AcceptedResponse struct {
	Status string `json:"status"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	search        *searchuc.Service
	pipeline      *indexinguc.Pipeline
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	pipeline *indexinguc.Pipeline,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:   search,
		pipeline: pipeline,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, CodeVectorDimMismatch),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrEntityNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrQueueFull, http.StatusTooManyRequests, CodeQueueFull),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, CodeIndexUnavailable),
	}
	return s
}

// Routes mounts all handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/universes/{universeID}/search", s.SearchLore)
	r.Put("/v1/universes/{universeID}/entities/{entityID}", s.UpsertEntity)
	r.Delete("/v1/universes/{universeID}/entities/{entityID}", s.DeleteEntity)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// SearchLore handles POST /v1/universes/{universeID}/search.
func (s *Server) SearchLore(w http.ResponseWriter, r *http.Request) {
	universeID := chi.URLParam(r, "universeID")

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var opts *searchuc.Options
	if req.Threshold != nil || req.Limit != nil {
		opts = &searchuc.Options{Threshold: searchuc.DefaultThreshold}
		if req.Threshold != nil {
			opts.Threshold = *req.Threshold
		}
		if req.Limit != nil {
			opts.Limit = *req.Limit
		}
	}

	resp, err := s.search.Search(r.Context(), universeID, req.Query, opts)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]SearchResultItem, len(resp.Results))
	for i, res := range resp.Results {
		items[i] = SearchResultItem{
			EntityID:   res.EntityID,
			Title:      res.Title,
			Kind:       string(res.Kind),
			Summary:    res.Summary,
			Content:    res.Content,
			Similarity: res.Similarity,
		}
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Results: items,
		Status:  string(resp.Status),
		Reason:  resp.Reason,
	})
}

// UpsertEntity handles PUT /v1/universes/{universeID}/entities/{entityID}.
// Indexing is asynchronous; acceptance only means the job is queued.
func (s *Server) UpsertEntity(w http.ResponseWriter, r *http.Request) {
	universeID := chi.URLParam(r, "universeID")
	entityID := chi.URLParam(r, "entityID")

	var req UpsertEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	entity := domain.Entity{
		ID:         entityID,
		UniverseID: universeID,
		Kind:       domain.Kind(req.Kind),
		Title:      req.Title,
		Summary:    req.Summary,
		Content:    req.Content,
		Version:    req.Version,
	}

	if err := s.pipeline.OnEntityUpserted(entity); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, AcceptedResponse{Status: "accepted"})
}

// DeleteEntity handles DELETE /v1/universes/{universeID}/entities/{entityID}.
func (s *Server) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	universeID := chi.URLParam(r, "universeID")
	entityID := chi.URLParam(r, "entityID")

	if err := s.pipeline.OnEntityDeleted(universeID, entityID, 0); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, AcceptedResponse{Status: "accepted"})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrEntityNotFound,
		domain.ErrVectorDimMismatch,
		domain.ErrIndexUnavailable,
		domain.ErrQueueFull,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
