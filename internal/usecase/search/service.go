package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arcforge/loredex/internal/domain"
	"github.com/arcforge/loredex/internal/metrics"
)

// Defaults applied when the caller passes nil options.
const (
	DefaultThreshold = 0.5
	DefaultLimit     = 10
	DefaultMaxLimit  = 100
)

// Status tags the search outcome so callers can tell "nothing relevant"
// from "search is running without its provider".
type Status string

const (
	// StatusOK means the full pipeline ran.
	StatusOK Status = "ok"
	// StatusDegraded means the embedding provider failed and the read path
	// degraded to empty results. The failure is logged, never raised.
	StatusDegraded Status = "degraded"
)

// Response is the tagged search outcome. A store failure is the third arm,
// returned as an error wrapping domain.ErrIndexUnavailable.
type Response struct {
	Results []domain.SearchResult
	Status  Status
	Reason  string
}

// Options configures one search call. Nil means service defaults.
type Options struct {
	// Threshold is the minimum similarity, in [0,1].
	Threshold float64
	// Limit caps the number of results; 0 means the service default.
	Limit int
}

// Service is the semantic search entry point: it embeds the query,
// consults the lore index and hydrates matches into results.
type Service struct {
	index     Index
	embed     Embedder
	logger    *zap.Logger
	threshold float64
	limit     int
	maxLimit  int
}

// New creates a search service.
func New(index Index, embed Embedder, logger *zap.Logger) *Service {
	return &Service{
		index:     index,
		embed:     embed,
		logger:    logger,
		threshold: DefaultThreshold,
		limit:     DefaultLimit,
		maxLimit:  DefaultMaxLimit,
	}
}

// WithDefaults overrides the default threshold and limits.
func (s *Service) WithDefaults(threshold float64, limit, maxLimit int) *Service {
	if threshold > 0 {
		s.threshold = threshold
	}
	if limit > 0 {
		s.limit = limit
	}
	if maxLimit > 0 {
		s.maxLimit = maxLimit
	}
	return s
}

// Search runs a semantic lookup over one universe's lore.
//
// An empty or whitespace-only query returns an empty OK response without
// touching the provider or the index. Provider failures degrade to an empty
// response with StatusDegraded. Index failures propagate as errors wrapping
// domain.ErrIndexUnavailable: an empty answer there would be
// indistinguishable from "no relevant lore", which is a different outcome
// for a caller feeding retrieval into generation.
func (s *Service) Search(
	ctx context.Context, universeID, query string, opts *Options,
) (Response, error) {
	start := time.Now()

	if universeID == "" {
		return Response{}, fmt.Errorf("universe id is required: %w", domain.ErrInvalidInput)
	}

	threshold, limit, err := s.resolveOptions(opts)
	if err != nil {
		return Response{}, err
	}

	if strings.TrimSpace(query) == "" {
		metrics.SearchRequestsTotal.WithLabelValues("empty_query").Inc()
		return Response{Status: StatusOK}, nil
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		// Degrade: search is best-effort for the caller, but the failure
		// must stay visible to operators. The query is truncated so logs
		// never hold full user text.
		s.logger.Warn("semantic search degraded: embedding failed",
			zap.String("universe_id", universeID),
			zap.String("query_prefix", truncate(query, 64)),
			zap.Error(err),
		)
		metrics.SearchRequestsTotal.WithLabelValues("degraded").Inc()
		metrics.SearchDuration.Observe(time.Since(start).Seconds())
		return Response{Status: StatusDegraded, Reason: degradeReason(err)}, nil
	}

	matches, err := s.index.Query(ctx, embResult.Embedding, universeID, threshold, limit)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("failed").Inc()
		metrics.SearchDuration.Observe(time.Since(start).Seconds())
		return Response{}, fmt.Errorf("query lore index: %w", err)
	}

	// Hydration: matches arrive ordered by the index; entities deleted
	// between ranking and field retrieval come back without metadata and
	// are skipped, not errored.
	results := make([]domain.SearchResult, 0, len(matches))
	for _, m := range matches {
		if m.Meta.Title == "" {
			continue
		}
		results = append(results, domain.SearchResult{
			EntityID:   m.EntityID,
			Title:      m.Meta.Title,
			Kind:       m.Meta.Kind,
			Summary:    m.Meta.Summary,
			Content:    m.Meta.Content,
			Similarity: m.Similarity,
		})
	}

	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.SearchResultsReturned.Observe(float64(len(results)))

	return Response{Results: results, Status: StatusOK}, nil
}

func (s *Service) resolveOptions(opts *Options) (threshold float64, limit int, err error) {
	if opts == nil {
		return s.threshold, s.limit, nil
	}

	threshold = opts.Threshold
	if threshold < 0 || threshold > 1 {
		return 0, 0, fmt.Errorf("threshold %g outside [0,1]: %w", threshold, domain.ErrInvalidInput)
	}

	limit = opts.Limit
	if limit < 0 {
		return 0, 0, fmt.Errorf("limit must be non-negative: %w", domain.ErrInvalidInput)
	}
	if limit == 0 {
		limit = s.limit
	}
	if limit > s.maxLimit {
		return 0, 0, fmt.Errorf("limit %d exceeds maximum %d: %w", limit, s.maxLimit, domain.ErrInvalidInput)
	}

	return threshold, limit, nil
}

// degradeReason keeps the outward reason generic; details live in the log.
func degradeReason(err error) string {
	if pe, ok := domain.AsProviderError(err); ok {
		if pe.Retryable {
			return "embedding provider temporarily unavailable"
		}
		return "embedding provider rejected the query"
	}
	return "query could not be embedded"
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
