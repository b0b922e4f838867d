// Package loredex embeds and indexes narrative lore entities so that
// free-text queries retrieve the most semantically relevant lore within
// a single universe.
package loredex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbredis "github.com/arcforge/loredex/internal/db/redis"
	"github.com/arcforge/loredex/internal/domain"
	"github.com/arcforge/loredex/internal/repository/loreindex"
	openaiemb "github.com/arcforge/loredex/internal/transport/openai"
	indexinguc "github.com/arcforge/loredex/internal/usecase/indexing"
	searchuc "github.com/arcforge/loredex/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultDimensions       = 1536
	defaultKeyPrefix        = "loredex:"
)

// Kind classifies a lore entity.
type Kind string

const (
	KindCharacter Kind = "character"
	KindLocation  Kind = "location"
	KindEvent     Kind = "event"
	KindItem      Kind = "item"
)

// Entity is a unit of lore owned by exactly one universe. Version must
// increase with every revision; the index keeps the highest version it
// has seen.
type Entity struct {
	ID         string
	UniverseID string
	Kind       Kind
	Title      string
	Summary    string
	Content    string
	Version    int64
}

// SearchResult is one ranked hit.
type SearchResult struct {
	EntityID   string
	Title      string
	Kind       Kind
	Summary    string
	Content    string
	Similarity float64
}

// SearchOptions overrides the client's default threshold and limit for
// one query.
type SearchOptions struct {
	Threshold float64
	Limit     int
}

// SearchResponse carries results plus a degradation marker: Degraded
// means the embedding provider failed and the empty result set says
// nothing about the corpus.
type SearchResponse struct {
	Results  []SearchResult
	Degraded bool
	Reason   string
}

// EmbeddingResult carries an embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder is a pluggable text vectorization provider.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// Client is the loredex entry point.
type Client struct {
	store     *dbredis.Store
	repo      *loreindex.Repo
	searchSvc *searchuc.Service
	pipeline  *indexinguc.Pipeline
	logger    *zap.Logger
}

// New creates a Client, connects to Redis, and ensures the vector index
// exists. Background indexing workers start immediately.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		dimensions: defaultDimensions,
		keyPrefix:  defaultKeyPrefix,
	}
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("loredex: redis address required (use WithRedis)")
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("loredex: create store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("loredex: store not ready: %w", err)
	}

	repo := loreindex.New(store, cfg.keyPrefix, cfg.dimensions)
	if cfg.hnswM > 0 || cfg.hnswEFConstruct > 0 {
		repo = repo.WithHNSW(cfg.hnswM, cfg.hnswEFConstruct)
	}
	if err := repo.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("loredex: ensure index: %w", err)
	}

	domEmb := buildEmbedder(cfg)

	searchSvc := searchuc.New(repo, domEmb, logger).
		WithDefaults(cfg.threshold, cfg.limit, cfg.maxLimit)

	pipeline := indexinguc.New(domEmb, repo, logger)
	if cfg.queueSize > 0 || cfg.workers > 0 {
		pipeline = pipeline.WithQueueSize(cfg.queueSize).WithWorkers(cfg.workers)
	}
	if cfg.maxAttempts > 0 {
		pipeline = pipeline.WithRetry(cfg.maxAttempts, 0, 0)
	}
	if cfg.jobTimeout > 0 {
		pipeline = pipeline.WithJobTimeout(cfg.jobTimeout)
	}
	pipeline.Start(ctx)

	return &Client{
		store:     store,
		repo:      repo,
		searchSvc: searchSvc,
		pipeline:  pipeline,
		logger:    logger,
	}, nil
}

func buildEmbedder(cfg *clientConfig) domain.Embedder {
	if cfg.embedder != nil {
		return &embedderAdapter{inner: cfg.embedder}
	}
	if cfg.openAIKey != "" || cfg.openAIBaseURL != "" {
		return openaiemb.NewEmbedder(&openaiemb.Config{
			APIKey:        cfg.openAIKey,
			BaseURL:       cfg.openAIBaseURL,
			Model:         cfg.model,
			Dimensions:    cfg.dimensions,
			MaxInputChars: cfg.maxInputChars,
		})
	}
	return noopEmbedder{}
}

// Close stops the indexing workers and releases the store connection.
func (c *Client) Close() {
	c.pipeline.Close()
	c.store.Close()
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search retrieves the lore most relevant to query within a universe.
func (c *Client) Search(
	ctx context.Context, universeID, query string, opts *SearchOptions,
) (SearchResponse, error) {
	var ucOpts *searchuc.Options
	if opts != nil {
		ucOpts = &searchuc.Options{Threshold: opts.Threshold, Limit: opts.Limit}
	}

	resp, err := c.searchSvc.Search(ctx, universeID, query, ucOpts)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search: %w", err)
	}

	results := make([]SearchResult, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = SearchResult{
			EntityID:   r.EntityID,
			Title:      r.Title,
			Kind:       Kind(r.Kind),
			Summary:    r.Summary,
			Content:    r.Content,
			Similarity: r.Similarity,
		}
	}
	return SearchResponse{
		Results:  results,
		Degraded: resp.Status == searchuc.StatusDegraded,
		Reason:   resp.Reason,
	}, nil
}

// IndexEntity enqueues an entity for asynchronous indexing. Returns
// once the job is queued, not once it is visible in search.
func (c *Client) IndexEntity(e Entity) error {
	err := c.pipeline.OnEntityUpserted(domain.Entity{
		ID:         e.ID,
		UniverseID: e.UniverseID,
		Kind:       domain.Kind(e.Kind),
		Title:      e.Title,
		Summary:    e.Summary,
		Content:    e.Content,
		Version:    e.Version,
	})
	if err != nil {
		return fmt.Errorf("index entity: %w", err)
	}
	return nil
}

// DeleteEntity enqueues removal of an entity from the index.
func (c *Client) DeleteEntity(universeID, entityID string) error {
	if err := c.pipeline.OnEntityDeleted(universeID, entityID, 0); err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	return nil
}

// embedderAdapter wraps the public Embedder to satisfy domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// noopEmbedder fails on use, so a client without an embedder can still
// delete entities but not index or search.
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errors.New(
		"loredex: embedder not configured (use WithOpenAI or WithEmbedder)",
	)
}
