package loredex

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNew_RequiresAddress(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("expected error without WithRedis")
	}
	if !strings.Contains(err.Error(), "redis address required") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOptions_Applied(t *testing.T) {
	cfg := &clientConfig{dimensions: defaultDimensions, keyPrefix: defaultKeyPrefix}
	opts := []Option{
		WithRedis("localhost:6379", "pw"),
		WithKeyPrefix("saga:"),
		WithVectorDimensions(768),
		WithHNSW(16, 200),
		WithOpenAI("sk-test", "http://localhost:8081/v1", "text-embedding-3-small"),
		WithMaxInputChars(4000),
		WithSearchDefaults(0.6, 5, 50),
		WithIndexingQueue(256, 2, 3),
		WithJobTimeout(5 * time.Second),
	}
	for _, o := range opts {
		o(cfg)
	}

	if cfg.addrs[0] != "localhost:6379" || cfg.password != "pw" {
		t.Errorf("redis config: %+v", cfg)
	}
	if cfg.keyPrefix != "saga:" || cfg.dimensions != 768 {
		t.Errorf("index config: %+v", cfg)
	}
	if cfg.hnswM != 16 || cfg.hnswEFConstruct != 200 {
		t.Errorf("hnsw config: %+v", cfg)
	}
	if cfg.model != "text-embedding-3-small" || cfg.maxInputChars != 4000 {
		t.Errorf("embedding config: %+v", cfg)
	}
	if cfg.threshold != 0.6 || cfg.limit != 5 || cfg.maxLimit != 50 {
		t.Errorf("search defaults: %+v", cfg)
	}
	if cfg.queueSize != 256 || cfg.workers != 2 || cfg.maxAttempts != 3 {
		t.Errorf("queue config: %+v", cfg)
	}
	if cfg.jobTimeout != 5*time.Second {
		t.Errorf("job timeout: %v", cfg.jobTimeout)
	}
}

type staticEmbedder struct {
	vec []float32
	err error
}

func (s *staticEmbedder) Embed(_ context.Context, _ string) (EmbeddingResult, error) {
	if s.err != nil {
		return EmbeddingResult{}, s.err
	}
	return EmbeddingResult{Embedding: s.vec, TotalTokens: 5}, nil
}

func TestEmbedderAdapter(t *testing.T) {
	a := &embedderAdapter{inner: &staticEmbedder{vec: []float32{1, 2}}}
	r, err := a.Embed(context.Background(), "text")
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Embedding) != 2 || r.TotalTokens != 5 {
		t.Errorf("adapter lost fields: %+v", r)
	}

	boom := errors.New("boom")
	a = &embedderAdapter{inner: &staticEmbedder{err: boom}}
	if _, err := a.Embed(context.Background(), "text"); !errors.Is(err, boom) {
		t.Errorf("adapter should wrap the inner error, got %v", err)
	}
}

func TestBuildEmbedder(t *testing.T) {
	custom := &staticEmbedder{vec: []float32{1}}
	emb := buildEmbedder(&clientConfig{embedder: custom})
	if _, ok := emb.(*embedderAdapter); !ok {
		t.Errorf("custom embedder should win, got %T", emb)
	}

	emb = buildEmbedder(&clientConfig{openAIKey: "sk-test", model: "m", dimensions: 2})
	if _, ok := emb.(noopEmbedder); ok {
		t.Error("openai config should build a real embedder")
	}

	emb = buildEmbedder(&clientConfig{})
	if _, err := emb.Embed(context.Background(), "x"); err == nil {
		t.Error("noop embedder must refuse to embed")
	}
}
