package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// IndexRecord is the write-side projection of an entity: its metadata plus
// the vector derived from its embeddable text.
type IndexRecord struct {
	EntityID   string
	UniverseID string
	Kind       Kind
	Title      string
	Summary    string
	Content    string
	Version    int64
	Vector     []float32
}

// RecordFromEntity builds an IndexRecord for e with the given vector.
func RecordFromEntity(e Entity, vector []float32) IndexRecord {
	return IndexRecord{
		EntityID:   e.ID,
		UniverseID: e.UniverseID,
		Kind:       e.Kind,
		Title:      e.Title,
		Summary:    e.Summary,
		Content:    e.Content,
		Version:    e.Version,
		Vector:     vector,
	}
}
