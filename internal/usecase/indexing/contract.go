package indexing

import (
	"context"

	"github.com/arcforge/loredex/internal/domain"
)

// Embedder turns entity text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index persists versioned entity records in the vector index.
type Index interface {
	Upsert(ctx context.Context, rec domain.IndexRecord) error
	Delete(ctx context.Context, universeID, entityID string) error
}
