package search

import (
	"context"

	"github.com/arcforge/loredex/internal/domain"
)

// Index is the lore index contract for the read path. Implementations
// return matches scoped to universeID, filtered by threshold, capped at
// limit and ordered by similarity descending.
type Index interface {
	Query(
		ctx context.Context, vector []float32, universeID string, threshold float64, limit int,
	) ([]domain.Match, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
