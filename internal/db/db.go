package db

import (
	"context"
	"time"
)

// Store is the vector store facade combining all sub-interfaces.
// Consumers depend on the narrow sub-interfaces (ISP).
type Store interface {
	Pinger
	HashStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore provides hash operations, including the version-guarded write
// the indexing pipeline relies on for last-write-wins.
type HashStore interface {
	// HSetVersioned atomically replaces the hash at key with fields, but
	// only if the numeric field versionField currently stored is smaller
	// than version. Returns true if the write was applied, false if a newer
	// (or equal) version already holds the key.
	HSetVersioned(ctx context.Context, key, versionField string, version int64, fields map[string]string) (bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides KNN search over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}

// KNNQuery describes a vector similarity search. Tags are applied as a
// pre-filter inside the KNN clause so the K budget is spent entirely on
// in-scope entries.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	Tags         map[string]string
	ReturnFields []string
}

// SearchResult holds raw search output.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single raw hit: the hash key, the similarity score
// (cosine distance already converted and clamped to [0,1]) and the
// returned fields.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
