package loreindex

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/arcforge/loredex/internal/db"
	"github.com/arcforge/loredex/internal/domain"
)

// Stored hash field names.
const (
	fieldUniverse = "universe"
	fieldKind     = "kind"
	fieldTitle    = "title"
	fieldSummary  = "summary"
	fieldContent  = "content"
	fieldVersion  = "version"
	fieldVector   = "vector"
)

// store is the consumer interface for lore index operations (ISP).
type store interface {
	HSetVersioned(ctx context.Context, key, versionField string, version int64, fields map[string]string) (bool, error)
	Del(ctx context.Context, key string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// Repo is the lore index: one FT index over per-entity hashes carrying the
// embedding vector and the metadata needed to hydrate search results.
type Repo struct {
	store       store
	prefix      string
	dim         int
	hnswM       int
	hnswEFConst int
}

// New creates a lore index repository. dim is the embedding dimensionality,
// fixed for the lifetime of the index.
func New(s store, keyPrefix string, dim int) *Repo {
	return &Repo{store: s, prefix: keyPrefix, dim: dim}
}

// WithHNSW overrides HNSW construction parameters.
func (r *Repo) WithHNSW(m, efConstruct int) *Repo {
	r.hnswM = m
	r.hnswEFConst = efConstruct
	return r
}

// IndexName returns the FT index name.
func (r *Repo) IndexName() string {
	return r.prefix + "idx"
}

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def := &db.IndexDefinition{
		Name:     r.IndexName(),
		Prefixes: []string{r.prefix},
		Fields: []db.IndexField{
			{Name: fieldUniverse, Type: db.IndexFieldTag},
			{Name: fieldKind, Type: db.IndexFieldTag},
			{Name: fieldVersion, Type: db.IndexFieldNumeric},
			{
				Name:              fieldVector,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDistance:    db.DistanceCosine,
				VectorDim:         r.dim,
				VectorM:           r.hnswM,
				VectorEFConstruct: r.hnswEFConst,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create lore index: %w: %w", err, domain.ErrIndexUnavailable)
	}
	return nil
}

// Upsert writes the record's vector and metadata, guarded by its version.
// Idempotent: re-writing the same record leaves the index unchanged, and a
// record older than the one stored is silently skipped (last write wins).
func (r *Repo) Upsert(ctx context.Context, rec domain.IndexRecord) error {
	if len(rec.Vector) != r.dim {
		return fmt.Errorf(
			"got %d components, index expects %d: %w",
			len(rec.Vector), r.dim, domain.ErrVectorDimMismatch,
		)
	}

	fields := map[string]string{
		fieldUniverse: rec.UniverseID,
		fieldKind:     string(rec.Kind),
		fieldTitle:    rec.Title,
		fieldSummary:  rec.Summary,
		fieldContent:  rec.Content,
		fieldVersion:  strconv.FormatInt(rec.Version, 10),
		fieldVector:   vectorToBytes(rec.Vector),
	}

	if _, err := r.store.HSetVersioned(
		ctx, r.key(rec.UniverseID, rec.EntityID), fieldVersion, rec.Version, fields,
	); err != nil {
		return fmt.Errorf("upsert embedding %s: %w: %w", rec.EntityID, err, domain.ErrIndexUnavailable)
	}
	return nil
}

// Delete removes an entity's embedding from the index.
func (r *Repo) Delete(ctx context.Context, universeID, entityID string) error {
	if err := r.store.Del(ctx, r.key(universeID, entityID)); err != nil {
		return fmt.Errorf("delete embedding %s: %w: %w", entityID, err, domain.ErrIndexUnavailable)
	}
	return nil
}

// Query runs a KNN search scoped to universeID and returns matches with
// similarity >= threshold, at most limit, ordered by similarity descending
// with ties broken by entity id ascending so identical queries reproduce
// identical rankings.
func (r *Repo) Query(
	ctx context.Context, vector []float32, universeID string, threshold float64, limit int,
) ([]domain.Match, error) {
	if len(vector) != r.dim {
		return nil, fmt.Errorf(
			"got %d components, index expects %d: %w",
			len(vector), r.dim, domain.ErrVectorDimMismatch,
		)
	}

	q := &db.KNNQuery{
		IndexName:    r.IndexName(),
		Vector:       vector,
		K:            limit,
		Tags:         map[string]string{fieldUniverse: universeID},
		ReturnFields: []string{fieldTitle, fieldKind, fieldSummary, fieldContent},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("knn search universe %s: %w: %w", universeID, err, domain.ErrIndexUnavailable)
	}

	return r.parseMatches(sr, universeID, threshold), nil
}

func (r *Repo) parseMatches(sr *db.SearchResult, universeID string, threshold float64) []domain.Match {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	keyPrefix := r.prefix + universeID + ":"
	matches := make([]domain.Match, 0, len(sr.Entries))

	for _, entry := range sr.Entries {
		if entry.Score < threshold {
			continue
		}
		matches = append(matches, domain.Match{
			EntityID:   strings.TrimPrefix(entry.Key, keyPrefix),
			Similarity: entry.Score,
			Meta: domain.EntityMeta{
				Title:   entry.Fields[fieldTitle],
				Kind:    domain.Kind(entry.Fields[fieldKind]),
				Summary: entry.Fields[fieldSummary],
				Content: entry.Fields[fieldContent],
			},
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].EntityID < matches[j].EntityID
	})

	return matches
}

func (r *Repo) key(universeID, entityID string) string {
	return r.prefix + universeID + ":" + entityID
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
