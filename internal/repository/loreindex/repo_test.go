package loreindex

import (
	"context"
	"errors"
	"testing"

	"github.com/arcforge/loredex/internal/db"
	"github.com/arcforge/loredex/internal/domain"
)

// --- Mocks ---

type fakeStore struct {
	lastKNN       *db.KNNQuery
	knnResult     *db.SearchResult
	knnErr        error
	lastKey       string
	lastVersion   int64
	lastFields    map[string]string
	setApplied    bool
	setErr        error
	deletedKeys   []string
	createdIndex  *db.IndexDefinition
	createIdxErr  error
	versionByKey  map[string]int64
	upsertsByKey  map[string]int
}

func (f *fakeStore) HSetVersioned(
	_ context.Context, key, _ string, version int64, fields map[string]string,
) (bool, error) {
	f.lastKey = key
	f.lastVersion = version
	f.lastFields = fields
	if f.upsertsByKey == nil {
		f.upsertsByKey = make(map[string]int)
	}
	f.upsertsByKey[key]++
	if f.setErr != nil {
		return false, f.setErr
	}
	if f.versionByKey != nil {
		if cur, ok := f.versionByKey[key]; ok && cur >= version {
			return false, nil
		}
		f.versionByKey[key] = version
	}
	return f.setApplied, f.setErr
}

func (f *fakeStore) Del(_ context.Context, key string) error {
	f.deletedKeys = append(f.deletedKeys, key)
	return nil
}

func (f *fakeStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	f.lastKNN = q
	return f.knnResult, f.knnErr
}

func (f *fakeStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	f.createdIndex = def
	return f.createIdxErr
}

func entry(key string, score float64, title string) db.SearchEntry {
	return db.SearchEntry{
		Key:   key,
		Score: score,
		Fields: map[string]string{
			"title": title,
			"kind":  "character",
		},
	}
}

// --- Tests ---

func TestEnsureIndex(t *testing.T) {
	fs := &fakeStore{}
	r := New(fs, "loredex:", 4).WithHNSW(32, 400)

	if err := r.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.createdIndex == nil {
		t.Fatal("expected index creation")
	}
	if fs.createdIndex.Name != "loredex:idx" {
		t.Errorf("index name = %q", fs.createdIndex.Name)
	}
	var vec *db.IndexField
	for i := range fs.createdIndex.Fields {
		if fs.createdIndex.Fields[i].Type == db.IndexFieldVector {
			vec = &fs.createdIndex.Fields[i]
		}
	}
	if vec == nil {
		t.Fatal("expected a vector field")
	}
	if vec.VectorDim != 4 || vec.VectorAlgo != db.VectorHNSW || vec.VectorDistance != db.DistanceCosine {
		t.Errorf("unexpected vector field: %+v", vec)
	}
}

func TestEnsureIndex_AlreadyExists(t *testing.T) {
	fs := &fakeStore{createIdxErr: db.ErrIndexExists}
	r := New(fs, "loredex:", 4)

	if err := r.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("existing index should not be an error: %v", err)
	}
}

func TestUpsert_WritesVersionedFields(t *testing.T) {
	fs := &fakeStore{setApplied: true}
	r := New(fs, "loredex:", 3)

	rec := domain.IndexRecord{
		EntityID:   "e1",
		UniverseID: "u1",
		Kind:       domain.KindCharacter,
		Title:      "Aldric",
		Summary:    "A knight",
		Content:    "His story",
		Version:    42,
		Vector:     []float32{0.1, 0.2, 0.3},
	}
	if err := r.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fs.lastKey != "loredex:u1:e1" {
		t.Errorf("key = %q, want %q", fs.lastKey, "loredex:u1:e1")
	}
	if fs.lastVersion != 42 {
		t.Errorf("version = %d, want 42", fs.lastVersion)
	}
	if fs.lastFields["universe"] != "u1" || fs.lastFields["kind"] != "character" {
		t.Errorf("scope fields wrong: %v", fs.lastFields)
	}
	if fs.lastFields["title"] != "Aldric" || fs.lastFields["version"] != "42" {
		t.Errorf("metadata fields wrong: %v", fs.lastFields)
	}
	if len(fs.lastFields["vector"]) != 3*4 {
		t.Errorf("vector blob length = %d, want 12", len(fs.lastFields["vector"]))
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	r := New(&fakeStore{}, "loredex:", 4)
	err := r.Upsert(context.Background(), domain.IndexRecord{
		EntityID: "e1", UniverseID: "u1", Vector: []float32{0.1, 0.2},
	})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	fs := &fakeStore{setApplied: true, versionByKey: map[string]int64{}}
	r := New(fs, "loredex:", 2)

	rec := domain.IndexRecord{
		EntityID: "e1", UniverseID: "u1", Kind: domain.KindItem,
		Title: "Sword", Version: 5, Vector: []float32{1, 0},
	}
	if err := r.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	// The second identical write is skipped by the version guard but is not
	// an error for the caller.
	if err := r.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if fs.upsertsByKey["loredex:u1:e1"] != 2 {
		t.Errorf("expected 2 store calls for the same key, got %d", fs.upsertsByKey["loredex:u1:e1"])
	}
	if len(fs.upsertsByKey) != 1 {
		t.Errorf("expected exactly one index entry, got keys %v", fs.upsertsByKey)
	}
}

func TestUpsert_StoreError(t *testing.T) {
	fs := &fakeStore{setErr: errors.New("connection refused")}
	r := New(fs, "loredex:", 1)

	err := r.Upsert(context.Background(), domain.IndexRecord{
		EntityID: "e1", UniverseID: "u1", Vector: []float32{1},
	})
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	fs := &fakeStore{}
	r := New(fs, "loredex:", 1)

	if err := r.Delete(context.Background(), "u1", "e1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fs.deletedKeys) != 1 || fs.deletedKeys[0] != "loredex:u1:e1" {
		t.Errorf("unexpected deletes: %v", fs.deletedKeys)
	}
}

func TestQuery_UniverseScopeAndReturnFields(t *testing.T) {
	fs := &fakeStore{knnResult: &db.SearchResult{}}
	r := New(fs, "loredex:", 2)

	_, err := r.Query(context.Background(), []float32{0.1, 0.2}, "u1", 0.5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.lastKNN.Tags["universe"] != "u1" {
		t.Errorf("universe tag filter missing: %+v", fs.lastKNN.Tags)
	}
	if fs.lastKNN.K != 10 {
		t.Errorf("K = %d, want 10", fs.lastKNN.K)
	}
	wantFields := map[string]bool{"title": true, "kind": true, "summary": true, "content": true}
	for _, f := range fs.lastKNN.ReturnFields {
		delete(wantFields, f)
	}
	if len(wantFields) != 0 {
		t.Errorf("missing return fields: %v", wantFields)
	}
}

func TestQuery_ThresholdFilter(t *testing.T) {
	fs := &fakeStore{knnResult: &db.SearchResult{
		Total: 3,
		Entries: []db.SearchEntry{
			entry("loredex:u1:a", 0.82, "A"),
			entry("loredex:u1:b", 0.44, "B"),
			entry("loredex:u1:c", 0.60, "C"),
		},
	}}
	r := New(fs, "loredex:", 2)

	matches, err := r.Query(context.Background(), []float32{1, 0}, "u1", 0.5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].EntityID != "a" || matches[1].EntityID != "c" {
		t.Errorf("unexpected order: %q, %q", matches[0].EntityID, matches[1].EntityID)
	}
	if matches[0].Meta.Title != "A" {
		t.Errorf("metadata not carried: %+v", matches[0].Meta)
	}
}

func TestQuery_DeterministicTieBreak(t *testing.T) {
	fs := &fakeStore{knnResult: &db.SearchResult{
		Total: 3,
		Entries: []db.SearchEntry{
			entry("loredex:u1:zeta", 0.7, "Z"),
			entry("loredex:u1:alpha", 0.7, "A"),
			entry("loredex:u1:mid", 0.9, "M"),
		},
	}}
	r := New(fs, "loredex:", 2)

	matches, err := r.Query(context.Background(), []float32{1, 0}, "u1", 0.0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := []string{matches[0].EntityID, matches[1].EntityID, matches[2].EntityID}
	want := []string{"mid", "alpha", "zeta"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestQuery_StoreError(t *testing.T) {
	fs := &fakeStore{knnErr: errors.New("connection reset")}
	r := New(fs, "loredex:", 1)

	_, err := r.Query(context.Background(), []float32{1}, "u1", 0.5, 10)
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestQuery_DimensionMismatch(t *testing.T) {
	r := New(&fakeStore{}, "loredex:", 4)
	_, err := r.Query(context.Background(), []float32{1}, "u1", 0.5, 10)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
}
