package domain

// Match is a single ranked hit from the lore index: the entity id, its
// similarity to the query vector, and the metadata stored alongside the
// vector at index time.
type Match struct {
	EntityID   string
	Similarity float64
	Meta       EntityMeta
}

// EntityMeta is the metadata the index returns inline with each match.
// A zero Meta (empty Title) means the backing hash vanished between ranking
// and field retrieval, i.e. the entity was deleted concurrently.
type EntityMeta struct {
	Title   string
	Kind    Kind
	Summary string
	Content string
}

// SearchResult is a hydrated match as returned to callers. Within one
// response results are ordered by Similarity descending and every
// Similarity is at or above the threshold supplied to the query.
type SearchResult struct {
	EntityID   string
	Title      string
	Kind       Kind
	Summary    string
	Content    string
	Similarity float64
}
