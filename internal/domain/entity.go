// Package domain holds the core types and sentinel errors shared by
// every layer of the service.
package domain

import (
	"fmt"
	"strings"
)

// Kind classifies a lore entity.
type Kind string

const (
	KindCharacter Kind = "character"
	KindLocation  Kind = "location"
	KindEvent     Kind = "event"
	KindItem      Kind = "item"
)

// Valid reports whether k is a known entity kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCharacter, KindLocation, KindEvent, KindItem:
		return true
	}
	return false
}

// Entity is a unit of lore owned by exactly one universe. Version is a
// collaborator-supplied monotonic revision counter used for last-write-wins
// conflict resolution in the index.
type Entity struct {
	ID         string
	UniverseID string
	Kind       Kind
	Title      string
	Summary    string
	Content    string
	Version    int64
}

// Validate checks the invariants required before an entity may enter
// the indexing pipeline.
func (e Entity) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("entity id is required: %w", ErrInvalidInput)
	}
	if e.UniverseID == "" {
		return fmt.Errorf("universe id is required: %w", ErrInvalidInput)
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown entity kind %q: %w", e.Kind, ErrInvalidInput)
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("entity title is required: %w", ErrInvalidInput)
	}
	if e.Version < 0 {
		return fmt.Errorf("entity version must be non-negative: %w", ErrInvalidInput)
	}
	return nil
}

// EmbeddableText derives the text sent to the embedding provider. The
// derivation is deterministic: identical entities always produce
// identical text, so re-indexing an unchanged entity yields the same
// vector.
func (e Entity) EmbeddableText() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.Title, e.Summary, e.Content} {
		if t := strings.TrimSpace(p); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}
