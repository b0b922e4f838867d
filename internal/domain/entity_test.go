package domain

import (
	"errors"
	"testing"
)

func validEntity() Entity {
	return Entity{
		ID:         "e1",
		UniverseID: "u1",
		Kind:       KindCharacter,
		Title:      "Aldric the Wanderer",
		Summary:    "A disgraced knight",
		Content:    "Long ago, in the kingdom of Vael...",
		Version:    1,
	}
}

func TestEntity_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Entity)
		wantOK bool
	}{
		{"valid", func(_ *Entity) {}, true},
		{"missing id", func(e *Entity) { e.ID = "" }, false},
		{"missing universe", func(e *Entity) { e.UniverseID = "" }, false},
		{"blank title", func(e *Entity) { e.Title = "   " }, false},
		{"unknown kind", func(e *Entity) { e.Kind = "spaceship" }, false},
		{"negative version", func(e *Entity) { e.Version = -1 }, false},
		{"zero version", func(e *Entity) { e.Version = 0 }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := validEntity()
			tc.mutate(&e)
			err := e.Validate()
			if tc.wantOK && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.wantOK {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("error should wrap ErrInvalidInput, got %v", err)
				}
			}
		})
	}
}

func TestEntity_EmbeddableText(t *testing.T) {
	tests := []struct {
		name   string
		entity Entity
		want   string
	}{
		{
			"all parts",
			Entity{Title: "Aldric", Summary: "A knight", Content: "His story."},
			"Aldric\n\nA knight\n\nHis story.",
		},
		{
			"no summary",
			Entity{Title: "Aldric", Content: "His story."},
			"Aldric\n\nHis story.",
		},
		{
			"title only",
			Entity{Title: "Aldric"},
			"Aldric",
		},
		{
			"whitespace parts elided and trimmed",
			Entity{Title: "  Aldric  ", Summary: "   ", Content: "story"},
			"Aldric\n\nstory",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.entity.EmbeddableText(); got != tc.want {
				t.Errorf("EmbeddableText() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEntity_EmbeddableText_Deterministic(t *testing.T) {
	a := validEntity()
	b := validEntity()
	if a.EmbeddableText() != b.EmbeddableText() {
		t.Error("identical entities must produce identical embeddable text")
	}
}

func TestKind_Valid(t *testing.T) {
	for _, k := range []Kind{KindCharacter, KindLocation, KindEvent, KindItem} {
		if !k.Valid() {
			t.Errorf("kind %q should be valid", k)
		}
	}
	if Kind("dragon").Valid() {
		t.Error("unknown kind should be invalid")
	}
}

func TestProviderError(t *testing.T) {
	base := errors.New("boom")
	err := NewProviderError(true, base)

	pe, ok := AsProviderError(err)
	if !ok {
		t.Fatal("expected provider error")
	}
	if !pe.Retryable {
		t.Error("expected retryable")
	}
	if !errors.Is(err, base) {
		t.Error("should unwrap to base error")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable should be true")
	}
	if IsRetryable(NewProviderError(false, base)) {
		t.Error("non-retryable provider error should not be retryable")
	}
	if !IsRetryable(ErrIndexUnavailable) {
		t.Error("index unavailability is transient")
	}
	if IsRetryable(ErrInvalidInput) {
		t.Error("invalid input is not transient")
	}
}
