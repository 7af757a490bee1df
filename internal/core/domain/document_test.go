package domain

import (
	"encoding/json"
	"testing"
)

func TestNewChunkEnforcesLineRange(t *testing.T) {
	doc := &Document{ID: "d1", Name: "book", LineCount: 10}

	c, err := NewChunk(doc, 0, "text", 2, 5, []float32{1}, "m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.DocumentName != "book" || c.EmbeddingDim != 1 {
		t.Fatalf("unexpected chunk %+v", c)
	}

	bad := []struct{ start, end int }{{0, 1}, {5, 4}, {3, 11}}
	for _, b := range bad {
		if _, err := NewChunk(doc, 0, "text", b.start, b.end, []float32{1}, "m"); !IsKind(err, ErrInvalidInput) {
			t.Fatalf("range %d-%d: expected invalid input, got %v", b.start, b.end, err)
		}
	}
	if _, err := NewChunk(doc, 0, "text", 1, 1, nil, "m"); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty embedding, got %v", err)
	}
}

func TestScoredChunkCarriesOnlyChunkAndScore(t *testing.T) {
	raw, err := json.Marshal(ScoredChunk{Chunk: Chunk{ID: "c1"}, Score: 0.5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(fields) != 2 || fields["chunk"] == nil || fields["score"] == nil {
		t.Fatalf("unexpected fields %s", raw)
	}
}
