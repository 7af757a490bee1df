package retrieval

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

func TestExcerptWordCap(t *testing.T) {
	text := strings.Repeat("word ", 30)
	got := Excerpt(text, ExcerptLimits{})
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis, got %q", got)
	}
	if n := len(strings.Fields(strings.TrimSuffix(got, "..."))); n != DefaultExcerptWords {
		t.Fatalf("expected %d words, got %d", DefaultExcerptWords, n)
	}
	if got := Excerpt("short  text", ExcerptLimits{MaxWords: 5}); got != "short text" {
		t.Fatalf("short text must not be cut, got %q", got)
	}
}

func TestExcerptCharCapBreaksOnWordBoundary(t *testing.T) {
	got := Excerpt("alpha beta gamma delta", ExcerptLimits{MaxChars: 13})
	if got != "alpha beta..." {
		t.Fatalf("unexpected excerpt %q", got)
	}
	got = Excerpt("alpha beta gamma", ExcerptLimits{MaxChars: 10})
	if got != "alpha beta..." {
		t.Fatalf("unexpected excerpt at exact boundary %q", got)
	}
	got = Excerpt("supercalifragilistic", ExcerptLimits{MaxChars: 5})
	if got != "super..." {
		t.Fatalf("unexpected excerpt for a single long word %q", got)
	}
}

func TestBuildContextPreservesRankOrder(t *testing.T) {
	matches := []domain.ScoredChunk{
		{Chunk: domain.Chunk{ID: "c2", DocumentName: "book-b", Content: "second best", StartLine: 3, EndLine: 9}, Score: 0.91234},
		{Chunk: domain.Chunk{ID: "c1", DocumentName: "book-a", Content: "{template} text", StartLine: 1, EndLine: 2}, Score: 0.7},
	}
	got := BuildContext(matches, ContextOptions{})
	if len(got.References) != 2 {
		t.Fatalf("expected 2 references, got %d", len(got.References))
	}
	if got.References[0].ChunkID != "c2" || got.References[0].Index != 1 {
		t.Fatalf("rank order not preserved: %+v", got.References[0])
	}
	if got.References[0].Similarity != 91.23 {
		t.Fatalf("expected similarity 91.23, got %v", got.References[0].Similarity)
	}
	if got.References[1].StartLine != 1 || got.References[1].EndLine != 2 || got.References[1].DocumentName != "book-a" {
		t.Fatalf("unexpected provenance: %+v", got.References[1])
	}
	if strings.Index(got.Context, "book-b") > strings.Index(got.Context, "book-a") {
		t.Fatalf("context is not in rank order: %q", got.Context)
	}
}

func TestBuildContextEmptyUsesMarker(t *testing.T) {
	got := BuildContext(nil, ContextOptions{})
	if got.Context != NoReferencesMarker {
		t.Fatalf("expected marker, got %q", got.Context)
	}
	if got.References == nil || len(got.References) != 0 {
		t.Fatalf("expected empty references")
	}
}

func TestBuildContextCharBudgetKeepsFirstSource(t *testing.T) {
	matches := []domain.ScoredChunk{
		{Chunk: domain.Chunk{DocumentName: "a", Content: strings.Repeat("x ", 50)}, Score: 0.9},
		{Chunk: domain.Chunk{DocumentName: "b", Content: "y"}, Score: 0.8},
	}
	got := BuildContext(matches, ContextOptions{MaxChars: 10})
	if len(got.References) != 1 || got.References[0].DocumentName != "a" {
		t.Fatalf("expected only the first source, got %+v", got.References)
	}
}

func TestBuildContextCharBudgetCountsRunes(t *testing.T) {
	matches := []domain.ScoredChunk{
		{Chunk: domain.Chunk{DocumentName: "الأول", Content: "العلم نور والجهل ظلام"}, Score: 0.9},
		{Chunk: domain.Chunk{DocumentName: "الثاني", Content: "طلب العلم فريضة على كل مسلم"}, Score: 0.8},
	}
	full := BuildContext(matches, ContextOptions{})
	// Blocks are joined by one newline that does not count against the budget.
	budget := utf8.RuneCountInString(full.Context) - 1
	if budget >= len(full.Context)-1 {
		t.Fatalf("fixture must contain multi-byte text")
	}

	if got := BuildContext(matches, ContextOptions{MaxChars: budget}); len(got.References) != 2 {
		t.Fatalf("budget of %d chars fits both sources, kept %d", budget, len(got.References))
	}
	if got := BuildContext(matches, ContextOptions{MaxChars: budget - 1}); len(got.References) != 1 {
		t.Fatalf("budget of %d chars fits one source, kept %d", budget-1, len(got.References))
	}
}

func TestBuildPromptReplacesBraces(t *testing.T) {
	prompt := BuildPrompt("", "ما {هو} العلم؟", "[مرجع 1] {x}")
	if strings.ContainsAny(prompt, "{}") {
		t.Fatalf("prompt still contains braces: %q", prompt)
	}
	if !strings.HasPrefix(prompt, DefaultInstruction) {
		t.Fatalf("expected default instruction prefix")
	}
	if !strings.Contains(prompt, "ما (هو) العلم؟") || !strings.Contains(prompt, "[مرجع 1] (x)") {
		t.Fatalf("question or context missing: %q", prompt)
	}
}
