package retrieval

import (
	"testing"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

func TestVerify(t *testing.T) {
	source := "... hello world is a phrase ..."
	cases := []struct {
		quote string
		want  bool
	}{
		{quote: "hello world", want: true},
		{quote: "hello galaxy", want: false},
		{quote: `"hello world"`, want: true},
		{quote: "«hello world»", want: true},
		{quote: "“hello world…”", want: true},
		{quote: "hello world...", want: true},
		{quote: "“hello world”...", want: true},
		{quote: "«hello world» …", want: true},
		{quote: "Hello World", want: false},
		{quote: `""`, want: false},
		{quote: "   ", want: false},
	}
	for _, tc := range cases {
		if got := Verify(tc.quote, source); got != tc.want {
			t.Fatalf("Verify(%q) = %v, want %v", tc.quote, got, tc.want)
		}
	}
}

func TestExtractCitations(t *testing.T) {
	answer := `The text says "hello world" (ref 1) and later «العلم نور» (مرجع 2), also “unknown” [reference 7].`
	quotes := ExtractCitations(answer)
	if len(quotes) != 3 {
		t.Fatalf("expected 3 quotes, got %d: %+v", len(quotes), quotes)
	}
	if quotes[0].Text != "hello world" || quotes[0].Reference != 1 {
		t.Fatalf("unexpected first quote: %+v", quotes[0])
	}
	if quotes[1].Text != "العلم نور" || quotes[1].Reference != 2 {
		t.Fatalf("unexpected second quote: %+v", quotes[1])
	}
	if quotes[2].Reference != 7 {
		t.Fatalf("unexpected third quote: %+v", quotes[2])
	}
}

func TestCheckCitationsMarksReferences(t *testing.T) {
	matches := []domain.ScoredChunk{
		{Chunk: domain.Chunk{Content: "hello world is a phrase"}},
		{Chunk: domain.Chunk{Content: "العلم نور والجهل ظلام"}},
		{Chunk: domain.Chunk{Content: "never cited"}},
	}
	refs := []domain.Reference{{Index: 1}, {Index: 2}, {Index: 3}}
	answer := `"hello world" (ref 1), «العلم نور» (مرجع 2), «العلم ظلام» (مرجع 2), "ghost" (ref 9)`

	checks := CheckCitations(answer, matches, refs)
	if len(checks) != 4 {
		t.Fatalf("expected 4 checks, got %d", len(checks))
	}
	wantVerified := []bool{true, true, false, false}
	for i, c := range checks {
		if c.Verified != wantVerified[i] {
			t.Fatalf("check %d: expected verified=%v, got %+v", i, wantVerified[i], c)
		}
	}
	if !refs[0].Cited || !refs[0].Verified {
		t.Fatalf("reference 1 should be cited and verified: %+v", refs[0])
	}
	if !refs[1].Cited || refs[1].Verified {
		t.Fatalf("reference 2 has a failing quote: %+v", refs[1])
	}
	if refs[2].Cited || refs[2].Verified {
		t.Fatalf("reference 3 was never cited: %+v", refs[2])
	}
}
