package retrieval

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

const quoteMarks = "\"'“”«»„‟"

// Verify reports whether quote occurs verbatim in source once surrounding
// quotation marks and a trailing ellipsis are removed. No fuzzy matching.
func Verify(quote, source string) bool {
	q := trimQuote(quote)
	if q == "" {
		return false
	}
	return strings.Contains(source, q)
}

func trimQuote(quote string) string {
	q := strings.TrimSpace(quote)
	q = strings.Trim(q, quoteMarks)
	q = strings.TrimRight(q, "….")
	// The ellipsis may sit outside the closing mark: “text”...
	q = strings.Trim(strings.TrimSpace(q), quoteMarks)
	return strings.TrimSpace(q)
}

// Quote is a quotation lifted from a generated answer with the reference it cites.
type Quote struct {
	Text      string
	Reference int
}

var citationPattern = regexp.MustCompile(
	`(?:"([^"]+)"|“([^”]+)”|«([^»]+)»)\s*[(\[]\s*(?:ref(?:erence)?|مرجع)\s*(\d+)\s*[)\]]`,
)

// ExtractCitations finds quotes followed by a reference marker such as
// "text" (ref 2) or «نص» (مرجع 2).
func ExtractCitations(answer string) []Quote {
	matches := citationPattern.FindAllStringSubmatch(answer, -1)
	out := make([]Quote, 0, len(matches))
	for _, m := range matches {
		text := m[1]
		if text == "" {
			text = m[2]
		}
		if text == "" {
			text = m[3]
		}
		ref, err := strconv.Atoi(m[4])
		if err != nil {
			continue
		}
		out = append(out, Quote{Text: text, Reference: ref})
	}
	return out
}

// CheckCitations verifies every quote in answer against the chunk it cites
// and marks the references accordingly. A reference is Verified when it is
// cited and all of its quotes verify. Quotes citing an unknown reference
// fail verification.
func CheckCitations(answer string, matches []domain.ScoredChunk, refs []domain.Reference) []domain.CitationCheck {
	quotes := ExtractCitations(answer)
	checks := make([]domain.CitationCheck, 0, len(quotes))
	failed := make(map[int]bool)
	for _, q := range quotes {
		ok := false
		if q.Reference >= 1 && q.Reference <= len(matches) {
			ok = Verify(q.Text, matches[q.Reference-1].Chunk.Content)
		}
		checks = append(checks, domain.CitationCheck{Reference: q.Reference, Quote: q.Text, Verified: ok})
		if q.Reference >= 1 && q.Reference <= len(refs) {
			refs[q.Reference-1].Cited = true
			if !ok {
				failed[q.Reference] = true
			}
		}
	}
	for i := range refs {
		refs[i].Verified = refs[i].Cited && !failed[i+1]
	}
	return checks
}
