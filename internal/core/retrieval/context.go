package retrieval

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

const (
	DefaultExcerptWords = 20
	ellipsis            = "..."
)

// NoReferencesMarker replaces the source list when nothing was retrieved.
const NoReferencesMarker = "لا توجد مصادر كافية. (no sufficient references)"

// ExcerptLimits bounds a single excerpt. Zero disables a cap; when both are
// zero the word cap defaults to DefaultExcerptWords.
type ExcerptLimits struct {
	MaxWords int
	MaxChars int
}

// Excerpt shortens text to the configured caps and appends "..." when
// anything was cut. Character cuts back off to the last word boundary.
func Excerpt(text string, limits ExcerptLimits) string {
	if limits.MaxWords <= 0 && limits.MaxChars <= 0 {
		limits.MaxWords = DefaultExcerptWords
	}

	words := strings.Fields(text)
	out := strings.Join(words, " ")
	truncated := false
	if limits.MaxWords > 0 && len(words) > limits.MaxWords {
		out = strings.Join(words[:limits.MaxWords], " ")
		truncated = true
	}
	if limits.MaxChars > 0 && utf8.RuneCountInString(out) > limits.MaxChars {
		out = cutAtWordBoundary(out, limits.MaxChars)
		truncated = true
	}
	if truncated {
		return out + ellipsis
	}
	return out
}

func cutAtWordBoundary(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	cut := runes[:maxRunes]
	// Keep the cut when it already lands between words.
	if unicode.IsSpace(runes[maxRunes]) {
		return strings.TrimRightFunc(string(cut), unicode.IsSpace)
	}
	for i := len(cut) - 1; i > 0; i-- {
		if unicode.IsSpace(cut[i]) {
			return strings.TrimRightFunc(string(cut[:i]), unicode.IsSpace)
		}
	}
	// A single word longer than the cap is cut mid-word.
	return string(cut)
}

// ContextOptions bounds the assembled context.
type ContextOptions struct {
	Excerpt ExcerptLimits
	// MaxChars stops adding sources once the context would exceed it. The
	// first source is always kept. Zero means unbounded.
	MaxChars int
}

// Assembled is the generator-facing context plus one reference per chunk.
type Assembled struct {
	Context    string
	References []domain.Reference
}

// BuildContext renders ranked chunks into numbered sources, keeping rank order.
func BuildContext(matches []domain.ScoredChunk, opts ContextOptions) Assembled {
	if len(matches) == 0 {
		return Assembled{Context: NoReferencesMarker, References: []domain.Reference{}}
	}

	refs := make([]domain.Reference, 0, len(matches))
	blocks := make([]string, 0, len(matches))
	size := 0
	for i, m := range matches {
		ref := domain.Reference{
			Index:        i + 1,
			ChunkID:      m.Chunk.ID,
			DocumentID:   m.Chunk.DocumentID,
			DocumentName: m.Chunk.DocumentName,
			StartLine:    m.Chunk.StartLine,
			EndLine:      m.Chunk.EndLine,
			Similarity:   SimilarityPercent(m.Score),
			Excerpt:      Excerpt(m.Chunk.Content, opts.Excerpt),
		}
		block := formatSource(ref)
		n := utf8.RuneCountInString(block)
		if opts.MaxChars > 0 && len(blocks) > 0 && size+n > opts.MaxChars {
			break
		}
		size += n
		refs = append(refs, ref)
		blocks = append(blocks, block)
	}
	return Assembled{Context: strings.Join(blocks, "\n"), References: refs}
}

// SimilarityPercent converts a cosine score to a percentage with two decimals.
func SimilarityPercent(score float64) float64 {
	return math.Round(score*10000) / 100
}

func formatSource(ref domain.Reference) string {
	return fmt.Sprintf("[مرجع %d] %s (lines %d-%d)\nمقتطف: \"%s\"\nدرجة التشابه: %.1f%%\n",
		ref.Index, ref.DocumentName, ref.StartLine, ref.EndLine, ref.Excerpt, ref.Similarity)
}
