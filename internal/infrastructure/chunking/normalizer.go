package chunking

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// letterVariants unifies Arabic letter forms that are written interchangeably.
var letterVariants = map[rune]rune{
	'أ': 'ا',
	'إ': 'ا',
	'آ': 'ا',
	'ٱ': 'ا',
	'ى': 'ي',
	'ة': 'ه',
}

// Normalizer folds letter variants, drops Arabic diacritics and tatweel and
// collapses whitespace. It holds no state and is safe for concurrent use.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize returns the canonical single-line form of text.
func (n *Normalizer) Normalize(text string) string {
	return Normalize(text)
}

// NormalizeLines folds every line like Normalize but keeps line structure,
// dropping blank lines. Chunk line numbers are computed against its output.
func (n *Normalizer) NormalizeLines(text string) string {
	return NormalizeLines(text)
}

func Normalize(text string) string {
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(fold(text)), " ")
}

func NormalizeLines(text string) string {
	if text == "" {
		return ""
	}
	folded := fold(text)
	lines := strings.Split(folded, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func fold(text string) string {
	t := transform.Chain(
		norm.NFC,
		runes.Remove(runes.Predicate(isArabicMark)),
		runes.Map(foldLetter),
		// Removed marks can leave combining sequences that compose only now.
		norm.NFC,
	)
	out, _, err := transform.String(t, text)
	if err != nil {
		// Only reachable for invalid transformer state; fall back to the input.
		return text
	}
	return out
}

func isArabicMark(r rune) bool {
	switch {
	case r >= 0x064B && r <= 0x065F: // harakat, shadda, sukun, extended marks
		return true
	case r == 0x0670: // superscript alef
		return true
	case r == 0x0640: // tatweel
		return true
	}
	return false
}

func foldLetter(r rune) rune {
	if mapped, ok := letterVariants[r]; ok {
		return mapped
	}
	if unicode.IsSpace(r) && r != '\n' {
		return ' '
	}
	return r
}
