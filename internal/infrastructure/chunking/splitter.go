package chunking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

const (
	DefaultWindowSize = 400
	DefaultOverlap    = 40
)

// Splitter cuts normalized text into overlapping word windows.
type Splitter struct {
	WindowSize int
	Overlap    int
}

func NewSplitter(windowSize, overlap int) *Splitter {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= windowSize {
		overlap = windowSize / 4
	}
	return &Splitter{
		WindowSize: windowSize,
		Overlap:    overlap,
	}
}

func (s *Splitter) Split(text string) []domain.TextWindow {
	windows, err := Chunk(text, s.WindowSize, s.Overlap)
	if err != nil {
		// NewSplitter keeps the parameters valid.
		return nil
	}
	return windows
}

// Chunk slides a windowSize-word window with stride windowSize-overlap over
// the words of text. Line numbers are approximated from the word position
// ratio against the number of non-empty lines.
func Chunk(text string, windowSize, overlap int) ([]domain.TextWindow, error) {
	if windowSize <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk", fmt.Errorf("window size must be positive, got %d", windowSize))
	}
	if overlap < 0 || overlap >= windowSize {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk", errors.New("overlap must be in [0, window size)"))
	}

	words := strings.Fields(text)
	total := len(words)
	if total == 0 {
		return nil, nil
	}
	lineCount := CountLines(text)

	stride := windowSize - overlap
	out := make([]domain.TextWindow, 0, total/stride+1)
	for start := 0; start < total; start += stride {
		end := start + windowSize
		if end > total {
			end = total
		}

		startLine := start*lineCount/total + 1
		endLine := end * lineCount / total
		if endLine < startLine {
			// Windows narrower than a line would otherwise end before they start.
			endLine = startLine
		}

		out = append(out, domain.TextWindow{
			Content:   strings.Join(words[start:end], " "),
			StartLine: startLine,
			EndLine:   endLine,
			WordStart: start,
			WordCount: end - start,
		})
	}
	return out, nil
}

// CountLines returns the number of non-empty trimmed lines.
func CountLines(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}
