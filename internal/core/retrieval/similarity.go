// Package retrieval holds the pure retrieval engine: cosine scoring with
// fixed or adaptive acceptance thresholds, context assembly and citation
// verification. Nothing here performs I/O.
package retrieval

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b. Empty vectors, vectors of
// different length and zero-norm vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Policy is an acceptance policy. A single threshold is the fixed policy;
// several thresholds are tried from strictest to loosest.
type Policy struct {
	thresholds []float64
}

func FixedThreshold(minAccept float64) Policy {
	return Policy{thresholds: []float64{minAccept}}
}

func AdaptiveThresholds(thresholds ...float64) Policy {
	ts := append([]float64(nil), thresholds...)
	sort.Sort(sort.Reverse(sort.Float64Slice(ts)))
	return Policy{thresholds: ts}
}

func (p Policy) Thresholds() []float64 {
	return append([]float64(nil), p.thresholds...)
}

func (p Policy) Adaptive() bool {
	return len(p.thresholds) > 1
}

func (p Policy) Validate() error {
	if len(p.thresholds) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate policy", errors.New("no thresholds"))
	}
	for _, t := range p.thresholds {
		if math.IsNaN(t) || t < -1 || t > 1 {
			return domain.WrapError(domain.ErrInvalidInput, "validate policy", fmt.Errorf("threshold %v outside [-1, 1]", t))
		}
	}
	return nil
}

// Query is the query side of a search.
type Query struct {
	Vector []float32
	// Model is the embedding model of Vector. Chunks embedded by a different
	// model score 0 when both sides name a model.
	Model string
}

type Result struct {
	Matches []domain.ScoredChunk
	// Threshold is the cutoff that produced Matches, or the loosest one tried.
	Threshold           float64
	NoSufficientMatches bool
}

// Search scores every candidate against the query, keeps those accepted by the
// first threshold that accepts anything, and returns at most topK matches in
// descending score order. Equal scores keep candidate order. topK <= 0 keeps
// every accepted match.
func Search(query Query, candidates []domain.Chunk, topK int, policy Policy) Result {
	scored := make([]domain.ScoredChunk, len(candidates))
	for i, c := range candidates {
		scored[i] = domain.ScoredChunk{Chunk: c, Score: score(query, c)}
	}

	result := Result{Matches: []domain.ScoredChunk{}}
	for _, threshold := range policy.thresholds {
		result.Threshold = threshold
		accepted := make([]domain.ScoredChunk, 0, len(scored))
		for _, s := range scored {
			if s.Score >= threshold {
				accepted = append(accepted, s)
			}
		}
		if len(accepted) == 0 {
			continue
		}
		sort.SliceStable(accepted, func(i, j int) bool {
			return accepted[i].Score > accepted[j].Score
		})
		if topK > 0 && len(accepted) > topK {
			accepted = accepted[:topK]
		}
		result.Matches = accepted
		return result
	}
	result.NoSufficientMatches = true
	return result
}

func score(query Query, c domain.Chunk) float64 {
	if query.Model != "" && c.EmbeddingModel != "" && query.Model != c.EmbeddingModel {
		return 0
	}
	return Cosine(query.Vector, c.Embedding)
}
