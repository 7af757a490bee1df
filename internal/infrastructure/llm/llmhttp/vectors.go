package llmhttp

import (
	"errors"
	"fmt"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

// CheckVectors rejects responses that do not carry one usable vector per input.
func CheckVectors(operation string, inputs int, vectors [][]float32) error {
	if len(vectors) != inputs {
		return domain.WrapError(domain.ErrEmbeddingUnavailable, operation,
			fmt.Errorf("expected %d embeddings, got %d", inputs, len(vectors)))
	}
	dim := -1
	for i, v := range vectors {
		if len(v) == 0 {
			return domain.WrapError(domain.ErrEmbeddingUnavailable, operation, fmt.Errorf("embedding %d is empty", i))
		}
		if dim >= 0 && len(v) != dim {
			return domain.WrapError(domain.ErrEmbeddingUnavailable, operation,
				fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(v), dim))
		}
		dim = len(v)
	}
	return nil
}

// EmbeddingFailure marks err as ErrEmbeddingUnavailable, keeping ErrTemporary
// when the failure was retryable.
func EmbeddingFailure(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
		return err
	}
	return domain.WrapError(domain.ErrEmbeddingUnavailable, operation, WrapTemporaryIfNeeded(operation, err))
}

// GenerationFailure marks err as ErrGenerationFailure.
func GenerationFailure(operation string, err error) error {
	if err == nil {
		return nil
	}
	return domain.WrapError(domain.ErrGenerationFailure, operation, WrapTemporaryIfNeeded(operation, err))
}

var ErrEmptyCompletion = errors.New("empty completion")
