package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound     = errors.New("document not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrTemporary            = errors.New("temporary failure")
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrGenerationFailure    = errors.New("generation failure")
	ErrIngestionConflict    = errors.New("ingestion conflict")
	// ErrNormalization is never produced; normalisation is a pure transform.
	ErrNormalization = errors.New("normalization error")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
