package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/resilience"
)

// connectionErrors are publish failures that a reconnect can cure.
var connectionErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrFlushTimeout,
	nats.ErrConnectionClosed,
	nats.ErrConnectionReconnecting,
	nats.ErrDisconnected,
}

func isConnectionError(err error) bool {
	for _, target := range connectionErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// classifyPublishError retries connection failures and open circuits.
// Cancellation is neither retried nor held against the breaker.
func classifyPublishError(err error) resilience.ErrorClassification {
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err), isConnectionError(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

// publishError names the document whose event was lost and marks
// retryable failures as domain.ErrTemporary so callers can answer 503.
func publishError(documentID string, err error) error {
	if err == nil {
		return nil
	}
	err = fmt.Errorf("publish ingestion event for %s: %w", documentID, err)
	if domain.IsKind(err, domain.ErrTemporary) || !classifyPublishError(err).Retryable {
		return err
	}
	return domain.WrapError(domain.ErrTemporary, "nats publish", err)
}
