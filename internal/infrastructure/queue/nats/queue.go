package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/resilience"
)

const (
	DefaultSubject    = "nebras.documents.ingest"
	DefaultQueueGroup = "ingestion-workers"
)

// IngestionEvent is the message published for every uploaded document.
type IngestionEvent struct {
	DocumentID string    `json:"document_id"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type Queue struct {
	conn           *nats.Conn
	subject        string
	queueGroup     string
	handlerTimeout time.Duration
	executor       *resilience.Executor
	logger         *slog.Logger
}

type Options struct {
	Subject              string
	QueueGroup           string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	// HandlerTimeout bounds the processing of one event. Zero disables it.
	HandlerTimeout     time.Duration
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

func New(url string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	subject := strings.TrimSpace(options.Subject)
	if subject == "" {
		subject = DefaultSubject
	}
	group := strings.TrimSpace(options.QueueGroup)
	if group == "" {
		group = DefaultQueueGroup
	}

	conn, err := nats.Connect(
		url,
		nats.Name("nebras"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		subject:        subject,
		queueGroup:     group,
		handlerTimeout: options.HandlerTimeout,
		executor:       options.ResilienceExecutor,
		logger:         logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Connected reports whether the connection is currently usable.
func (q *Queue) Connected() bool {
	return q.conn != nil && q.conn.IsConnected()
}

func (q *Queue) PublishDocumentIngested(ctx context.Context, documentID string) error {
	payload, err := encodeEvent(IngestionEvent{DocumentID: documentID, UploadedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyPublishError)
	} else {
		err = call(ctx)
	}
	return publishError(documentID, err)
}

// SubscribeDocumentIngested delivers events to handler until ctx is done,
// then drains the subscription so in-flight documents finish.
func (q *Queue) SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, q.queueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		event, err := decodeEvent(msg.Data)
		if err != nil {
			q.logger.Error("ingestion_event_invalid", "error", err, "payload_bytes", len(msg.Data))
			return
		}

		handlerCtx, cancel := q.handlerContext(ctx)
		defer cancel()
		if err := handler(handlerCtx, event.DocumentID); err != nil {
			q.logger.Error("ingestion_handler_failed", "document_id", event.DocumentID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) handlerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	// In-flight documents finish while the subscription drains.
	base := context.WithoutCancel(ctx)
	if q.handlerTimeout > 0 {
		return context.WithTimeout(base, q.handlerTimeout)
	}
	return context.WithCancel(base)
}

func encodeEvent(event IngestionEvent) ([]byte, error) {
	if strings.TrimSpace(event.DocumentID) == "" {
		return nil, errors.New("ingestion event without document id")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode ingestion event: %w", err)
	}
	return payload, nil
}

// decodeEvent accepts the JSON event and, for older publishers, a bare id.
func decodeEvent(data []byte) (IngestionEvent, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return IngestionEvent{}, errors.New("empty ingestion event")
	}
	if !strings.HasPrefix(raw, "{") {
		return IngestionEvent{DocumentID: raw}, nil
	}
	var event IngestionEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return IngestionEvent{}, fmt.Errorf("decode ingestion event: %w", err)
	}
	if strings.TrimSpace(event.DocumentID) == "" {
		return IngestionEvent{}, errors.New("ingestion event without document id")
	}
	return event, nil
}
