package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/infrastructure/resilience"
)

// Queue carries reprocessing requests to the worker fleet and audit events to
// the external audit consumer.
type Queue struct {
	conn         *nats.Conn
	subject      string
	auditSubject string
	executor     *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, subject, auditSubject string) (*Queue, error) {
	return NewWithOptions(url, subject, auditSubject, Options{})
}

func NewWithOptions(url, subject, auditSubject string, options Options) (*Queue, error) {
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

	conn, err := nats.Connect(
		url,
		nats.Name("therapyflow-ingestion"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:         conn,
		subject:      subject,
		auditSubject: auditSubject,
		executor:     options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishReprocess(ctx context.Context, documentID string) error {
	payload, err := json.Marshal(domain.ReprocessJob{
		DocumentID: documentID,
		EnqueuedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal reprocess job: %w", err)
	}
	return q.publish(ctx, "nats.publish_reprocess", q.subject, payload)
}

// decodeReprocessJob accepts the JSON envelope or, for messages published
// before the envelope existed, a bare document id.
func decodeReprocessJob(data []byte) domain.ReprocessJob {
	var job domain.ReprocessJob
	if err := json.Unmarshal(data, &job); err == nil && job.DocumentID != "" {
		return job
	}
	return domain.ReprocessJob{DocumentID: string(data)}
}

func (q *Queue) PublishAudit(ctx context.Context, event domain.AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return q.publish(ctx, "nats.publish_audit", q.auditSubject, payload)
}

func (q *Queue) publish(ctx context.Context, operation, subject string, payload []byte) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, operation, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeReprocess delivers queued jobs to handler until ctx ends. The
// handler must not block for the length of a pipeline run: nats.go invokes
// the callback from a single dispatcher goroutine per subscription, so a
// blocking handler serializes all deliveries. Callers hand the run off to a
// bounded set of goroutines and return promptly.
func (q *Queue) SubscribeReprocess(ctx context.Context, handler func(context.Context, domain.ReprocessJob) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, "ingestion-workers", func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		job := decodeReprocessJob(msg.Data)
		if err := handler(ctx, job); err != nil {
			slog.Error("reprocess_handler_failed", "document_id", job.DocumentID, "error", err)
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
