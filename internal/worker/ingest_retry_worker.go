package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"gopherai-docqa/internal/app"
	"gopherai-docqa/internal/model"
	"gopherai-docqa/internal/platform/rabbitmq"
)

type Ingester interface {
	Ingest(ctx context.Context, documentID, text, handle string) (int, error)
}

type FailureMarker interface {
	MarkFailed(ctx context.Context, documentID string) error
}

type JobPublisher interface {
	Publish(ctx context.Context, job model.IngestJob) error
}

// IngestRetryWorker re-runs ingestion for documents whose first attempt hit
// a dependency failure. After maxAttempts the document is marked failed.
type IngestRetryWorker struct {
	conn        *amqp.Connection
	queueName   string
	ingester    Ingester
	documents   FailureMarker
	publisher   JobPublisher
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestRetryWorker(
	conn *amqp.Connection,
	queueName string,
	ingester Ingester,
	documents FailureMarker,
	publisher JobPublisher,
	maxAttempts int,
	logger *zap.Logger,
) *IngestRetryWorker {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &IngestRetryWorker{
		conn:        conn,
		queueName:   queueName,
		ingester:    ingester,
		documents:   documents,
		publisher:   publisher,
		maxAttempts: maxAttempts,
		backoff:     2 * time.Second,
		logger:      logger.Named("ingest_retry_worker"),
	}
}

func (w *IngestRetryWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	// one job at a time, ingestion is already fanned out internally
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var job model.IngestJob
				if err := json.Unmarshal(d.Body, &job); err != nil {
					w.logger.Error("decode ingest job failed", zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}

				if err := w.process(workerCtx, job); err != nil {
					w.logger.Error("handle ingest job failed", zap.String("document_id", job.DocumentID), zap.Error(err))
					_ = d.Nack(false, true)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info("ingest retry worker started", zap.String("queue", w.queueName))
	return nil
}

// process returns an error only when the job could not be settled and should
// be redelivered as is.
func (w *IngestRetryWorker) process(ctx context.Context, job model.IngestJob) error {
	if w.backoff > 0 && job.Attempt > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.backoff * time.Duration(job.Attempt)):
		}
	}

	n, err := w.ingester.Ingest(ctx, job.DocumentID, job.Text, job.IndexHandle)
	if err == nil {
		w.logger.Info("ingest retry succeeded",
			zap.String("document_id", job.DocumentID),
			zap.Int("attempt", job.Attempt),
			zap.Int("chunks", n),
		)
		return nil
	}

	if errors.Is(err, app.ErrValidation) || job.Attempt >= w.maxAttempts {
		w.logger.Warn("giving up on document",
			zap.String("document_id", job.DocumentID),
			zap.Int("attempt", job.Attempt),
			zap.Error(err),
		)
		return w.documents.MarkFailed(ctx, job.DocumentID)
	}

	next := job
	next.Attempt++
	if err := w.publisher.Publish(ctx, next); err != nil {
		return fmt.Errorf("requeue ingest job failed: %w", err)
	}
	w.logger.Info("ingest retry rescheduled",
		zap.String("document_id", job.DocumentID),
		zap.Int("next_attempt", next.Attempt),
		zap.Error(err),
	)
	return nil
}

func (w *IngestRetryWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
