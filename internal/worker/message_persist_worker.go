package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"

	"cowrite/internal/config"
	"cowrite/internal/model"
	"cowrite/internal/pkg/logger"
	"cowrite/internal/platform/rabbitmq"
)

type BatchStore interface {
	CreateBatch(ctx context.Context, messages []model.Message) error
}

type HistoryInvalidator interface {
	DeleteHistory(ctx context.Context, chatID string) error
}

// MessagePersistWorker consumes message batches published at the end of a
// turn and writes each one in a single transaction.
type MessagePersistWorker struct {
	conn      *amqp.Connection
	store     BatchStore
	cache     HistoryInvalidator
	queueName string
	prefetch  int
	log       *logger.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

func NewMessagePersistWorker(conn *amqp.Connection, store BatchStore, cache HistoryInvalidator, cfg config.RabbitMQConfig, log *logger.Logger) *MessagePersistWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &MessagePersistWorker{
		conn:      conn,
		store:     store,
		cache:     cache,
		queueName: cfg.MessagePersistQueue,
		prefetch:  cfg.Prefetch,
		log:       log.With("component", "MessagePersistWorker"),
	}
}

// Running reports whether the consume loop is alive. It turns false when
// the worker is closed or the broker drops the delivery channel.
func (w *MessagePersistWorker) Running() bool {
	return w.running.Load()
}

func (w *MessagePersistWorker) Start(ctx context.Context) error {
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
	if w.prefetch > 0 {
		if err := ch.Qos(w.prefetch, 0, false); err != nil {
			_ = ch.Close()
			cancel()
			return fmt.Errorf("set worker prefetch failed: %w", err)
		}
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

	w.running.Store(true)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.running.Store(false)
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.log.Warn("delivery channel closed", "queue", w.queueName)
					return
				}
				if err := w.Handle(workerCtx, d.Body); err != nil {
					w.log.Error("persist message batch failed", "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.log.Info("worker started", "queue", w.queueName)
	return nil
}

// Handle decodes and persists one delivery body.
func (w *MessagePersistWorker) Handle(ctx context.Context, body []byte) error {
	var batch model.MessageBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		return fmt.Errorf("decode message batch failed: %w", err)
	}
	if len(batch.Messages) == 0 {
		return nil
	}
	if err := w.store.CreateBatch(ctx, batch.Messages); err != nil {
		return err
	}
	if w.cache != nil {
		if err := w.cache.DeleteHistory(ctx, batch.ChatID); err != nil {
			w.log.Warn("invalidate history cache failed", "chat_id", batch.ChatID, "error", err)
		}
	}
	w.log.Debug("message batch persisted", "chat_id", batch.ChatID, "count", len(batch.Messages))
	return nil
}

func (w *MessagePersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
