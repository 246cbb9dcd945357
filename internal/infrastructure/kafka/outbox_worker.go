package kafka

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/similarity-backend/internal/usecase"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
	"github.com/DRSN-tech/similarity-backend/pkg/jitter"
	"github.com/DRSN-tech/similarity-backend/pkg/logger"
	"github.com/jackc/pgx/v5"
)

const (
	outboxChannel   = "outbox_pending"
	outboxBatchSize = 10
	// Страховочный опрос на случай потерянного NOTIFY
	listenPollTimeout = 30 * time.Second
)

// OutboxWorker публикует события каталога из таблицы outbox в Kafka.
// Транзакция записи события шлёт NOTIFY; воркер слушает канал и дочищает
// хвост накопившихся событий при каждом пробуждении и при старте.
type OutboxWorker struct {
	outboxRepo usecase.OutboxRepository
	producer   usecase.MessageProducer
	logger     logger.Logger
	dsn        string
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

func NewOutboxWorker(
	outboxRepo usecase.OutboxRepository,
	logger logger.Logger,
	producer usecase.MessageProducer,
	dsn string,
) *OutboxWorker {
	return &OutboxWorker{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
		dsn:        dsn,
		stopCh:     make(chan struct{}),
	}
}

// Start запускает стартовый дренаж и слушателя уведомлений.
func (w *OutboxWorker) Start(ctx context.Context) {
	w.wg.Add(2)

	go func() {
		defer w.wg.Done()
		w.drainOutbox(ctx, "startup")
		<-ctx.Done()
	}()

	go func() {
		defer w.wg.Done()
		w.listen(ctx)
	}()
}

// Stop останавливает воркер и ждёт завершения его горутин.
func (w *OutboxWorker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

// drainOutbox забирает pending-события батчами, пока таблица не опустеет.
func (w *OutboxWorker) drainOutbox(ctx context.Context, reason string) {
	drained := 0
	for {
		events, err := w.outboxRepo.GetAndMarkAsProcessing(ctx, outboxBatchSize)
		if err != nil {
			w.logger.Warnf("outbox drain (%s) failed: %v", reason, err)
			return
		}
		if len(events) == 0 {
			break
		}

		for _, event := range events {
			if err := w.publishEvent(ctx, event); err != nil {
				w.logger.Warnf("outbox event %s not published: %v", event.EventID, err)
				continue
			}
			if err := w.outboxRepo.MarkAsProcessed(ctx, event.ID); err != nil {
				w.logger.Warnf("outbox event %s mark processed failed: %v", event.EventID, err)
				continue
			}
			drained++
		}
	}

	if drained > 0 {
		w.logger.Infof("outbox drain (%s): %d events published", reason, drained)
	}
}

// publishEvent отправляет событие в Kafka; ключом служит ID товара,
// чтобы события одного товара попадали в одну партицию.
func (w *OutboxWorker) publishEvent(ctx context.Context, event *usecase.OutboxEvent) error {
	err := w.producer.WriteRawMessage(ctx, usecase.NewWriteRawMessageReq(event.ProductID, event.Payload))
	if err == nil {
		return nil
	}
	if isRetryableKafkaError(err) {
		// Событие остаётся в статусе processing и будет дослано после рестарта
		return e.Wrap("temporary kafka failure", err)
	}
	return e.Wrap("permanent kafka failure", err)
}

// listen держит выделенное LISTEN-соединение с Postgres и будит дренаж
// по каждому уведомлению. Потерянное соединение восстанавливается с backoff.
func (w *OutboxWorker) listen(ctx context.Context) {
	var conn *pgx.Conn

	subscribe := func() error {
		c, err := pgx.Connect(ctx, w.dsn)
		if err != nil {
			return e.Wrap("listen connect", err)
		}
		if _, err := c.Exec(ctx, "LISTEN "+outboxChannel); err != nil {
			c.Close(ctx)
			return e.Wrap("listen subscribe", err)
		}
		conn = c
		w.logger.Infof("outbox worker subscribed to %q", outboxChannel)
		return nil
	}

	for attempt := 0; ; attempt++ {
		if err := subscribe(); err == nil {
			break
		} else {
			w.logger.Warnf("outbox listen setup failed: %v", err)
		}

		select {
		case <-time.After(jitter.ExponentialBackoff(time.Second, 30*time.Second, attempt, jitter.DefaultJitter)):
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		}
	}
	defer conn.Close(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}

		waitCtx, cancel := context.WithTimeout(ctx, listenPollTimeout)
		notif, err := conn.WaitForNotification(waitCtx)
		cancel()

		switch {
		case err == nil:
			if notif.Channel == outboxChannel {
				w.drainOutbox(ctx, "notify")
			}
		case errors.Is(err, context.DeadlineExceeded):
			// Тихий период: дочищаем на случай потерянного уведомления
			w.drainOutbox(ctx, "poll")
		case errors.Is(err, context.Canceled):
			return
		default:
			w.logger.Warnf("outbox listen connection lost: %v", err)
			conn.Close(ctx)
			for attempt := 0; ; attempt++ {
				if err := subscribe(); err == nil {
					break
				}
				select {
				case <-time.After(jitter.ExponentialBackoff(time.Second, 30*time.Second, attempt, jitter.DefaultJitter)):
				case <-ctx.Done():
					return
				case <-w.stopCh:
					return
				}
			}
		}
	}
}

// isRetryableKafkaError различает временные сетевые сбои брокера.
func isRetryableKafkaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"network is unreachable",
		"broker not available",
		"no such host",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
