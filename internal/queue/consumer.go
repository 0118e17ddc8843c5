package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/service/ports"
)

// errMalformed marks deliveries that can never be processed.
var errMalformed = errors.New("malformed audit message")

// AuditConsumer drains the audit outbox into the history store.
type AuditConsumer struct {
	url          string
	queue        string
	store        ports.HistoryStore
	log          *slog.Logger
	retryDelay   time.Duration
	writeTimeout time.Duration
}

// NewAuditConsumer builds a consumer for queue on the broker at url.
func NewAuditConsumer(url, queue string, store ports.HistoryStore, log *slog.Logger) *AuditConsumer {
	if log == nil {
		log = slog.Default()
	}
	return &AuditConsumer{
		url:          url,
		queue:        queue,
		store:        store,
		log:          log,
		retryDelay:   2 * time.Second,
		writeTimeout: 5 * time.Second,
	}
}

// Run connects to RabbitMQ, declares the queue and consumes until ctx is
// cancelled.  Connection failures are retried with exponential backoff
// capped at 30s.
func (c *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("audit-consumer: failed to dial broker", slog.Any("error", err), slog.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("audit-consumer: consume loop ended; reconnecting", slog.Any("error", err))
		if !sleep(ctx, c.retryDelay) {
			return ctx.Err()
		}
	}
}

func (c *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("audit-consumer: set QoS failed", slog.Any("error", err))
	}
	if err := declare(ch, c.queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.deliver(ctx, d)
		}
	}
}

func (c *AuditConsumer) deliver(ctx context.Context, d amqp.Delivery) {
	err := c.handle(ctx, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, errMalformed):
		c.log.Error("audit-consumer: dropping message", slog.String("message_id", d.MessageId), slog.Any("error", err))
		_ = d.Nack(false, false) // reject, do not requeue
	default:
		c.log.Warn("audit-consumer: history write failed; requeueing", slog.String("message_id", d.MessageId), slog.Any("error", err))
		sleep(ctx, c.retryDelay) // avoid a tight redelivery loop
		_ = d.Nack(false, true)
	}
}

// handle decodes one outbox message and appends it to history.
func (c *AuditConsumer) handle(ctx context.Context, body []byte) error {
	var e model.HistoryEntry
	if err := json.Unmarshal(body, &e); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if e.EventID == "" || e.ReservationID == 0 || e.Action == "" {
		return fmt.Errorf("%w: missing event_id, reservation_id or action", errMalformed)
	}
	e.ID = 0
	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	return c.store.AppendHistory(ctx, &e)
}

// sleep waits for d or until ctx is done, reporting whether it slept
// the full duration.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
