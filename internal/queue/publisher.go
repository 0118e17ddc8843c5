package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// Publisher sends JSON messages to durable RabbitMQ queues.  It serves
// as both the lifecycle event publisher and the audit outbox.  Each
// publish dials its own connection, so a broker outage never leaves the
// publisher in a broken state; errors are logged and returned for the
// caller to ignore.
type Publisher struct {
	eventsQueue string
	auditQueue  string
	log         *slog.Logger
	send        func(ctx context.Context, queue string, msg amqp.Publishing) error
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url, eventsQueue, auditQueue string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		eventsQueue: eventsQueue,
		auditQueue:  auditQueue,
		log:         log,
		send:        dialAndSend(url),
	}
}

// PublishReservationEvent implements ports.EventPublisher.
func (p *Publisher) PublishReservationEvent(ctx context.Context, action model.HistoryAction, r model.Reservation) error {
	id := uuid.NewString()
	return p.publish(ctx, p.eventsQueue, id, NewReservationEvent(id, action, r))
}

// EnqueueHistory implements ports.AuditOutbox.  The entry's event id is
// reused as the message id so the consumer can deduplicate.
func (p *Publisher) EnqueueHistory(ctx context.Context, e model.HistoryEntry) error {
	id := e.EventID
	if id == "" {
		id = uuid.NewString()
		e.EventID = id
	}
	return p.publish(ctx, p.auditQueue, id, e)
}

func (p *Publisher) publish(ctx context.Context, queue, id string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("rabbitmq: marshal message failed", slog.String("queue", queue), slog.Any("error", err))
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    id,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := p.send(ctx, queue, msg); err != nil {
		p.log.Warn("rabbitmq: publish failed", slog.String("queue", queue), slog.String("message_id", id), slog.Any("error", err))
		return err
	}
	return nil
}

// dialAndSend opens a connection and channel, declares the durable
// queue and publishes msg through the default exchange.
func dialAndSend(url string) func(ctx context.Context, queue string, msg amqp.Publishing) error {
	return func(ctx context.Context, queue string, msg amqp.Publishing) error {
		conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
		if err != nil {
			return fmt.Errorf("dial: %w", err)
		}
		defer func() { _ = conn.Close() }()

		ch, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("channel open: %w", err)
		}
		defer func() { _ = ch.Close() }()

		if err := declare(ch, queue); err != nil {
			return err
		}
		if err := ch.PublishWithContext(ctx,
			"",    // default exchange
			queue, // routing key = queue name
			false, // mandatory
			false, // immediate
			msg,
		); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		return nil
	}
}

// declare ensures the queue exists (idempotent).  Durable so messages
// survive broker restarts.
func declare(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		return fmt.Errorf("queue declare %s: %w", queue, err)
	}
	return nil
}
