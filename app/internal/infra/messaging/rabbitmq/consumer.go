package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	domnotification "example.com/gallery-storefront/app/internal/domain/notification"
)

var ErrDeliveriesClosed = errors.New("rabbitmq: delivery channel closed")

type Handler interface {
	Handle(ctx context.Context, evt domnotification.Event) error
}

// Consumer processes notification events one at a time with manual acks.
// A failed event is requeued once; a second failure drops it.
type Consumer struct {
	conn    *amqp.Connection
	queue   string
	tag     string
	handler Handler
	log     logrus.FieldLogger
}

func NewConsumer(conn *amqp.Connection, queue, tag string, handler Handler, log logrus.FieldLogger) *Consumer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Consumer{conn: conn, queue: queue, tag: tag, handler: handler, log: log}
}

// Run consumes until ctx is cancelled or the broker closes the channel.
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := declareQueue(ch, c.queue); err != nil {
		return fmt.Errorf("rabbitmq: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("rabbitmq: set qos: %w", err)
	}
	msgs, err := ch.Consume(
		c.queue,
		c.tag,
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("rabbitmq: register consumer: %w", err)
	}

	c.log.WithFields(logrus.Fields{"queue": c.queue, "consumer": c.tag}).Info("notification consumer started")
	for {
		select {
		case <-ctx.Done():
			c.log.WithField("consumer", c.tag).Info("notification consumer stopped")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg amqp.Delivery) {
	log := c.log.WithField("delivery_tag", msg.DeliveryTag)

	var evt domnotification.Event
	if err := json.Unmarshal(msg.Body, &evt); err != nil || !evt.Kind.IsValid() {
		log.WithError(err).Warn("dropping malformed notification event")
		_ = msg.Nack(false, false)
		return
	}
	log = log.WithFields(logrus.Fields{"kind": evt.Kind, "order_id": evt.OrderID, "inquiry_id": evt.InquiryID})

	if err := c.handler.Handle(ctx, evt); err != nil {
		requeue := !msg.Redelivered
		log.WithError(err).WithField("requeue", requeue).Error("notification handler failed")
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			log.WithError(nackErr).Error("nack failed")
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		log.WithError(err).Error("ack failed")
	}
}
