package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	domnotification "example.com/gallery-storefront/app/internal/domain/notification"
)

type channelSource interface {
	Get(ctx context.Context) (Channel, error)
	Put(ch Channel)
}

// Publisher writes notification events to the queue as persistent JSON.
type Publisher struct {
	pool    channelSource
	queue   string
	timeout time.Duration
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewPublisher(pool channelSource, queue string, log logrus.FieldLogger) *Publisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{pool: pool, queue: queue, timeout: 5 * time.Second, log: log, now: time.Now}
}

func (p *Publisher) Publish(ctx context.Context, evt domnotification.Event) error {
	if !evt.Kind.IsValid() {
		return domnotification.ErrUnknownKind
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = p.now().UTC()
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ch, err := p.pool.Get(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq: get channel: %w", err)
	}
	defer p.pool.Put(ch)

	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Type:         string(evt.Kind),
			Timestamp:    evt.OccurredAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("rabbitmq: publish %s: %w", evt.Kind, err)
	}

	p.log.WithFields(logrus.Fields{
		"kind":       evt.Kind,
		"order_id":   evt.OrderID,
		"inquiry_id": evt.InquiryID,
	}).Debug("notification event published")
	return nil
}
