package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

var ErrPoolClosed = errors.New("rabbitmq: channel pool closed")

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// ChannelPool hands out pre-opened channels on one connection. Every
// channel has the notification queue declared.
type ChannelPool struct {
	conn     *amqp.Connection
	channels chan Channel
	queue    string
	log      logrus.FieldLogger

	mu     sync.Mutex
	closed bool
}

func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: connect: %w", err)
	}
	return conn, nil
}

func NewChannelPool(conn *amqp.Connection, queue string, size int, log logrus.FieldLogger) (*ChannelPool, error) {
	if size <= 0 {
		size = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	p := &ChannelPool{
		conn:     conn,
		channels: make(chan Channel, size),
		queue:    queue,
		log:      log,
	}
	for i := 0; i < size; i++ {
		ch, err := p.open()
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("rabbitmq: open channel %d: %w", i, err)
		}
		p.channels <- ch
	}
	p.log.WithFields(logrus.Fields{"queue": queue, "size": size}).Info("rabbitmq channel pool ready")
	return p, nil
}

func (p *ChannelPool) open() (*amqp.Channel, error) {
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := declareQueue(ch, p.queue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	return ch, nil
}

// Get waits for a free channel, replacing it if the broker closed it.
func (p *ChannelPool) Get(ctx context.Context) (Channel, error) {
	select {
	case ch, ok := <-p.channels:
		if !ok {
			return nil, ErrPoolClosed
		}
		if ch.IsClosed() {
			fresh, err := p.open()
			if err != nil {
				// keep the pool at its size; the next Get retries the reopen
				p.Put(ch)
				return nil, fmt.Errorf("rabbitmq: reopen channel: %w", err)
			}
			return fresh, nil
		}
		return ch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *ChannelPool) Put(ch Channel) {
	if ch == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = ch.Close()
		return
	}
	select {
	case p.channels <- ch:
	default:
		_ = ch.Close()
	}
}

func (p *ChannelPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.channels)
	for ch := range p.channels {
		_ = ch.Close()
	}
}

func declareQueue(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return nil
}
