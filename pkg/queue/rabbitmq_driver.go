package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQDriver publishes envelopes to a durable queue on the default
// exchange and consumes them with manual acks.
type RabbitMQDriver struct {
	conn  *amqp.Connection
	pubCh *amqp.Channel
	subCh *amqp.Channel
	queue string

	once       sync.Once
	deliveries <-chan amqp.Delivery
	consumeErr error
	mu         sync.Mutex
}

func NewRabbitMQDriver(url, queue string) (*RabbitMQDriver, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("queue/rabbitmq: dial: %w", err)
	}

	pubCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue/rabbitmq: channel: %w", err)
	}

	_, err = pubCh.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue/rabbitmq: declare %s: %w", queue, err)
	}

	subCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue/rabbitmq: channel: %w", err)
	}
	if err := subCh.Qos(1, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue/rabbitmq: qos: %w", err)
	}

	return &RabbitMQDriver{conn: conn, pubCh: pubCh, subCh: subCh, queue: queue}, nil
}

func (d *RabbitMQDriver) Push(payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.pubCh.PublishWithContext(ctx,
		"",      // exchange
		d.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Timestamp:    time.Now(),
			Body:         payload,
		})
	if err != nil {
		return fmt.Errorf("queue/rabbitmq: publish: %w", err)
	}
	return nil
}

// Pop acks on receipt: retries and failure bookkeeping belong to the Manager.
func (d *RabbitMQDriver) Pop(ctx context.Context) ([]byte, error) {
	d.once.Do(func() {
		d.deliveries, d.consumeErr = d.subCh.Consume(
			d.queue, // queue
			"",      // consumer
			false,   // auto-ack
			false,   // exclusive
			false,   // no-local
			false,   // no-wait
			nil,     // args
		)
	})
	if d.consumeErr != nil {
		return nil, fmt.Errorf("queue/rabbitmq: consume: %w", d.consumeErr)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-d.deliveries:
		if !ok {
			return nil, ErrClosed
		}
		if err := msg.Ack(false); err != nil {
			return nil, fmt.Errorf("queue/rabbitmq: ack: %w", err)
		}
		return msg.Body, nil
	}
}

func (d *RabbitMQDriver) Close() error {
	if d.subCh != nil {
		d.subCh.Close()
	}
	if d.pubCh != nil {
		d.pubCh.Close()
	}
	return d.conn.Close()
}
