package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

const (
	reconnectDelay       = 5 * time.Second
	maxReconnectAttempts = 10
	deliveryTimeout      = 30 * time.Second
)

// dial открывает соединение и канал и объявляет durable-очередь.
func dial(url, queue string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return conn, ch, nil
}

// AMQPPublisher публикует задачи в очередь уведомлений.
// amqp.Channel не потокобезопасен, поэтому публикации идут под мьютексом.
type AMQPPublisher struct {
	url   string
	queue string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPPublisher подключается к RabbitMQ.
func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url, queue: queue}
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	log.WithField("queue", queue).Info("Publisher подключён к RabbitMQ")
	return p, nil
}

func (p *AMQPPublisher) connectLocked() error {
	conn, ch, err := dial(p.url, p.queue)
	if err != nil {
		return err
	}
	p.conn = conn
	p.channel = ch
	return nil
}

// Publish отправляет задачу как persistent-сообщение.
// Закрытое соединение переоткрывается один раз.
func (p *AMQPPublisher) Publish(ctx context.Context, task *Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		p.closeLocked()
		if err := p.connectLocked(); err != nil {
			return err
		}
	}

	err = p.channel.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    task.CreatedAt,
			Type:         task.Type,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", task.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) closeLocked() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

// Close закрывает канал и соединение.
func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}
