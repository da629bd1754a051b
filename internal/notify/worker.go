package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// WorkerConfig - параметры потребителя очереди.
type WorkerConfig struct {
	URL      string
	Queue    string
	Prefetch int
	Workers  int
}

// ackAction - что сделать с сообщением после обработки.
type ackAction int

const (
	actionAck     ackAction = iota
	actionReject            // nack без повтора
	actionRequeue           // nack с возвратом в очередь
)

// Worker читает задачи из очереди и отправляет письма.
type Worker struct {
	cfg    WorkerConfig
	mailer Mailer

	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.RWMutex

	wg sync.WaitGroup
}

// NewWorker подключается к очереди и настраивает prefetch.
func NewWorker(cfg WorkerConfig, mailer Mailer) (*Worker, error) {
	w := &Worker{cfg: cfg, mailer: mailer}
	if err := w.connect(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Worker) connect() error {
	conn, ch, err := dial(w.cfg.URL, w.cfg.Queue)
	if err != nil {
		return err
	}
	if err := ch.Qos(w.cfg.Prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.channel = ch
	w.mu.Unlock()

	log.WithFields(log.Fields{
		"queue":    w.cfg.Queue,
		"prefetch": w.cfg.Prefetch,
	}).Info("Worker подключён к RabbitMQ")
	return nil
}

// Start запускает пул обработчиков и блокируется до отмены ctx.
// При потере соединения переподключается с нарастающей паузой.
func (w *Worker) Start(ctx context.Context) error {
	for {
		signals, err := w.consume(ctx)
		if err != nil {
			return err
		}

		amqpErr, lost := awaitClose(ctx, signals)
		w.wg.Wait()
		if !lost {
			return nil
		}

		log.WithError(amqpErr).Error("Соединение с RabbitMQ потеряно")
		if err := w.reconnect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// closeSignals - уведомления о закрытии соединения и канала.
// Канал AMQP может закрыться отдельно (например, ошибка на стороне брокера),
// тогда соединение остаётся живым, а доставки прекращаются.
type closeSignals struct {
	conn    <-chan *amqp.Error
	channel <-chan *amqp.Error
}

// awaitClose ждёт закрытия соединения или канала. false - отменён ctx.
func awaitClose(ctx context.Context, s closeSignals) (*amqp.Error, bool) {
	select {
	case <-ctx.Done():
		return nil, false
	case err := <-s.conn:
		return err, true
	case err := <-s.channel:
		return err, true
	}
}

func (w *Worker) consume(ctx context.Context) (closeSignals, error) {
	w.mu.RLock()
	conn, channel := w.conn, w.channel
	w.mu.RUnlock()

	if channel == nil {
		return closeSignals{}, errors.New("channel is not initialized")
	}

	msgs, err := channel.Consume(
		w.cfg.Queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return closeSignals{}, fmt.Errorf("failed to start consuming: %w", err)
	}

	workers := w.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	log.WithField("workers", workers).Info("Запуск обработчиков уведомлений")

	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, msgs, i)
	}

	return closeSignals{
		conn:    conn.NotifyClose(make(chan *amqp.Error, 1)),
		channel: channel.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}

func (w *Worker) reconnect(ctx context.Context) error {
	w.close()

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		if err := w.connect(); err == nil {
			log.Info("Переподключение к RabbitMQ успешно")
			return nil
		}

		delay := reconnectDelay * time.Duration(attempt)
		log.WithFields(log.Fields{
			"attempt": attempt,
			"delay":   delay,
		}).Warn("Переподключение не удалось, повторяем")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return errors.New("max reconnection attempts reached")
}

func (w *Worker) run(ctx context.Context, msgs <-chan amqp.Delivery, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				log.WithField("worker_id", workerID).Debug("Канал сообщений закрыт")
				return
			}
			w.settle(msg, w.handle(ctx, msg.Body, msg.Redelivered))
		}
	}
}

func (w *Worker) settle(msg amqp.Delivery, action ackAction) {
	var err error
	switch action {
	case actionAck:
		err = msg.Ack(false)
	case actionReject:
		err = msg.Nack(false, false)
	case actionRequeue:
		err = msg.Nack(false, true)
	}
	if err != nil {
		log.WithError(err).Warn("Не удалось подтвердить сообщение")
	}
}

// handle разбирает и отправляет одно письмо.
// Битые сообщения отбрасываются, ошибка отправки даёт одну повторную попытку.
func (w *Worker) handle(ctx context.Context, body []byte, redelivered bool) ackAction {
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	var task Task
	if err := json.Unmarshal(body, &task); err != nil {
		log.WithError(err).WithField("body", string(body)).Error("Некорректное сообщение в очереди")
		return actionReject
	}

	email, err := Render(&task)
	if err != nil {
		log.WithError(err).WithField("type", task.Type).Error("Задача отклонена")
		return actionReject
	}

	if err := w.mailer.Send(ctx, email); err != nil {
		fields := log.Fields{"type": task.Type, "to": task.Email}
		if redelivered {
			log.WithError(err).WithFields(fields).Error("Письмо не отправлено, задача отброшена")
			return actionReject
		}
		log.WithError(err).WithFields(fields).Warn("Письмо не отправлено, повторим")
		return actionRequeue
	}

	log.WithFields(log.Fields{
		"type": task.Type,
		"to":   task.Email,
	}).Info("Письмо отправлено")
	return actionAck
}

func (w *Worker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.channel != nil {
		w.channel.Close()
		w.channel = nil
	}
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}

// Close останавливает потребление. Вызывать после отмены ctx из Start.
func (w *Worker) Close() {
	w.wg.Wait()
	w.close()
	log.Info("Worker уведомлений остановлен")
}
