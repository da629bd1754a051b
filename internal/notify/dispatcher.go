package notify

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const dispatchTimeout = 10 * time.Second

// Publisher ставит задачу в очередь.
type Publisher interface {
	Publish(ctx context.Context, task *Task) error
}

// Dispatcher - точка входа для сервисов: ставит задачу и сразу возвращается.
// С publisher задача уходит в RabbitMQ, без него письмо отправляется в горутине.
type Dispatcher struct {
	publisher Publisher
	mailer    Mailer
	now       func() time.Time
	wg        sync.WaitGroup
}

// NewDispatcher создаёт диспетчер. publisher может быть nil.
func NewDispatcher(publisher Publisher, mailer Mailer) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		mailer:    mailer,
		now:       time.Now,
	}
}

// Welcome ставит приветственное письмо.
func (d *Dispatcher) Welcome(email, name string) {
	d.dispatch(&Task{
		Type:      TaskWelcome,
		Email:     email,
		Name:      name,
		CreatedAt: d.now().UTC(),
	})
}

// PurchaseConfirmed ставит письмо о покупке.
func (d *Dispatcher) PurchaseConfirmed(email, name, weaponName string, quantity int, totalCost decimal.Decimal) {
	d.dispatch(&Task{
		Type:       TaskPurchaseConfirmation,
		Email:      email,
		Name:       name,
		WeaponName: weaponName,
		Quantity:   quantity,
		TotalCost:  totalCost,
		CreatedAt:  d.now().UTC(),
	})
}

func (d *Dispatcher) dispatch(task *Task) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("Паника при отправке уведомления")
			}
		}()

		// Контекст запроса сюда не передаётся: отмена запроса не отменяет письмо
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		if err := d.deliver(ctx, task); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"type": task.Type,
				"to":   task.Email,
			}).Error("Уведомление не отправлено")
		}
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, task *Task) error {
	if d.publisher != nil {
		return d.publisher.Publish(ctx, task)
	}
	email, err := Render(task)
	if err != nil {
		return err
	}
	return d.mailer.Send(ctx, email)
}

// Wait дожидается уже поставленных задач (для graceful shutdown).
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
