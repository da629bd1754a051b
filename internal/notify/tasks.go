// Package notify отправляет письма игрокам через очередь RabbitMQ.
// Вызывающий код только ставит задачу и не ждёт результата:
// ошибки очереди и почты логируются и не влияют на покупку или регистрацию.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"serotonyl.ru/cod-inventory/internal/common"
)

// Типы задач
const (
	TaskWelcome              = "welcome"
	TaskPurchaseConfirmation = "purchase_confirmation"
)

// Task - сообщение в очереди уведомлений (JSON).
type Task struct {
	Type       string          `json:"type"`
	Email      string          `json:"email"`
	Name       string          `json:"name"`
	WeaponName string          `json:"weapon_name,omitempty"`
	Quantity   int             `json:"quantity,omitempty"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Validate проверяет, что задачу можно отрисовать в письмо.
func (t *Task) Validate() error {
	if t.Email == "" || !strings.Contains(t.Email, "@") {
		return common.Invalid("некорректный email %q", t.Email)
	}
	switch t.Type {
	case TaskWelcome:
		return nil
	case TaskPurchaseConfirmation:
		if t.WeaponName == "" || t.Quantity <= 0 {
			return common.Invalid("неполная задача о покупке")
		}
		return nil
	default:
		return common.Invalid("неизвестный тип задачи %q", t.Type)
	}
}

// Email - готовое к отправке письмо.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Render превращает задачу в письмо.
func Render(t *Task) (*Email, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	switch t.Type {
	case TaskWelcome:
		return &Email{
			To:      t.Email,
			Subject: "Добро пожаловать в COD Inventory! 🎮",
			Body:    fmt.Sprintf(welcomeBody, t.Name),
		}, nil
	default:
		return &Email{
			To:      t.Email,
			Subject: fmt.Sprintf("Покупка подтверждена: %s", t.WeaponName),
			Body: fmt.Sprintf(purchaseBody,
				t.Name, t.WeaponName, common.FormatQuantity(t.Quantity), common.FormatCoins(t.TotalCost)),
		}, nil
	}
}

const welcomeBody = `Привет, %s!

Твой аккаунт в COD Inventory создан. 🎯

Что можно делать:
• собирать оружие из каталога;
• тратить стартовые монеты на покупки;
• смотреть инвентарь в Telegram-боте (/start, /inventory).

Удачи на поле боя!
Команда COD Inventory
`

const purchaseBody = `Привет, %s!

Покупка подтверждена. 🎉

• Оружие: %s
• Количество: %s
• Стоимость: %s

Оружие уже в инвентаре — его видно через API и Telegram-бота.

Команда COD Inventory
`
