// Package players управляет аккаунтами игроков: регистрацией, входом,
// профилем и привязкой Telegram-чата.
// models.go описывает структуры данных таблицы players.
package players

import (
	"time"

	"github.com/shopspring/decimal"
)

// Player - аккаунт игрока.
// Баланс меняется только внутри транзакции покупки (см. inventory).
type Player struct {
	ID               int64           `json:"id" db:"id"`
	Username         string          `json:"username" db:"username"` // Уникальный логин
	Email            string          `json:"email" db:"email"`       // Может быть пустым
	PasswordHash     string          `json:"-" db:"password_hash"`   // Пусто у аккаунтов, созданных ботом
	FirstName        string          `json:"first_name" db:"first_name"`
	LastName         string          `json:"last_name" db:"last_name"`
	TelegramUsername string          `json:"telegram_username" db:"telegram_username"`
	TelegramChatID   *int64          `json:"telegram_chat_id" db:"telegram_chat_id"` // Уникален, если задан
	Level            int             `json:"level" db:"level"`
	Coins            decimal.Decimal `json:"coins" db:"balance"` // Всегда >= 0
	IsStaff          bool            `json:"is_staff" db:"is_staff"`
	WeaponCount      int64           `json:"weapon_count" db:"-"` // Число строк инвентаря
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"-" db:"updated_at"`
}

// HasPassword - можно ли войти в аккаунт по паролю через HTTP.
func (p *Player) HasPassword() bool {
	return p.PasswordHash != ""
}

// DisplayName возвращает имя для писем и ответов бота.
func (p *Player) DisplayName() string {
	if p.FirstName != "" {
		return p.FirstName
	}
	return p.Username
}

// ChatIdentity - данные Telegram, по которым ищется или создаётся аккаунт.
type ChatIdentity struct {
	ChatID    int64  // ID приватного чата с ботом
	UserID    int64  // Telegram user ID
	Username  string // @username без @, может быть пустым
	FirstName string
	LastName  string
}

// LinkName - имя, по которому аккаунт ищется среди telegram_username:
// @username, а если его нет - имя.
func (c ChatIdentity) LinkName() string {
	if c.Username != "" {
		return c.Username
	}
	return c.FirstName
}

// LinkOutcome - какая ветка привязки сработала.
type LinkOutcome int

const (
	// LinkExisting - чат уже был привязан
	LinkExisting LinkOutcome = iota
	// LinkAttached - найден аккаунт по telegram_username, чат привязан к нему
	LinkAttached
	// LinkCreated - создан новый аккаунт
	LinkCreated
)

func (o LinkOutcome) String() string {
	switch o {
	case LinkExisting:
		return "existing"
	case LinkAttached:
		return "attached"
	case LinkCreated:
		return "created"
	default:
		return "unknown"
	}
}

// RegisterInput - данные регистрации через HTTP.
// chat_id здесь не принимается: чат привязывает только /start из самого чата.
type RegisterInput struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	PasswordConfirm  string `json:"password_confirm"`
	TelegramUsername string `json:"telegram_username"`
}

// Defaults - стартовые значения нового аккаунта.
type Defaults struct {
	Balance decimal.Decimal
	Level   int
}
