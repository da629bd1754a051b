// Package inventory ведёт инвентарь игроков: покупку оружия, удаление
// и просмотр. Покупка - единственное место, где списываются монеты.
package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"serotonyl.ru/cod-inventory/internal/features/catalog"
)

// Entry - строка инвентаря: сколько единиц оружия есть у игрока.
// На пару (player_id, weapon_id) всегда не больше одной строки.
type Entry struct {
	ID         int64     `json:"id" db:"id"`
	PlayerID   int64     `json:"-" db:"player_id"`
	WeaponID   int64     `json:"weapon" db:"weapon_id"`
	WeaponName string    `json:"weapon_name" db:"name"`
	Quantity   int       `json:"quantity" db:"quantity"` // Всегда > 0
	AcquiredAt time.Time `json:"acquired_at" db:"acquired_at"`

	// Для ответа бота
	WeaponType string `json:"-" db:"weapon_type"`
	Rarity     string `json:"-" db:"rarity"`
	Damage     int    `json:"-" db:"damage"`
	Range      int    `json:"-" db:"weapon_range"`
}

// Buyer - заблокированная на время покупки строка игрока.
type Buyer struct {
	ID        int64
	Username  string
	Email     string
	FirstName string
	Coins     decimal.Decimal
}

// PurchaseResult - итог успешной покупки.
type PurchaseResult struct {
	Weapon         *catalog.Weapon
	Quantity       int             // Сколько куплено сейчас
	TotalQuantity  int             // Сколько стало в инвентаре
	TotalCost      decimal.Decimal // price * quantity
	RemainingCoins decimal.Decimal // Баланс после списания
}
