// Package catalog управляет каталогом оружия.
// models.go описывает оружие, его типы и редкость.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Weapon - позиция каталога. С точки зрения покупок неизменяема.
type Weapon struct {
	ID         int64           `json:"id" db:"id"`
	Name       string          `json:"name" db:"name"`
	WeaponType string          `json:"weapon_type" db:"weapon_type"`
	Damage     int             `json:"damage" db:"damage"`
	Range      int             `json:"range" db:"weapon_range"`
	Accuracy   int             `json:"accuracy" db:"accuracy"`
	Rarity     string          `json:"rarity" db:"rarity"`
	Price      decimal.Decimal `json:"price" db:"price"` // Цена в монетах, >= 0
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// Типы оружия
const (
	TypeAssaultRifle  = "assault_rifle"
	TypeSubmachineGun = "submachine_gun"
	TypeSniperRifle   = "sniper_rifle"
	TypeShotgun       = "shotgun"
	TypePistol        = "pistol"
	TypeLauncher      = "launcher"
	TypeMelee         = "melee"
)

// Редкость в порядке возрастания ценности
const (
	RarityCommon    = "common"
	RarityUncommon  = "uncommon"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// WeaponTypes - допустимые типы с подписями для ответов бота.
var WeaponTypes = map[string]string{
	TypeAssaultRifle:  "Штурмовая винтовка",
	TypeSubmachineGun: "Пистолет-пулемёт",
	TypeSniperRifle:   "Снайперская винтовка",
	TypeShotgun:       "Дробовик",
	TypePistol:        "Пистолет",
	TypeLauncher:      "Гранатомёт",
	TypeMelee:         "Холодное оружие",
}

// Rarities - допустимая редкость -> ранг для сортировки каталога.
var Rarities = map[string]int{
	RarityCommon:    1,
	RarityUncommon:  2,
	RarityRare:      3,
	RarityEpic:      4,
	RarityLegendary: 5,
}

// TypeLabel возвращает подпись типа (или сам тип, если он неизвестен).
func (w *Weapon) TypeLabel() string {
	if label, ok := WeaponTypes[w.WeaponType]; ok {
		return label
	}
	return w.WeaponType
}
