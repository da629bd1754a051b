// Package inventory - service.go содержит транзакцию покупки и удаление.
package inventory

import (
	"context"
	"math"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cod-inventory/internal/common"
	"serotonyl.ru/cod-inventory/internal/features/catalog"
)

// Tx - шаги покупки, выполняемые внутри одной транзакции.
type Tx interface {
	GetWeapon(ctx context.Context, weaponID int64) (*catalog.Weapon, error)
	LockPlayer(ctx context.Context, playerID int64) (*Buyer, error)
	UpsertEntry(ctx context.Context, playerID, weaponID int64, quantity int) (int, error)
	DebitBalance(ctx context.Context, playerID int64, amount decimal.Decimal) (decimal.Decimal, error)
}

// Store - хранилище инвентаря.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	ListByPlayer(ctx context.Context, playerID int64) ([]*Entry, error)
	Remove(ctx context.Context, playerID, weaponID int64) (string, error)
}

// Notifier отправляет письмо о покупке. Не блокирует и не возвращает ошибок.
type Notifier interface {
	PurchaseConfirmed(email, name, weaponName string, quantity int, totalCost decimal.Decimal)
}

// Service управляет инвентарём.
type Service struct {
	store    Store
	notifier Notifier
}

// NewService создаёт сервис инвентаря. notifier может быть nil.
func NewService(store Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// Purchase покупает quantity единиц оружия для игрока.
//
// Алгоритм (всё в одной транзакции):
// 1. Читаем оружие, считаем total = price * quantity.
// 2. Блокируем строку игрока и сверяем баланс. Не хватает - InsufficientFundsError, без изменений.
// 3. Создаём строку инвентаря или прибавляем quantity.
// 4. Списываем total.
//
// Письмо о покупке уходит после commit и на результат не влияет.
func (s *Service) Purchase(ctx context.Context, playerID, weaponID int64, quantity int) (*PurchaseResult, error) {
	if quantity <= 0 {
		return nil, common.Invalid("quantity должен быть положительным, получено %d", quantity)
	}
	if quantity > math.MaxInt32 {
		return nil, common.Invalid("quantity не больше %d, получено %d", math.MaxInt32, quantity)
	}

	var (
		result *PurchaseResult
		buyer  *Buyer
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		weapon, err := tx.GetWeapon(ctx, weaponID)
		if err != nil {
			return err
		}
		total := weapon.Price.Mul(decimal.NewFromInt(int64(quantity)))

		buyer, err = tx.LockPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		if buyer.Coins.LessThan(total) {
			return &common.InsufficientFundsError{Required: total, Available: buyer.Coins}
		}

		owned, err := tx.UpsertEntry(ctx, playerID, weaponID, quantity)
		if err != nil {
			return err
		}
		remaining, err := tx.DebitBalance(ctx, playerID, total)
		if err != nil {
			return err
		}

		result = &PurchaseResult{
			Weapon:         weapon,
			Quantity:       quantity,
			TotalQuantity:  owned,
			TotalCost:      total,
			RemainingCoins: remaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"player_id": playerID,
		"weapon_id": weaponID,
		"quantity":  quantity,
		"cost":      result.TotalCost.String(),
		"remaining": result.RemainingCoins.String(),
	}).Info("Покупка оружия")

	if s.notifier != nil && buyer.Email != "" {
		name := buyer.FirstName
		if name == "" {
			name = buyer.Username
		}
		s.notifier.PurchaseConfirmed(buyer.Email, name, result.Weapon.Name, quantity, result.TotalCost)
	}

	return result, nil
}

// Remove удаляет оружие из инвентаря целиком, без возврата монет.
// Повторный вызов вернёт common.ErrNotFound.
func (s *Service) Remove(ctx context.Context, playerID, weaponID int64) (string, error) {
	name, err := s.store.Remove(ctx, playerID, weaponID)
	if err != nil {
		return "", err
	}

	log.WithFields(log.Fields{
		"player_id": playerID,
		"weapon_id": weaponID,
	}).Info("Оружие удалено из инвентаря")
	return name, nil
}

// List возвращает инвентарь игрока.
func (s *Service) List(ctx context.Context, playerID int64) ([]*Entry, error) {
	return s.store.ListByPlayer(ctx, playerID)
}
