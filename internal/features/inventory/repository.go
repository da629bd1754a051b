// Package inventory - repository.go выполняет операции с player_weapons
// и транзакцию покупки.
package inventory

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"serotonyl.ru/cod-inventory/internal/common"
	"serotonyl.ru/cod-inventory/internal/db/postgres"
	"serotonyl.ru/cod-inventory/internal/features/catalog"
)

// Repository работает с инвентарём в Postgres.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий инвентаря.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// WithinTx выполняет fn в одной транзакции Postgres.
// Любая ошибка из fn откатывает всё, что fn успела записать.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
}

// ListByPlayer возвращает инвентарь игрока в порядке получения.
func (r *Repository) ListByPlayer(ctx context.Context, playerID int64) ([]*Entry, error) {
	query := `
		SELECT pw.id, pw.player_id, pw.weapon_id, w.name, pw.quantity, pw.acquired_at,
		       w.weapon_type, w.rarity, w.damage, w.weapon_range
		FROM player_weapons pw
		JOIN weapons w ON w.id = pw.weapon_id
		WHERE pw.player_id = $1
		ORDER BY pw.acquired_at, pw.id
	`
	rows, err := r.db.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения инвентаря: %w", err)
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.PlayerID, &e.WeaponID, &e.WeaponName, &e.Quantity, &e.AcquiredAt,
			&e.WeaponType, &e.Rarity, &e.Damage, &e.Range,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования инвентаря: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения инвентаря: %w", err)
	}
	return entries, nil
}

// Remove удаляет строку инвентаря и возвращает название оружия.
// Монеты не возвращаются. Нет строки -> common.ErrNotFound.
func (r *Repository) Remove(ctx context.Context, playerID, weaponID int64) (string, error) {
	query := `
		DELETE FROM player_weapons pw
		USING weapons w
		WHERE w.id = pw.weapon_id AND pw.player_id = $1 AND pw.weapon_id = $2
		RETURNING w.name
	`
	var name string
	if err := r.db.QueryRow(ctx, query, playerID, weaponID).Scan(&name); err != nil {
		if postgres.IsNoRows(err) {
			return "", common.NotFound("оружие (id=%d) в инвентаре", weaponID)
		}
		return "", fmt.Errorf("ошибка удаления из инвентаря: %w", err)
	}
	return name, nil
}

// pgTx - шаги покупки внутри открытой транзакции.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetWeapon(ctx context.Context, weaponID int64) (*catalog.Weapon, error) {
	query := `
		SELECT id, name, weapon_type, damage, weapon_range, accuracy, rarity, price, created_at
		FROM weapons
		WHERE id = $1
	`
	var w catalog.Weapon
	err := t.tx.QueryRow(ctx, query, weaponID).Scan(
		&w.ID, &w.Name, &w.WeaponType, &w.Damage, &w.Range,
		&w.Accuracy, &w.Rarity, &w.Price, &w.CreatedAt,
	)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.NotFound("оружие (id=%d)", weaponID)
		}
		return nil, fmt.Errorf("ошибка чтения оружия: %w", err)
	}
	return &w, nil
}

// LockPlayer блокирует строку игрока (FOR UPDATE) до конца транзакции:
// параллельные покупки того же игрока ждут здесь и видят свежий баланс.
func (t *pgTx) LockPlayer(ctx context.Context, playerID int64) (*Buyer, error) {
	query := `
		SELECT id, username, email, first_name, balance
		FROM players
		WHERE id = $1
		FOR UPDATE
	`
	var b Buyer
	err := t.tx.QueryRow(ctx, query, playerID).Scan(&b.ID, &b.Username, &b.Email, &b.FirstName, &b.Coins)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.NotFound("аккаунт (id=%d)", playerID)
		}
		return nil, fmt.Errorf("ошибка блокировки игрока: %w", err)
	}
	return &b, nil
}

// UpsertEntry создаёт строку инвентаря или прибавляет quantity к существующей.
func (t *pgTx) UpsertEntry(ctx context.Context, playerID, weaponID int64, quantity int) (int, error) {
	query := `
		INSERT INTO player_weapons (player_id, weapon_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id, weapon_id) DO UPDATE
		SET quantity = player_weapons.quantity + EXCLUDED.quantity
		RETURNING quantity
	`
	var total int
	if err := t.tx.QueryRow(ctx, query, playerID, weaponID, quantity).Scan(&total); err != nil {
		if postgres.IsOutOfRange(err) {
			return 0, common.Invalid("количество оружия превысит %d", math.MaxInt32)
		}
		return 0, fmt.Errorf("ошибка обновления инвентаря: %w", err)
	}
	return total, nil
}

// DebitBalance списывает amount и возвращает новый баланс.
func (t *pgTx) DebitBalance(ctx context.Context, playerID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE players
		SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1
		RETURNING balance
	`
	var balance decimal.Decimal
	if err := t.tx.QueryRow(ctx, query, playerID, amount).Scan(&balance); err != nil {
		return decimal.Zero, fmt.Errorf("ошибка списания монет: %w", err)
	}
	return balance, nil
}
