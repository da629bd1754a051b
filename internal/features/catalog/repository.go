// Package catalog - repository.go выполняет операции с таблицей weapons.
package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const weaponColumns = `id, name, weapon_type, damage, weapon_range, accuracy, rarity, price, created_at`

// Repository предоставляет методы для работы с каталогом.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий каталога.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// List возвращает весь каталог: сначала по редкости (common → legendary), затем по имени.
func (r *Repository) List(ctx context.Context) ([]*Weapon, error) {
	query := `
		SELECT ` + weaponColumns + `
		FROM weapons
		ORDER BY CASE rarity
			WHEN 'common' THEN 1
			WHEN 'uncommon' THEN 2
			WHEN 'rare' THEN 3
			WHEN 'epic' THEN 4
			WHEN 'legendary' THEN 5
			ELSE 6 END,
			name, id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения каталога: %w", err)
	}
	defer rows.Close()

	var out []*Weapon
	for rows.Next() {
		var w Weapon
		if err := rows.Scan(
			&w.ID, &w.Name, &w.WeaponType, &w.Damage, &w.Range,
			&w.Accuracy, &w.Rarity, &w.Price, &w.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования оружия: %w", err)
		}
		out = append(out, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения каталога: %w", err)
	}
	return out, nil
}

// Create добавляет оружие в каталог и заполняет ID и created_at.
func (r *Repository) Create(ctx context.Context, w *Weapon) error {
	query := `
		INSERT INTO weapons (name, weapon_type, damage, weapon_range, accuracy, rarity, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		w.Name, w.WeaponType, w.Damage, w.Range, w.Accuracy, w.Rarity, w.Price,
	).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания оружия: %w", err)
	}
	return nil
}

