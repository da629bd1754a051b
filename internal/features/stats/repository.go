// Package stats считает агрегаты для health-check и ежедневной статистики.
// repository.go - счётчики по таблицам players, weapons, player_weapons.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Totals возвращает размер каталога и число аккаунтов одним запросом.
func (r *Repository) Totals(ctx context.Context) (weapons, players int64, err error) {
	query := `SELECT (SELECT COUNT(*) FROM weapons), (SELECT COUNT(*) FROM players)`
	if err := r.db.QueryRow(ctx, query).Scan(&weapons, &players); err != nil {
		return 0, 0, fmt.Errorf("ошибка подсчёта итогов: %w", err)
	}
	return weapons, players, nil
}

// Daily считает статистику на момент вызова; since - начало текущих суток.
func (r *Repository) Daily(ctx context.Context, since time.Time) (*DailyStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM players),
			(SELECT COUNT(*) FROM players WHERE created_at >= $1),
			(SELECT COUNT(*) FROM weapons),
			(SELECT COUNT(*) FROM player_weapons),
			(SELECT COUNT(*) FROM player_weapons WHERE acquired_at >= $1)
	`
	var s DailyStats
	err := r.db.QueryRow(ctx, query, since).Scan(
		&s.TotalPlayers, &s.NewPlayersToday, &s.TotalWeapons,
		&s.TotalPurchases, &s.PurchasesToday,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта статистики: %w", err)
	}
	return &s, nil
}
