// Package stats - service.go: health-check и ежедневная статистика.
package stats

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cod-inventory/internal/common"
)

// DailyStats - снимок статистики за сутки (UTC).
type DailyStats struct {
	Date            string `json:"date"`
	TotalPlayers    int64  `json:"total_players"`
	NewPlayersToday int64  `json:"new_players_today"`
	TotalWeapons    int64  `json:"total_weapons"`
	TotalPurchases  int64  `json:"total_purchases"`
	PurchasesToday  int64  `json:"purchases_today"`
}

// Health - ответ GET /.
type Health struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	TotalWeapons int64  `json:"total_weapons"`
	TotalPlayers int64  `json:"total_players"`
}

// Статусы health-check
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

type Store interface {
	Totals(ctx context.Context) (weapons, players int64, err error)
	Daily(ctx context.Context, since time.Time) (*DailyStats, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Health возвращает состояние сервиса. При ошибке хранилища - degraded и сама ошибка.
func (s *Service) Health(ctx context.Context) (*Health, error) {
	weapons, players, err := s.store.Totals(ctx)
	if err != nil {
		return &Health{
			Status:  StatusDegraded,
			Message: "База данных недоступна",
		}, err
	}
	return &Health{
		Status:       StatusHealthy,
		Message:      "COD Inventory API работает",
		TotalWeapons: weapons,
		TotalPlayers: players,
	}, nil
}

// Daily считает статистику за текущие сутки (UTC) и пишет её в лог.
func (s *Service) Daily(ctx context.Context) (*DailyStats, error) {
	now := s.now()
	stats, err := s.store.Daily(ctx, common.StartOfDayUTC(now))
	if err != nil {
		return nil, err
	}
	stats.Date = common.FormatDate(now)

	log.WithFields(log.Fields{
		"date":              stats.Date,
		"total_players":     stats.TotalPlayers,
		"new_players_today": stats.NewPlayersToday,
		"total_weapons":     stats.TotalWeapons,
		"total_purchases":   stats.TotalPurchases,
		"purchases_today":   stats.PurchasesToday,
	}).Info("Ежедневная статистика")
	return stats, nil
}
