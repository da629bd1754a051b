// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ночная очистка истёкших сессий
// и ежедневная статистика. Обе задачи независимы и идемпотентны.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cod-inventory/internal/features/stats"
)

// SessionCleaner удаляет истёкшие refresh-сессии.
type SessionCleaner interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// StatsReporter считает статистику за сутки.
type StatsReporter interface {
	Daily(ctx context.Context) (*stats.DailyStats, error)
}

// Schedule - cron-выражения задач (5 полей, UTC).
type Schedule struct {
	SessionCleanup string
	DailyStats     string
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	sessions SessionCleaner
	stats    StatsReporter
	schedule Schedule
}

// NewScheduler создаёт планировщик задач в UTC.
func NewScheduler(sessions SessionCleaner, reporter StatsReporter, schedule Schedule) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		sessions: sessions,
		stats:    reporter,
		schedule: schedule,
	}
}

// Start регистрирует задачи и запускает планировщик.
// Некорректное расписание - ошибка старта, а не тихий пропуск задачи.
func (s *Scheduler) Start(ctx context.Context) error {
	// Очистка сессий (по умолчанию 02:00 UTC)
	if _, err := s.cron.AddFunc(s.schedule.SessionCleanup, func() {
		s.CleanupSessions(ctx)
	}); err != nil {
		return fmt.Errorf("расписание очистки сессий %q: %w", s.schedule.SessionCleanup, err)
	}

	// Статистика (по умолчанию 23:55 UTC)
	if _, err := s.cron.AddFunc(s.schedule.DailyStats, func() {
		s.ReportDailyStats(ctx)
	}); err != nil {
		return fmt.Errorf("расписание статистики %q: %w", s.schedule.DailyStats, err)
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"session_cleanup": s.schedule.SessionCleanup,
		"daily_stats":     s.schedule.DailyStats,
	}).Info("Планировщик задач запущен (UTC)")
	return nil
}

// CleanupSessions - задача очистки истёкших сессий.
func (s *Scheduler) CleanupSessions(ctx context.Context) int64 {
	log.Info("[CRON] Очистка истёкших сессий")
	deleted, err := s.sessions.CleanupExpiredSessions(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка очистки сессий")
		return 0
	}
	log.WithField("deleted", deleted).Info("[CRON] Истёкшие сессии удалены")
	return deleted
}

// ReportDailyStats - задача ежедневной статистики.
func (s *Scheduler) ReportDailyStats(ctx context.Context) *stats.DailyStats {
	log.Info("[CRON] Ежедневная статистика")
	daily, err := s.stats.Daily(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка расчёта статистики")
		return nil
	}
	return daily
}

// Stop останавливает планировщик и ждёт выполняющиеся задачи.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
