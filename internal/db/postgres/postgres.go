// Package postgres управляет подключением к базе данных PostgreSQL.
// Используется пул соединений pgxpool: HTTP-обработчики, бот и cron-задачи
// работают с одним пулом из разных горутин.
//
// Атомарность покупок и привязки аккаунтов обеспечивает сама БД
// (транзакции, FOR UPDATE, уникальные индексы), а не код сервиса.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cod-inventory/internal/config"
)

// NewPool создаёт новый пул соединений к PostgreSQL.
//
// Параметры:
//   - ctx: контекст для отмены операции
//   - cfg: конфигурация с параметрами подключения
//
// Возвращает:
//   - *pgxpool.Pool: готовый к использованию пул
//   - error: ошибка, если подключение не удалось
//
// Пример:
//
//	pool, err := postgres.NewPool(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	// Парсим строку подключения и настраиваем пул
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}

	// Настройки пула соединений
	poolConfig.MaxConns = cfg.DBMaxConns             // Максимум соединений
	poolConfig.MinConns = cfg.DBMinConns             // Минимум (держать открытыми)
	poolConfig.MaxConnLifetime = 1 * time.Hour       // Время жизни одного соединения
	poolConfig.MaxConnIdleTime = 30 * time.Minute    // Время простоя до закрытия
	poolConfig.HealthCheckPeriod = 1 * time.Minute   // Проверка здоровья соединений

	// Создаём пул с заданной конфигурацией
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула: %w", err)
	}

	// Проверяем, что база доступна
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("база данных недоступна: %w", err)
	}

	log.Info("Подключение к PostgreSQL установлено")
	return pool, nil
}

// Migration - одна SQL-миграция с номером версии.
type Migration struct {
	Version int
	SQL     string
}

// RunMigrations создаёт таблицу schema_migrations и применяет миграции
// последовательно по номеру версии. Уже применённые пропускаются.
//
// Параметры:
//   - ctx: контекст
//   - pool: пул соединений
//   - migrations: миграции в порядке применения
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrations []Migration) error {
	// Миграции выполняем вручную (без зависимости golang-migrate,
	// чтобы упростить сборку).
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("ошибка создания таблицы миграций: %w", err)
	}

	for _, m := range migrations {
		if err := ExecMigrationSQL(ctx, pool, m.Version, m.SQL); err != nil {
			return fmt.Errorf("миграция %d: %w", m.Version, err)
		}
		log.WithField("version", m.Version).Debug("Миграция проверена")
	}

	log.WithField("count", len(migrations)).Info("Миграции применены")
	return nil
}
