// Package app инициализирует все компоненты приложения.
// app.go - точка сборки: создаёт БД-пул, кеш, очередь, репозитории, сервисы,
// HTTP API и (если задан токен) Telegram-бота.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cod-inventory/internal/api"
	"serotonyl.ru/cod-inventory/internal/bot"
	"serotonyl.ru/cod-inventory/internal/bot/filters"
	"serotonyl.ru/cod-inventory/internal/config"
	"serotonyl.ru/cod-inventory/internal/db/postgres"
	"serotonyl.ru/cod-inventory/internal/features/auth"
	"serotonyl.ru/cod-inventory/internal/features/catalog"
	"serotonyl.ru/cod-inventory/internal/features/inventory"
	"serotonyl.ru/cod-inventory/internal/features/players"
	"serotonyl.ru/cod-inventory/internal/features/stats"
	"serotonyl.ru/cod-inventory/internal/jobs"
	"serotonyl.ru/cod-inventory/internal/notify"
)

const shutdownTimeout = 15 * time.Second

// App содержит все компоненты приложения.
type App struct {
	cfg *config.Config

	DB    *pgxpool.Pool
	Redis *redis.Client // nil без REDIS_ADDR

	Server     *api.Server
	Bot        *bot.Bot // nil без TELEGRAM_BOT_TOKEN
	Scheduler  *jobs.Scheduler
	Dispatcher *notify.Dispatcher

	publisher *notify.AMQPPublisher // nil без RABBITMQ_URL
	worker    *notify.Worker
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен - компоненты зависят друг от друга.
// При ошибке уже открытые соединения закрываются.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// === 1. База данных ===
	a.DB, err = postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	if err = Migrate(ctx, a.DB); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Кеш каталога (опционально) ===
	var cache catalog.Cache
	if cfg.RedisAddr != "" {
		a.Redis, err = catalog.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
		}
		cache = catalog.NewRedisCache(a.Redis, cfg.CatalogCacheTTL)
		log.WithField("addr", cfg.RedisAddr).Info("Кеш каталога: Redis")
	} else {
		log.Info("REDIS_ADDR не задан, каталог читается из БД напрямую")
	}

	// === 3. Уведомления ===
	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	}

	var publisher notify.Publisher
	if cfg.RabbitURL != "" {
		a.publisher, err = notify.NewAMQPPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к RabbitMQ: %w", err)
		}
		a.worker, err = notify.NewWorker(notify.WorkerConfig{
			URL:      cfg.RabbitURL,
			Queue:    cfg.RabbitQueue,
			Prefetch: cfg.RabbitPrefetch,
			Workers:  cfg.RabbitWorkers,
		}, mailer)
		if err != nil {
			return nil, fmt.Errorf("ошибка запуска обработчика очереди: %w", err)
		}
		publisher = a.publisher
		log.WithField("queue", cfg.RabbitQueue).Info("Уведомления: RabbitMQ")
	} else {
		log.Info("RABBITMQ_URL не задан, письма отправляются из процесса")
	}
	a.Dispatcher = notify.NewDispatcher(publisher, mailer)

	// === 4. Репозитории ===
	playerRepo := players.NewRepository(a.DB)
	catalogRepo := catalog.NewRepository(a.DB)
	inventoryRepo := inventory.NewRepository(a.DB)
	authRepo := auth.NewRepository(a.DB)
	statsRepo := stats.NewRepository(a.DB)

	// === 5. Сервисы ===
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	authService := auth.NewService(authRepo, issuer, cfg.LoginMaxAttempts, cfg.LoginLockoutWindow)
	playerService := players.NewService(playerRepo, authService, a.Dispatcher, players.Defaults{
		Balance: decimal.NewFromFloat(cfg.EconomyStartingBalance).Round(2),
		Level:   cfg.EconomyStartingLevel,
	})
	catalogService := catalog.NewService(catalogRepo, cache)
	inventoryService := inventory.NewService(inventoryRepo, a.Dispatcher)
	statsService := stats.NewService(statsRepo)

	// === 6. HTTP API ===
	a.Server = api.New(api.Deps{
		Health:    statsService,
		Catalog:   catalogService,
		Players:   playerService,
		Inventory: inventoryService,
		Auth:      authService,
	})

	// === 7. Telegram-бот (опционально) ===
	if cfg.BotEnabled() {
		botAPI, apiErr := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if apiErr != nil {
			return nil, fmt.Errorf("ошибка создания Telegram API: %w", apiErr)
		}
		botAPI.Debug = cfg.AppEnv == "development"
		log.Infof("Авторизован как @%s", botAPI.Self.UserName)

		a.Bot = bot.New(
			botAPI, cfg,
			players.NewHandler(playerService, botAPI),
			inventory.NewHandler(inventoryService, playerService, botAPI),
			filters.NewChatFilter(botAPI),
		)
	} else {
		log.Info("TELEGRAM_BOT_TOKEN не задан, бот не запускается")
	}

	// === 8. Планировщик задач ===
	a.Scheduler = jobs.NewScheduler(authService, statsService, jobs.Schedule{
		SessionCleanup: cfg.CronSessionCleanup,
		DailyStats:     cfg.CronDailyStats,
	})

	return a, nil
}

// Run запускает все компоненты и блокируется до отмены ctx или падения HTTP-сервера.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	defer a.Scheduler.Stop()

	var wg sync.WaitGroup

	if a.worker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.worker.Start(ctx); err != nil {
				log.WithError(err).Error("Обработчик очереди остановлен с ошибкой")
			}
		}()
	}

	if a.Bot != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Bot.Start(ctx)
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.Server.Listen(a.cfg.HTTPAddr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("HTTP-сервер: %w", err)
		}
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP-сервер остановлен с ошибкой")
	}

	wg.Wait()
	// письма, поставленные до остановки, должны уйти
	a.Dispatcher.Wait()

	return runErr
}

// Close закрывает соединения. Безопасен для частично собранного App.
func (a *App) Close() {
	if a.worker != nil {
		a.worker.Close()
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.WithError(err).Warn("Ошибка при закрытии Redis")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
