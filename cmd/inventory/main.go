// Package main - точка входа сервиса инвентаря.
// Загружает конфигурацию, инициализирует приложение и запускает HTTP API,
// бота, очередь уведомлений и cron. Graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cod-inventory/internal/app"
	"serotonyl.ru/cod-inventory/internal/config"
)

func main() {
	// Настраиваем логирование
	setupLogging()

	log.Info("=== COD Inventory запускается ===")

	// Загружаем конфигурацию из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}

	// Устанавливаем уровень логирования из конфига
	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("level", cfg.AppLogLevel).Warn("Неизвестный APP_LOG_LEVEL, оставляем debug")
	}

	// Контекст отменяется по Ctrl+C / docker stop
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инициализируем приложение (БД, кеш, очередь, сервисы, API, бот)
	application, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось инициализировать приложение")
	}
	defer application.Close()

	log.Info("=== Сервис готов к работе ===")

	if err := application.Run(ctx); err != nil {
		log.WithError(err).Error("Сервис остановлен с ошибкой")
		application.Close()
		os.Exit(1)
	}

	log.Info("=== Сервис остановлен ===")
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
