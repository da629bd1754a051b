// Package bot содержит главный модуль бота - запуск, остановку и маршрутизацию команд.
// bot.go получает обновления long polling и раздаёт команды обработчикам.
package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cod-inventory/internal/bot/filters"
	"serotonyl.ru/cod-inventory/internal/bot/middleware"
	"serotonyl.ru/cod-inventory/internal/config"
	"serotonyl.ru/cod-inventory/internal/features/inventory"
	"serotonyl.ru/cod-inventory/internal/features/players"
)

// HelpText - ответ на /help.
const HelpText = `🎮 Команды COD Inventory:

/start — регистрация и привязка Telegram
/inventory — твой инвентарь
/profile — профиль игрока
/help — эта справка

🌐 На сайте можно:
• покупать оружие
• управлять инвентарём
• смотреть весь каталог

Команды понимают префиксы /, ! и .`

// Bot - главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter

	playerHandler    *players.Handler
	inventoryHandler *inventory.Handler

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	playerHandler *players.Handler,
	inventoryHandler *inventory.Handler,
	chatFilter *filters.ChatFilter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:              api,
		cfg:              cfg,
		chatFilter:       chatFilter,
		rateLimiter:      middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		playerHandler:    playerHandler,
		inventoryHandler: inventoryHandler,
		parser:           NewCommandParser(),
		inflight:         make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram и блокируется до отмены ctx.
func (b *Bot) Start(ctx context.Context) {
	defer b.rateLimiter.Close()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"bot":          b.api.Self.UserName,
		"max_inflight": cap(b.inflight),
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.drain()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				b.drain()
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// drain ждёт, пока завершатся обработчики, занявшие слоты inflight.
func (b *Bot) drain() {
	for i := 0; i < cap(b.inflight); i++ {
		b.inflight <- struct{}{}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic(update.UpdateID)

	if update.Message == nil || update.Message.Text == "" {
		return
	}
	message := update.Message

	middleware.LogMessage(message)

	// Только личные сообщения
	if !b.chatFilter.CheckAccess(message) {
		return
	}

	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		return
	}
	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("parsed command")

	b.routeCommand(ctx, message.Chat.ID, message.From, cmd)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID int64, from *tgbotapi.User, cmd string) {
	switch cmd {
	case "start":
		b.playerHandler.HandleStart(ctx, chatID, from)

	case "inventory":
		b.inventoryHandler.HandleInventory(ctx, chatID)

	case "profile":
		b.playerHandler.HandleProfile(ctx, chatID)

	case "help":
		b.sendMessage(chatID, HelpText)

	default:
		b.sendMessage(chatID, "Не знаю такую команду. Список команд: /help")
	}
}

// sendMessage - утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// CommandParser парсит команды с префиксами /, ! и .
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"/", "!", "."},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
// Суффикс @имя_бота (/start@cod_bot) отбрасывается.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	if command == "" {
		return "", nil, false
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
