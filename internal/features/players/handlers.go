// Package players - handlers.go обрабатывает команды бота /start и /profile.
package players

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cod-inventory/internal/common"
)

// NotLinkedText - ответ, когда чат ещё не привязан к аккаунту.
const NotLinkedText = "Ты ещё не зарегистрирован! Отправь /start, чтобы создать аккаунт."

// Sender - отправка сообщений в Telegram (*tgbotapi.BotAPI).
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Handler обрабатывает команды аккаунта.
type Handler struct {
	service *Service
	bot     Sender
}

// NewHandler создаёт обработчик команд аккаунта.
func NewHandler(service *Service, bot Sender) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleStart - /start: находит, привязывает или создаёт аккаунт.
func (h *Handler) HandleStart(ctx context.Context, chatID int64, from *tgbotapi.User) {
	if from == nil {
		return
	}

	player, outcome, err := h.service.ResolveOrCreateLinkedAccount(ctx, ChatIdentity{
		ChatID:    chatID,
		UserID:    from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	})
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка привязки аккаунта")
		h.sendMessage(chatID, "❌ Не удалось привязать аккаунт, попробуй позже")
		return
	}

	h.sendMessage(chatID, StartText(player, outcome))
}

// HandleProfile - /profile: карточка игрока.
func (h *Handler) HandleProfile(ctx context.Context, chatID int64) {
	player, err := h.service.GetByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			h.sendMessage(chatID, NotLinkedText)
			return
		}
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка получения профиля")
		h.sendMessage(chatID, "❌ Ошибка получения профиля")
		return
	}

	h.sendMessage(chatID, ProfileText(player))
}

// StartText формирует ответ на /start в зависимости от ветки привязки.
func StartText(p *Player, outcome LinkOutcome) string {
	var b strings.Builder
	switch outcome {
	case LinkExisting:
		fmt.Fprintf(&b, "С возвращением, %s! 🎮\n\n", p.Username)
		writeSummary(&b, p)
	case LinkAttached:
		b.WriteString("Аккаунт успешно привязан! 🎉\n\n")
		fmt.Fprintf(&b, "Привет, %s!\n", p.Username)
		writeSummary(&b, p)
	default:
		b.WriteString("Добро пожаловать в COD Inventory! 🎮\n\n")
		b.WriteString("Твой аккаунт создан:\n")
		fmt.Fprintf(&b, "Логин: %s\n", p.Username)
		fmt.Fprintf(&b, "Уровень: %d\n", p.Level)
		fmt.Fprintf(&b, "Стартовый баланс: %s\n\n", common.FormatCoins(p.Coins))
		b.WriteString("Покупай оружие через сайт, а здесь смотри инвентарь: /inventory")
	}
	return b.String()
}

func writeSummary(b *strings.Builder, p *Player) {
	fmt.Fprintf(b, "Уровень: %d\n", p.Level)
	fmt.Fprintf(b, "Баланс: %s\n", common.FormatCoins(p.Coins))
	fmt.Fprintf(b, "Оружия: %d\n\n", p.WeaponCount)
	b.WriteString("Смотри свой арсенал: /inventory")
}

// ProfileText формирует ответ на /profile.
func ProfileText(p *Player) string {
	var b strings.Builder
	b.WriteString("👤 Профиль игрока\n\n")
	fmt.Fprintf(&b, "🎮 Логин: %s\n", p.Username)
	fmt.Fprintf(&b, "📊 Уровень: %d\n", p.Level)
	fmt.Fprintf(&b, "💰 Баланс: %s\n", common.FormatCoins(p.Coins))
	fmt.Fprintf(&b, "🔫 Всего оружия: %d\n", p.WeaponCount)
	fmt.Fprintf(&b, "📅 С нами с: %s\n", common.FormatDate(p.CreatedAt))
	if p.FirstName != "" {
		fmt.Fprintf(&b, "👨‍💼 Имя: %s\n", strings.TrimSpace(p.FirstName+" "+p.LastName))
	}
	return b.String()
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
