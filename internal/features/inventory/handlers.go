// Package inventory - handlers.go обрабатывает команду бота /inventory.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cod-inventory/internal/common"
	"serotonyl.ru/cod-inventory/internal/features/catalog"
	"serotonyl.ru/cod-inventory/internal/features/players"
)

// PlayerLookup находит аккаунт по Telegram-чату.
type PlayerLookup interface {
	GetByChatID(ctx context.Context, chatID int64) (*players.Player, error)
}

// Handler обрабатывает команду инвентаря.
type Handler struct {
	service *Service
	players PlayerLookup
	bot     players.Sender
}

// NewHandler создаёт обработчик инвентаря.
func NewHandler(service *Service, lookup PlayerLookup, bot players.Sender) *Handler {
	return &Handler{service: service, players: lookup, bot: bot}
}

// HandleInventory - /inventory: список оружия игрока.
func (h *Handler) HandleInventory(ctx context.Context, chatID int64) {
	player, err := h.players.GetByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			h.sendMessage(chatID, players.NotLinkedText)
			return
		}
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка получения аккаунта")
		h.sendMessage(chatID, "❌ Ошибка получения инвентаря")
		return
	}

	entries, err := h.service.List(ctx, player.ID)
	if err != nil {
		log.WithError(err).WithField("player_id", player.ID).Error("Ошибка получения инвентаря")
		h.sendMessage(chatID, "❌ Ошибка получения инвентаря")
		return
	}

	h.sendMessage(chatID, InventoryText(player, entries))
}

// InventoryText формирует ответ на /inventory.
func InventoryText(p *players.Player, entries []*Entry) string {
	if len(entries) == 0 {
		return fmt.Sprintf(
			"Инвентарь пуст! 😔\n\nУ тебя %s на покупку оружия.\nКупить оружие можно на сайте.",
			common.FormatCoins(p.Coins),
		)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎯 Инвентарь %s\n", p.Username)
	fmt.Fprintf(&b, "💰 Баланс: %s\n", common.FormatCoins(p.Coins))
	fmt.Fprintf(&b, "📊 Уровень: %d\n\n", p.Level)
	b.WriteString("🔫 Оружие:\n")
	for _, e := range entries {
		w := catalog.Weapon{WeaponType: e.WeaponType}
		fmt.Fprintf(&b, "• %s (%s)\n", e.WeaponName, w.TypeLabel())
		fmt.Fprintf(&b, "  Урон: %d | Дальность: %d\n", e.Damage, e.Range)
		fmt.Fprintf(&b, "  Редкость: %s | Кол-во: %s\n\n", e.Rarity, common.FormatQuantity(e.Quantity))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
