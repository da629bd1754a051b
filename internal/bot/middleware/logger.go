// Package middleware содержит промежуточные обработчики для логирования,
// восстановления после паники и rate-limiting.
package middleware

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

const maxLoggedRunes = 50

// LogMessage логирует входящее сообщение.
// Записывает: user_id, chat_id, username, текст (первые 50 символов).
func LogMessage(message *tgbotapi.Message) {
	if message == nil || message.Chat == nil {
		return
	}

	fields := log.Fields{
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
		"text":      Truncate(message.Text, maxLoggedRunes),
	}
	if message.From != nil {
		fields["user_id"] = message.From.ID
		fields["username"] = message.From.UserName
	}

	log.WithFields(fields).Debug("Входящее сообщение")
}

// Truncate обрезает строку до n символов (не байт), добавляя "...".
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
