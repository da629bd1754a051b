// Package auth отвечает за учётные данные игроков: хеши паролей (Argon2id),
// пары JWT-токенов, refresh-сессии и защиту входа от перебора.
// models.go описывает структуры сессий и попыток входа.
package auth

import (
	"time"

	"github.com/google/uuid"
)

// Session - refresh-сессия игрока. ID сессии зашит в refresh-токен (jti).
// Истёкшие сессии удаляет ночная cron-задача.
type Session struct {
	ID        uuid.UUID `db:"id"`
	PlayerID  int64     `db:"player_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// Expired сообщает, истекла ли сессия к моменту now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// LoginAttempt - попытка входа (для защиты от brute-force).
type LoginAttempt struct {
	ID          int64     `db:"id"`
	Username    string    `db:"username"`
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}

// TokenPair - то, что получает клиент после регистрации или входа.
type TokenPair struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

// Типы токенов (claim token_type)
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)
