// Package auth - service.go содержит выпуск токенов, refresh-сессии
// и блокировку входа после серии неудачных попыток.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cod-inventory/internal/common"
)

// Store - то, что сервису нужно от хранилища.
type Store interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	LogAttempt(ctx context.Context, username string, success bool) error
	CountFailedAttempts(ctx context.Context, username string, since time.Time) (int, error)
}

// Service управляет сессиями и токенами.
type Service struct {
	store       Store
	issuer      *TokenIssuer
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewService создаёт сервис авторизации.
func NewService(store Store, issuer *TokenIssuer, maxAttempts int, window time.Duration) *Service {
	return &Service{
		store:       store,
		issuer:      issuer,
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// CheckLockout возвращает ErrTooManyAttempts, если по username
// набралось maxAttempts неудачных попыток за окно.
func (s *Service) CheckLockout(ctx context.Context, username string) error {
	failed, err := s.store.CountFailedAttempts(ctx, username, s.now().Add(-s.window))
	if err != nil {
		return err
	}
	if failed >= s.maxAttempts {
		return common.ErrTooManyAttempts
	}
	return nil
}

// RecordAttempt записывает результат попытки входа.
// Ошибка записи не должна ломать сам вход - только логируем.
func (s *Service) RecordAttempt(ctx context.Context, username string, success bool) {
	if err := s.store.LogAttempt(ctx, username, success); err != nil {
		log.WithError(err).WithField("username", username).Warn("Не удалось записать попытку входа")
	}
}

// StartSession создаёт refresh-сессию и выпускает пару токенов.
func (s *Service) StartSession(ctx context.Context, playerID int64) (*TokenPair, error) {
	session := &Session{
		ID:        uuid.New(),
		PlayerID:  playerID,
		ExpiresAt: s.now().Add(s.issuer.RefreshTTL()),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	pair, err := s.issuer.IssuePair(playerID, session.ID)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"player_id":  playerID,
		"session_id": session.ID,
	}).Debug("Сессия создана")
	return pair, nil
}

// Refresh проверяет refresh-токен и живую сессию, выпускает новый access-токен.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	playerID, sessionID, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		return "", err
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", fmt.Errorf("сессия не найдена: %w", common.ErrUnauthorized)
		}
		return "", err
	}
	if session.PlayerID != playerID || session.Expired(s.now()) {
		return "", fmt.Errorf("сессия недействительна: %w", common.ErrUnauthorized)
	}

	return s.issuer.IssueAccess(playerID)
}

// Authenticate проверяет access-токен и возвращает ID игрока.
func (s *Service) Authenticate(accessToken string) (int64, error) {
	return s.issuer.ParseAccess(accessToken)
}

// CleanupExpiredSessions удаляет истёкшие сессии. Вызывается cron-задачей.
func (s *Service) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx, s.now())
}
