// Package auth - repository.go работает с таблицами sessions и login_attempts.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/cod-inventory/internal/common"
	"serotonyl.ru/cod-inventory/internal/db/postgres"
)

// Repository работает с таблицами авторизации.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateSession создаёт новую refresh-сессию.
func (r *Repository) CreateSession(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (id, player_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, session.ID, session.PlayerID, session.ExpiresAt).Scan(&session.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return nil
}

// GetSession возвращает сессию по ID (в том числе истёкшую - проверяет сервис).
func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	query := `SELECT id, player_id, created_at, expires_at FROM sessions WHERE id = $1`
	var s Session
	err := r.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.PlayerID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.NotFound("сессия %s", id)
		}
		return nil, fmt.Errorf("ошибка чтения сессии: %w", err)
	}
	return &s, nil
}

// DeleteExpiredSessions удаляет все сессии, истёкшие к моменту now.
// Возвращает количество удалённых строк.
func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления сессий: %w", err)
	}
	return tag.RowsAffected(), nil
}

// LogAttempt записывает попытку входа.
func (r *Repository) LogAttempt(ctx context.Context, username string, success bool) error {
	query := `INSERT INTO login_attempts (username, success) VALUES (LOWER($1), $2)`
	if _, err := r.db.Exec(ctx, query, username, success); err != nil {
		return fmt.Errorf("ошибка записи попытки входа: %w", err)
	}
	return nil
}

// CountFailedAttempts возвращает количество неудачных попыток с момента since.
func (r *Repository) CountFailedAttempts(ctx context.Context, username string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE username = LOWER($1) AND success = FALSE AND attempt_time >= $2
	`
	var count int
	if err := r.db.QueryRow(ctx, query, username, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта попыток входа: %w", err)
	}
	return count, nil
}
