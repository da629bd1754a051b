// Package players - repository.go отвечает за операции с таблицей players.
package players

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/cod-inventory/internal/common"
	"serotonyl.ru/cod-inventory/internal/db/postgres"
)

// playerColumns - общий список колонок; weapon_count считается подзапросом.
const playerColumns = `
	p.id, p.username, p.email, p.password_hash, p.first_name, p.last_name,
	p.telegram_username, p.telegram_chat_id, p.level, p.balance, p.is_staff,
	(SELECT COUNT(*) FROM player_weapons pw WHERE pw.player_id = p.id),
	p.created_at, p.updated_at
`

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanPlayer(row pgx.Row) (*Player, error) {
	var p Player
	err := row.Scan(
		&p.ID, &p.Username, &p.Email, &p.PasswordHash, &p.FirstName, &p.LastName,
		&p.TelegramUsername, &p.TelegramChatID, &p.Level, &p.Coins, &p.IsStaff,
		&p.WeaponCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// chatIDConstraint - имя UNIQUE-ограничения на players.telegram_chat_id.
const chatIDConstraint = "players_telegram_chat_id_key"

// Create вставляет аккаунт и заполняет ID и даты.
// Занятый username -> ErrUsernameTaken, занятый telegram_chat_id -> common.ErrConflict.
func (r *Repository) Create(ctx context.Context, p *Player) error {
	query := `
		INSERT INTO players (username, email, password_hash, first_name, last_name,
		                     telegram_username, telegram_chat_id, level, balance, is_staff)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		p.Username, p.Email, p.PasswordHash, p.FirstName, p.LastName,
		p.TelegramUsername, p.TelegramChatID, p.Level, p.Coins, p.IsStaff,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		switch postgres.UniqueConstraint(err) {
		case "":
		case chatIDConstraint:
			return fmt.Errorf("чат уже привязан к другому аккаунту: %w", common.ErrConflict)
		default:
			return fmt.Errorf("%q: %w", p.Username, ErrUsernameTaken)
		}
		return fmt.Errorf("ошибка создания аккаунта: %w", err)
	}
	return nil
}

// GetByID: если не найден - common.ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players p WHERE p.id = $1`
	p, err := scanPlayer(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.NotFound("аккаунт (id=%d)", id)
		}
		return nil, fmt.Errorf("ошибка чтения аккаунта (id=%d): %w", id, err)
	}
	return p, nil
}

// GetByUsername ищет аккаунт по логину без учёта регистра.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players p WHERE LOWER(p.username) = LOWER($1)`
	p, err := scanPlayer(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.NotFound("аккаунт (username=%s)", username)
		}
		return nil, fmt.Errorf("ошибка чтения аккаунта (username=%s): %w", username, err)
	}
	return p, nil
}

// GetByChatID ищет аккаунт, привязанный к Telegram-чату.
func (r *Repository) GetByChatID(ctx context.Context, chatID int64) (*Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players p WHERE p.telegram_chat_id = $1`
	p, err := scanPlayer(r.db.QueryRow(ctx, query, chatID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.NotFound("аккаунт (chat_id=%d)", chatID)
		}
		return nil, fmt.Errorf("ошибка чтения аккаунта (chat_id=%d): %w", chatID, err)
	}
	return p, nil
}

// LinkChat привязывает chatID к ещё не привязанному аккаунту с данным
// telegram_username одним UPDATE. Аккаунт с другим чатом не трогаем.
// Нет такого аккаунта -> common.ErrNotFound, chatID уже занят -> common.ErrConflict.
func (r *Repository) LinkChat(ctx context.Context, telegramUsername string, chatID int64) (*Player, error) {
	query := `
		WITH linked AS (
			UPDATE players
			SET telegram_chat_id = $2, updated_at = NOW()
			WHERE id = (
				SELECT id FROM players
				WHERE telegram_username <> '' AND LOWER(telegram_username) = LOWER($1)
				  AND telegram_chat_id IS NULL
				ORDER BY id
				LIMIT 1
			)
			-- перепроверяется после ожидания блокировки строки
			AND telegram_chat_id IS NULL
			RETURNING id
		)
		SELECT ` + playerColumns + ` FROM players p JOIN linked l ON l.id = p.id
	`
	p, err := scanPlayer(r.db.QueryRow(ctx, query, telegramUsername, chatID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.NotFound("аккаунт (telegram_username=%s)", telegramUsername)
		}
		if postgres.IsUniqueViolation(err) {
			return nil, fmt.Errorf("чат %d уже привязан: %w", chatID, common.ErrConflict)
		}
		return nil, fmt.Errorf("ошибка привязки чата: %w", err)
	}

	// CTE видит снимок до UPDATE
	p.TelegramChatID = &chatID
	return p, nil
}

// GrantStaff выдаёт аккаунту права сотрудника и задаёт пароль.
func (r *Repository) GrantStaff(ctx context.Context, playerID int64, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE players
		SET is_staff = TRUE, password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`, playerID, passwordHash)
	if err != nil {
		return fmt.Errorf("ошибка выдачи прав (id=%d): %w", playerID, err)
	}
	if tag.RowsAffected() == 0 {
		return common.NotFound("аккаунт (id=%d)", playerID)
	}
	return nil
}
