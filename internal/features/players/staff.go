package players

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cod-inventory/internal/common"
	"serotonyl.ru/cod-inventory/internal/features/auth"
)

// StaffStore - то, что нужно для выдачи прав сотрудника.
type StaffStore interface {
	Create(ctx context.Context, p *Player) error
	GetByUsername(ctx context.Context, username string) (*Player, error)
	GrantStaff(ctx context.Context, playerID int64, passwordHash string) error
}

// EnsureStaff создаёт аккаунт сотрудника (is_staff) или выдаёт права существующему
// и задаёт ему пароль. Только сотрудники добавляют оружие в каталог.
// Возвращает true, если аккаунт был создан.
func EnsureStaff(ctx context.Context, store StaffStore, username, email, password string, defaults Defaults) (*Player, bool, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return nil, false, common.Invalid("username: от 3 до 150 символов, буквы, цифры и @.+-_")
	}
	if len(password) < 8 {
		return nil, false, common.Invalid("password: минимум 8 символов")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, err
	}

	existing, err := store.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if err := store.GrantStaff(ctx, existing.ID, hash); err != nil {
			return nil, false, err
		}
		existing.IsStaff = true
		existing.PasswordHash = hash
		log.WithField("player_id", existing.ID).Info("Аккаунту выданы права сотрудника")
		return existing, false, nil

	case !errors.Is(err, common.ErrNotFound):
		return nil, false, err
	}

	player := &Player{
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Level:        defaults.Level,
		Coins:        defaults.Balance,
		IsStaff:      true,
	}
	if err := store.Create(ctx, player); err != nil {
		return nil, false, err
	}

	log.WithField("player_id", player.ID).Info("Создан аккаунт сотрудника")
	return player, true, nil
}
