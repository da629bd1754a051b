// Package players - service.go содержит регистрацию, вход и привязку
// Telegram-чата к аккаунту.
package players

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cod-inventory/internal/common"
	"serotonyl.ru/cod-inventory/internal/features/auth"
)

// Store - хранилище аккаунтов.
type Store interface {
	Create(ctx context.Context, p *Player) error
	GetByID(ctx context.Context, id int64) (*Player, error)
	GetByUsername(ctx context.Context, username string) (*Player, error)
	GetByChatID(ctx context.Context, chatID int64) (*Player, error)
	LinkChat(ctx context.Context, telegramUsername string, chatID int64) (*Player, error)
}

// Sessions - часть auth.Service, нужная для входа.
type Sessions interface {
	CheckLockout(ctx context.Context, username string) error
	RecordAttempt(ctx context.Context, username string, success bool)
	StartSession(ctx context.Context, playerID int64) (*auth.TokenPair, error)
}

// Notifier отправляет приветственное письмо. Не блокирует и не возвращает ошибок.
type Notifier interface {
	Welcome(email, name string)
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9@.+_-]{3,150}$`)

// botUsernamePrefix - префикс логинов, которые бот создаёт сам. Через сайт занять нельзя.
const botUsernamePrefix = "cod_"

// maxUsernameAttempts - сколько суффиксов пробуем, если cod_<имя>_<id> уже занят.
const maxUsernameAttempts = 5

// ErrUsernameTaken - логин уже занят. Отличается от конфликта по chat_id.
var ErrUsernameTaken = fmt.Errorf("username уже занят: %w", common.ErrConflict)

// errBadCredentials - одна и та же ошибка для «нет такого» и «неверный пароль».
var errBadCredentials = fmt.Errorf("неверное имя пользователя или пароль: %w", common.ErrUnauthorized)

// Service управляет аккаунтами.
type Service struct {
	store    Store
	sessions Sessions
	notifier Notifier
	defaults Defaults
}

// NewService создаёт сервис аккаунтов.
func NewService(store Store, sessions Sessions, notifier Notifier, defaults Defaults) *Service {
	return &Service{
		store:    store,
		sessions: sessions,
		notifier: notifier,
		defaults: defaults,
	}
}

// Register создаёт аккаунт с паролем и сразу выпускает пару токенов.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Player, *auth.TokenPair, error) {
	if err := validateRegistration(&in); err != nil {
		return nil, nil, err
	}

	if _, err := s.store.GetByUsername(ctx, in.Username); err == nil {
		return nil, nil, common.Invalid("username %q уже занят", in.Username)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}

	player := &Player{
		Username:         in.Username,
		Email:            in.Email,
		PasswordHash:     hash,
		TelegramUsername: in.TelegramUsername,
		Level:            s.defaults.Level,
		Coins:            s.defaults.Balance,
	}
	if err := s.store.Create(ctx, player); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, nil, common.Invalid("username %q уже занят", in.Username)
		}
		return nil, nil, err
	}

	tokens, err := s.sessions.StartSession(ctx, player.ID)
	if err != nil {
		return nil, nil, err
	}

	if player.Email != "" && s.notifier != nil {
		s.notifier.Welcome(player.Email, player.DisplayName())
	}

	log.WithFields(log.Fields{
		"player_id": player.ID,
		"username":  player.Username,
	}).Info("Зарегистрирован новый игрок")

	return player, tokens, nil
}

func validateRegistration(in *RegisterInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.TelegramUsername = strings.TrimPrefix(strings.TrimSpace(in.TelegramUsername), "@")

	if !usernamePattern.MatchString(in.Username) {
		return common.Invalid("username: от 3 до 150 символов, буквы, цифры и @.+-_")
	}
	if strings.HasPrefix(strings.ToLower(in.Username), botUsernamePrefix) {
		return common.Invalid("username с префиксом %s зарезервирован за ботом", botUsernamePrefix)
	}
	if len(in.Password) < 8 {
		return common.Invalid("password: минимум 8 символов")
	}
	if in.Password != in.PasswordConfirm {
		return common.Invalid("пароли не совпадают")
	}
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		return common.Invalid("некорректный email")
	}
	return nil
}

// Login проверяет пароль и выпускает пару токенов.
// После серии неудач вход по этому username временно блокируется.
func (s *Service) Login(ctx context.Context, username, password string) (*Player, *auth.TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil, common.Invalid("username и password обязательны")
	}

	if err := s.sessions.CheckLockout(ctx, username); err != nil {
		log.WithField("username", username).Warn("Вход заблокирован: слишком много попыток")
		return nil, nil, err
	}

	player, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return nil, nil, err
		}
		s.sessions.RecordAttempt(ctx, username, false)
		return nil, nil, errBadCredentials
	}

	if !player.HasPassword() || !auth.VerifyPassword(password, player.PasswordHash) {
		s.sessions.RecordAttempt(ctx, username, false)
		return nil, nil, errBadCredentials
	}
	s.sessions.RecordAttempt(ctx, username, true)

	tokens, err := s.sessions.StartSession(ctx, player.ID)
	if err != nil {
		return nil, nil, err
	}

	log.WithField("player_id", player.ID).Info("Игрок вошёл")
	return player, tokens, nil
}

// Profile возвращает аккаунт по ID.
func (s *Service) Profile(ctx context.Context, playerID int64) (*Player, error) {
	return s.store.GetByID(ctx, playerID)
}

// GetByChatID возвращает аккаунт, привязанный к чату.
func (s *Service) GetByChatID(ctx context.Context, chatID int64) (*Player, error) {
	return s.store.GetByChatID(ctx, chatID)
}

// ResolveOrCreateLinkedAccount находит или создаёт аккаунт для Telegram-чата.
//
// Порядок важен:
//  1. Аккаунт с этим chat_id уже есть - возвращаем как есть.
//  2. Есть ещё не привязанный аккаунт с таким telegram_username - привязываем к нему чат.
//     Аккаунт, уже привязанный к другому чату, не перехватываем.
//  3. Иначе создаём новый аккаунт cod_<имя>_<user_id>. Если логин занят,
//     пробуем cod_<имя>_<user_id>_2 и дальше.
//
// Параллельный первый контакт из одного чата упирается в уникальный индекс
// по telegram_chat_id: проигравший получает ErrConflict и перечитывает аккаунт.
func (s *Service) ResolveOrCreateLinkedAccount(ctx context.Context, id ChatIdentity) (*Player, LinkOutcome, error) {
	player, err := s.store.GetByChatID(ctx, id.ChatID)
	if err == nil {
		return player, LinkExisting, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, 0, err
	}

	linkName := id.LinkName()
	if linkName != "" {
		player, err = s.store.LinkChat(ctx, linkName, id.ChatID)
		switch {
		case err == nil:
			log.WithFields(log.Fields{
				"player_id": player.ID,
				"chat_id":   id.ChatID,
			}).Info("Telegram-чат привязан к существующему аккаунту")
			return player, LinkAttached, nil
		case errors.Is(err, common.ErrConflict):
			return s.relookup(ctx, id.ChatID)
		case !errors.Is(err, common.ErrNotFound):
			return nil, 0, err
		}
	}

	player, err = s.createFromChat(ctx, id, linkName)
	switch {
	case errors.Is(err, ErrUsernameTaken):
		return nil, 0, err
	case errors.Is(err, common.ErrConflict):
		return s.relookup(ctx, id.ChatID)
	case err != nil:
		return nil, 0, err
	}

	log.WithFields(log.Fields{
		"player_id": player.ID,
		"username":  player.Username,
		"chat_id":   id.ChatID,
	}).Info("Создан аккаунт из Telegram")
	return player, LinkCreated, nil
}

// createFromChat создаёт аккаунт для чата, подбирая свободный логин.
// Конфликт по chat_id возвращается как common.ErrConflict.
func (s *Service) createFromChat(ctx context.Context, id ChatIdentity, linkName string) (*Player, error) {
	base := fmt.Sprintf("%s%s_%d", botUsernamePrefix, linkName, id.UserID)
	chatID := id.ChatID

	var err error
	for attempt := 1; attempt <= maxUsernameAttempts; attempt++ {
		username := base
		if attempt > 1 {
			username = fmt.Sprintf("%s_%d", base, attempt)
		}

		player := &Player{
			Username:         username,
			FirstName:        id.FirstName,
			LastName:         id.LastName,
			TelegramUsername: linkName,
			TelegramChatID:   &chatID,
			Level:            s.defaults.Level,
			Coins:            s.defaults.Balance,
		}
		err = s.store.Create(ctx, player)
		if err == nil {
			return player, nil
		}
		if !errors.Is(err, ErrUsernameTaken) {
			return nil, err
		}
		log.WithField("username", username).Debug("Логин занят, пробуем следующий")
	}
	return nil, fmt.Errorf("не удалось подобрать логин для чата %d: %w", id.ChatID, err)
}

// relookup - повторный поиск по chat_id после проигранной гонки.
func (s *Service) relookup(ctx context.Context, chatID int64) (*Player, LinkOutcome, error) {
	player, err := s.store.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, 0, fmt.Errorf("аккаунт для чата %d не найден после конфликта: %w", chatID, err)
	}
	log.WithField("chat_id", chatID).Debug("Гонка первого контакта: аккаунт создан параллельно")
	return player, LinkExisting, nil
}
