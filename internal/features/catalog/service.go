// Package catalog - service.go: чтение каталога через кеш и создание позиций.
package catalog

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cod-inventory/internal/common"
)

// Store - то, что сервису нужно от хранилища каталога.
type Store interface {
	List(ctx context.Context) ([]*Weapon, error)
	Create(ctx context.Context, w *Weapon) error
}

// Service управляет каталогом оружия.
type Service struct {
	store Store
	cache Cache // nil = без кеша
}

// NewService создаёт сервис каталога. cache может быть nil.
func NewService(store Store, cache Cache) *Service {
	return &Service{store: store, cache: cache}
}

// List возвращает каталог. Ошибки кеша не ломают запрос - идём в БД.
// В кеш пишется версия, прочитанная до похода в БД: если за это время
// каталог сбросили, запись уйдёт под устаревший ключ.
func (s *Service) List(ctx context.Context) ([]*Weapon, error) {
	var (
		version  int64
		cacheable bool
	)
	if s.cache != nil {
		weapons, v, ok, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			log.WithError(err).Warn("Кеш каталога недоступен")
		case ok:
			return weapons, nil
		default:
			version, cacheable = v, true
		}
	}

	weapons, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if weapons == nil {
		weapons = []*Weapon{}
	}

	if cacheable {
		if err := s.cache.Set(ctx, version, weapons); err != nil {
			log.WithError(err).Warn("Не удалось записать каталог в кеш")
		}
	}
	return weapons, nil
}

// Create проверяет позицию, сохраняет её и сбрасывает кеш каталога.
// Права (is_staff) проверяет вызывающий.
func (s *Service) Create(ctx context.Context, w *Weapon) error {
	if err := Validate(w); err != nil {
		return err
	}
	if err := s.store.Create(ctx, w); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			log.WithError(err).Warn("Не удалось сбросить кеш каталога")
		}
	}

	log.WithFields(log.Fields{
		"weapon_id": w.ID,
		"name":      w.Name,
		"price":     w.Price.String(),
	}).Info("Оружие добавлено в каталог")
	return nil
}

// Validate проверяет поля новой позиции каталога.
func Validate(w *Weapon) error {
	w.Name = strings.TrimSpace(w.Name)
	switch {
	case w.Name == "":
		return common.Invalid("name обязателен")
	case len([]rune(w.Name)) > 105:
		return common.Invalid("name длиннее 105 символов")
	}
	if _, ok := WeaponTypes[w.WeaponType]; !ok {
		return common.Invalid("неизвестный weapon_type %q", w.WeaponType)
	}
	if _, ok := Rarities[w.Rarity]; !ok {
		return common.Invalid("неизвестная rarity %q", w.Rarity)
	}
	if w.Damage < 0 || w.Range < 0 || w.Accuracy < 0 {
		return common.Invalid("damage, range и accuracy не могут быть отрицательными")
	}
	if w.Price.IsNegative() {
		return common.Invalid("price не может быть отрицательной")
	}
	return nil
}
