package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyVersion - счётчик версий каталога, растёт при каждом сбросе.
	KeyVersion = "catalog:version"
	// KeyCatalogPrefix - префикс ключа сериализованного каталога, к нему дописывается версия.
	KeyCatalogPrefix = "catalog:weapons:"
)

// Cache - версионированный кеш списка каталога.
// Промах = (nil, текущая версия, false, nil). Set с устаревшей версией
// никому не виден: Get читает только ключ текущей версии.
type Cache interface {
	Get(ctx context.Context) ([]*Weapon, int64, bool, error)
	Set(ctx context.Context, version int64, weapons []*Weapon) error
	Invalidate(ctx context.Context) error
}

// NewRedis создаёт клиент Redis и проверяет соединение.
func NewRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}

// RedisCache хранит каталог в Redis как JSON с TTL под ключом текущей версии.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache создаёт кеш каталога.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func catalogKey(version int64) string {
	return KeyCatalogPrefix + strconv.FormatInt(version, 10)
}

func (c *RedisCache) version(ctx context.Context) (int64, error) {
	v, err := c.rdb.Get(ctx, KeyVersion).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version: %w", err)
	}
	return v, nil
}

func (c *RedisCache) Get(ctx context.Context) ([]*Weapon, int64, bool, error) {
	version, err := c.version(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	raw, err := c.rdb.Get(ctx, catalogKey(version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, version, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("redis get: %w", err)
	}

	var weapons []*Weapon
	if err := json.Unmarshal(raw, &weapons); err != nil {
		return nil, 0, false, fmt.Errorf("decode catalog: %w", err)
	}
	return weapons, version, true, nil
}

func (c *RedisCache) Set(ctx context.Context, version int64, weapons []*Weapon) error {
	raw, err := json.Marshal(weapons)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := c.rdb.Set(ctx, catalogKey(version), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate переводит кеш на новую версию. Старые ключи доживают свой TTL.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, KeyVersion).Err(); err != nil {
		return fmt.Errorf("redis incr: %w", err)
	}
	return nil
}
