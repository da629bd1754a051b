package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/cod-inventory/internal/db/postgres"
)

// migrations - схема БД по версиям. SQL встроен в бинарник, отдельные файлы не нужны.
var migrations = []postgres.Migration{
	{Version: 1, SQL: migration001Players},
	{Version: 2, SQL: migration002Weapons},
	{Version: 3, SQL: migration003Inventory},
	{Version: 4, SQL: migration004Auth},
	{Version: 5, SQL: migration005SeedWeapons},
}

var migration001Players = `
CREATE TABLE IF NOT EXISTS players (
    id BIGSERIAL PRIMARY KEY,
    username VARCHAR(150) UNIQUE NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL DEFAULT '',
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    telegram_username TEXT NOT NULL DEFAULT '',
    telegram_chat_id BIGINT UNIQUE,
    level INTEGER NOT NULL DEFAULT 1,
    balance NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
    is_staff BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_players_username_lower ON players(LOWER(username));
CREATE INDEX IF NOT EXISTS idx_players_telegram_username ON players(LOWER(telegram_username));
CREATE INDEX IF NOT EXISTS idx_players_created_at ON players(created_at);
`

var migration002Weapons = `
CREATE TABLE IF NOT EXISTS weapons (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(105) NOT NULL,
    weapon_type VARCHAR(32) NOT NULL,
    damage INTEGER NOT NULL DEFAULT 0 CHECK (damage >= 0),
    weapon_range INTEGER NOT NULL DEFAULT 0 CHECK (weapon_range >= 0),
    accuracy INTEGER NOT NULL DEFAULT 0 CHECK (accuracy >= 0),
    rarity VARCHAR(16) NOT NULL,
    price NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (price >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

var migration003Inventory = `
CREATE TABLE IF NOT EXISTS player_weapons (
    id BIGSERIAL PRIMARY KEY,
    player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
    weapon_id BIGINT NOT NULL REFERENCES weapons(id) ON DELETE CASCADE,
    quantity INTEGER NOT NULL CHECK (quantity > 0),
    acquired_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (player_id, weapon_id)
);
CREATE INDEX IF NOT EXISTS idx_player_weapons_acquired_at ON player_weapons(acquired_at);
`

var migration004Auth = `
CREATE TABLE IF NOT EXISTS sessions (
    id UUID PRIMARY KEY,
    player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
CREATE TABLE IF NOT EXISTS login_attempts (
    id BIGSERIAL PRIMARY KEY,
    username VARCHAR(150) NOT NULL,
    success BOOLEAN NOT NULL DEFAULT FALSE,
    attempt_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_login_attempts_username_time ON login_attempts(username, attempt_time DESC);
`

// Стартовый каталог. Вставляется только в пустую таблицу.
var migration005SeedWeapons = `
INSERT INTO weapons (name, weapon_type, damage, weapon_range, accuracy, rarity, price)
SELECT v.name, v.weapon_type, v.damage, v.weapon_range, v.accuracy, v.rarity, v.price
FROM (VALUES
    ('M4A1',           'assault_rifle',  30, 60, 75, 'common',    30.00),
    ('AK-47',          'assault_rifle',  35, 55, 65, 'common',    35.00),
    ('MP5',            'submachine_gun', 25, 35, 80, 'common',    25.00),
    ('Desert Eagle',   'pistol',         45, 25, 60, 'uncommon',  40.00),
    ('Model 680',      'shotgun',        80, 10, 50, 'uncommon',  45.00),
    ('Kar98k',         'sniper_rifle',   90, 90, 85, 'rare',     120.00),
    ('RPG-7',          'launcher',      150, 70, 40, 'epic',     250.00),
    ('Kali Sticks',    'melee',          60,  1, 95, 'rare',      80.00),
    ('AX-50',          'sniper_rifle',  110, 95, 90, 'legendary', 500.00)
) AS v(name, weapon_type, damage, weapon_range, accuracy, rarity, price)
WHERE NOT EXISTS (SELECT 1 FROM weapons);
`

// Migrate применяет миграции к пулу. Используется и сервисом, и утилитами из cmd/.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return postgres.RunMigrations(ctx, pool, migrations)
}
