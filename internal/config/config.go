// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"inventory"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"cod_inventory"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8000"`

	// --- Auth ---
	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	JWTAccessTTL  time.Duration `envconfig:"JWT_ACCESS_TTL" default:"5m"`
	JWTRefreshTTL time.Duration `envconfig:"JWT_REFRESH_TTL" default:"24h"`
	// Защита от перебора: N неудачных попыток за окно = блокировка
	LoginMaxAttempts   int           `envconfig:"LOGIN_MAX_ATTEMPTS" default:"5"`
	LoginLockoutWindow time.Duration `envconfig:"LOGIN_LOCKOUT_WINDOW" default:"1h"`

	// --- Telegram ---
	// Пустой токен = бот не запускается, работает только HTTP API
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Rate Limiting (бот) ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- RabbitMQ ---
	// Пустой URL = письма отправляются прямо из процесса
	RabbitURL      string `envconfig:"RABBITMQ_URL"`
	RabbitQueue    string `envconfig:"RABBITMQ_QUEUE" default:"notifications"`
	RabbitPrefetch int    `envconfig:"RABBITMQ_PREFETCH" default:"10"`
	RabbitWorkers  int    `envconfig:"RABBITMQ_WORKERS" default:"2"`

	// --- Redis ---
	RedisAddr       string        `envconfig:"REDIS_ADDR"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD"`
	RedisDB         int           `envconfig:"REDIS_DB" default:"0"`
	CatalogCacheTTL time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"5m"`

	// --- Mail ---
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	MailFrom     string `envconfig:"MAIL_FROM" default:"noreply@cod-inventory.local"`

	// --- Economy ---
	EconomyStartingBalance float64 `envconfig:"ECONOMY_STARTING_BALANCE" default:"1000"`
	EconomyStartingLevel   int     `envconfig:"ECONOMY_STARTING_LEVEL" default:"1"`

	// --- Cron (UTC) ---
	CronSessionCleanup string `envconfig:"CRON_SESSION_CLEANUP" default:"0 2 * * *"`
	CronDailyStats     string `envconfig:"CRON_DAILY_STATS" default:"55 23 * * *"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// BotEnabled сообщает, нужно ли запускать Telegram-бота.
func (c *Config) BotEnabled() bool {
	return c.TelegramBotToken != ""
}

func (c *Config) Validate() error {
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL и JWT_REFRESH_TTL должны быть > 0")
	}
	if c.JWTRefreshTTL < c.JWTAccessTTL {
		return fmt.Errorf("JWT_REFRESH_TTL не может быть меньше JWT_ACCESS_TTL")
	}
	if c.LoginMaxAttempts <= 0 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS должен быть > 0")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.RabbitWorkers <= 0 || c.RabbitPrefetch <= 0 {
		return fmt.Errorf("RABBITMQ_WORKERS и RABBITMQ_PREFETCH должны быть > 0")
	}
	if c.EconomyStartingBalance < 0 {
		return fmt.Errorf("ECONOMY_STARTING_BALANCE не может быть отрицательным")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
