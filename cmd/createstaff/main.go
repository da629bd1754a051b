// createstaff - утилита для создания аккаунта сотрудника (is_staff).
// Сотрудник может добавлять оружие в каталог через POST /weapons/.
// Запуск: go run ./cmd/createstaff <username> <пароль> [email]
//
// Если аккаунт уже есть, ему выдаются права и задаётся новый пароль.
// Нужны те же переменные окружения БД, что и сервису.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cod-inventory/internal/app"
	"serotonyl.ru/cod-inventory/internal/config"
	"serotonyl.ru/cod-inventory/internal/db/postgres"
	"serotonyl.ru/cod-inventory/internal/features/players"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Использование: go run ./cmd/createstaff <username> <пароль> [email]")
		os.Exit(1)
	}
	username, password := os.Args[1], os.Args[2]
	var email string
	if len(os.Args) > 3 {
		email = os.Args[3]
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось подключиться к БД")
	}
	defer pool.Close()

	if err := app.Migrate(ctx, pool); err != nil {
		log.WithError(err).Fatal("Ошибка миграций")
	}

	p, created, err := players.EnsureStaff(ctx, players.NewRepository(pool), username, email, password, players.Defaults{
		Balance: decimal.NewFromFloat(cfg.EconomyStartingBalance).Round(2),
		Level:   cfg.EconomyStartingLevel,
	})
	if err != nil {
		log.WithError(err).Fatal("Не удалось создать сотрудника")
	}

	if created {
		fmt.Printf("Создан сотрудник %s (id=%d)\n", p.Username, p.ID)
	} else {
		fmt.Printf("Сотрудник %s (id=%d) обновлён\n", p.Username, p.ID)
	}
}
