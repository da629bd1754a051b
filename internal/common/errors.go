// Package common - errors.go определяет ошибки, которые используются во всех модулях.
// Эти ошибки позволяют HTTP-слою и боту различать типы проблем
// и отдавать пользователю понятный ответ (и правильный HTTP-статус).
package common

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Базовые категории ошибок
var (
	// ErrNotFound - оружие, запись инвентаря или аккаунт не найдены
	ErrNotFound = errors.New("не найдено")
	// ErrInvalidArgument - некорректные входные данные (количество <= 0, пустое поле)
	ErrInvalidArgument = errors.New("некорректные данные")
	// ErrUnauthorized - неверные учётные данные или токен
	ErrUnauthorized = errors.New("требуется авторизация")
	// ErrForbidden - у аккаунта нет прав на действие
	ErrForbidden = errors.New("недостаточно прав")
	// ErrConflict - нарушение уникальности (гонка при создании аккаунта)
	ErrConflict = errors.New("конфликт данных")
	// ErrTooManyAttempts - слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток входа, попробуйте позже")
	// ErrInsufficientFunds - недостаточно монет на счёте
	ErrInsufficientFunds = errors.New("недостаточно монет")
)

// InsufficientFundsError несёт сумму покупки и текущий баланс,
// чтобы клиент мог показать, сколько не хватает.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("недостаточно монет: нужно %s, есть %s",
		e.Required.StringFixed(2), e.Available.StringFixed(2))
}

// Is позволяет писать errors.Is(err, common.ErrInsufficientFunds).
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// Invalid оборачивает ErrInvalidArgument с пояснением.
// Пример: common.Invalid("quantity должен быть положительным")
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidArgument)
}

// NotFound оборачивает ErrNotFound с пояснением.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}
