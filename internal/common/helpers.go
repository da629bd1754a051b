// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: ошибки, русская плюрализация, форматирование монет и дат.
package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Суммы в JSON отдаём числами (30.5), а не строками ("30.5")
	decimal.MarshalJSONWithoutQuotes = true
}

// pluralForm выбирает форму слова по правилам русского языка.
//
// Правила:
//   - n%10==1 И n%100!=11 → one (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → many (0, 5-20, 25-30, 100, ...)
func pluralForm(n int64, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizeCoins возвращает правильную форму слова «монета» для числа n.
//
// Примеры:
//
//	PluralizeCoins(1)  → "монета"
//	PluralizeCoins(3)  → "монеты"
//	PluralizeCoins(5)  → "монет"
//	PluralizeCoins(11) → "монет"
//	PluralizeCoins(21) → "монета"
func PluralizeCoins(n int64) string {
	return pluralForm(n, "монета", "монеты", "монет")
}

// PluralizeUnits возвращает форму слова «штука» (количество оружия).
func PluralizeUnits(n int64) string {
	return pluralForm(n, "штука", "штуки", "штук")
}

// FormatCoins форматирует сумму монет в читабельную строку.
// Дробные суммы всегда «монеты» (2,5 монеты), целые склоняются.
//
// Пример: FormatCoins(decimal.NewFromInt(150)) → "150 монет"
func FormatCoins(amount decimal.Decimal) string {
	if amount.IsInteger() {
		return fmt.Sprintf("%s %s", amount.String(), PluralizeCoins(amount.IntPart()))
	}
	return fmt.Sprintf("%s монеты", amount.StringFixed(2))
}

// StartOfDayUTC возвращает полночь (UTC) того дня, в котором находится t.
// Используется для статистики «за сегодня».
func StartOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate форматирует дату в вид "2006-01-02".
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
