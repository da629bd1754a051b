// Package common - pluralize.go содержит вспомогательные функции
// для отображения сумм и количеств в ответах бота.
// Основная логика плюрализации реализована в helpers.go.
package common

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatCoinsDelta создаёт строку вида "+100 монет" или "-30 монет".
// Знак «+» или «-» добавляется автоматически.
//
// Примеры:
//
//	FormatCoinsDelta(100)  → "+100 монет"
//	FormatCoinsDelta(-30)  → "-30 монет"
func FormatCoinsDelta(amount decimal.Decimal) string {
	if amount.Sign() >= 0 {
		return "+" + FormatCoins(amount)
	}
	return FormatCoins(amount)
}

// FormatQuantity создаёт строку вида "3 штуки".
func FormatQuantity(n int) string {
	return fmt.Sprintf("%d %s", n, PluralizeUnits(int64(n)))
}
