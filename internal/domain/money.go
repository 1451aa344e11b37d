package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// moneyScale — количество знаков после запятой у денежных сумм.
const moneyScale = 2

// Money хранит сумму в минимальных денежных единицах (центы, копейки).
// Целочисленное представление гарантирует, что оба read-пути считают итоги
// одинаково, без ошибок округления.
type Money int64

// ParseMoney разбирает десятичную строку ("12.30") в Money.
// Лишние знаки округляются половиной от нуля.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", s, err)
	}
	return MoneyFromDecimal(d), nil
}

// MoneyFromDecimal переводит decimal в минимальные единицы.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Round(moneyScale).Shift(moneyScale).IntPart())
}

// Decimal возвращает сумму в основных единицах.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -moneyScale)
}

// Times умножает цену за единицу на количество.
func (m Money) Times(units int) Money {
	return m * Money(units)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(moneyScale)
}
