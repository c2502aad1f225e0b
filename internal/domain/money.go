package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of minor-unit digits of the modeled currency (KWD).
const MoneyPlaces = 3

// Money is a fixed-point amount rounded to MoneyPlaces. It encodes to JSON
// as a bare number with exactly three decimals.
type Money struct {
	d decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money { return Money{d: d.Round(MoneyPlaces)} }

func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", s, err)
	}
	return NewMoney(d), nil
}

// MustMoney is ParseMoney for constants and tests.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func MoneyFromFloat(f float64) Money { return NewMoney(decimal.NewFromFloat(f)) }

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return NewMoney(m.d.Add(o.d)) }
func (m Money) Sub(o Money) Money { return NewMoney(m.d.Sub(o.d)) }

func (m Money) MulInt(n int) Money { return NewMoney(m.d.Mul(decimal.NewFromInt(int64(n)))) }

// MulRate multiplies by a rate such as 0.05 and rounds half away from zero.
func (m Money) MulRate(rate decimal.Decimal) Money { return NewMoney(m.d.Mul(rate)) }

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }
func (m Money) IsZero() bool { return m.d.IsZero() }
func (m Money) IsNegative() bool { return m.d.IsNegative() }
func (m Money) IsPositive() bool { return m.d.IsPositive() }
func (m Money) String() string { return m.d.StringFixed(MoneyPlaces) }
func (m Money) Float64() float64 {
	f, _ := m.d.Float64()
	return f
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*m = NewMoney(d)
	return nil
}

// SumMoney adds amounts left to right.
func SumMoney(ms ...Money) Money {
	var total Money
	for _, m := range ms {
		total = total.Add(m)
	}
	return total
}
