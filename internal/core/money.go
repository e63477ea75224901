// Package core provides money parsing and handling utilities.
//
// Money is kept as integer minor units (cents). Decimal text only appears
// at the edges: request bodies, JSON responses and report rendering.
package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is an exact amount in minor units (scale 2).
type Money struct {
	Cents int64
}

var (
	hundred = decimal.NewFromInt(100)
	// maxMoney bounds parsed values so cents never overflow int64.
	maxMoney = decimal.New(1, 15)

	idPrinter = message.NewPrinter(language.Indonesian)
)

// Cents builds a Money from minor units.
func Cents(c int64) Money {
	return Money{Cents: c}
}

// ParseMoney converts a decimal string to Money with half-up rounding on the
// third decimal place. Both dot (12.34) and comma (12,34) separators are accepted.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234
//	ParseMoney("-5")     -> -500
//	ParseMoney("12.345") -> 1235
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return FromDecimal(d)
}

// ParseAmount is ParseMoney restricted to strictly positive values.
func ParseAmount(s string) (Money, error) {
	m, err := ParseMoney(s)
	if err != nil {
		return Money{}, err
	}
	if !m.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

// FromDecimal rounds d to two places and converts it to Money.
func FromDecimal(d decimal.Decimal) (Money, error) {
	if d.Abs().GreaterThanOrEqual(maxMoney) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: d.Round(2).Mul(hundred).IntPart()}, nil
}

// Decimal returns the amount as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Rupiah formats m the Indonesian way: "Rp 1.250.000" or "Rp 1.250,50".
func (m Money) Rupiah() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	s := idPrinter.Sprintf("%d", cents/100)
	if frac := cents % 100; frac != 0 {
		s += fmt.Sprintf(",%02d", frac)
	}
	return sign + "Rp " + s
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }

func (m Money) IsZero() bool     { return m.Cents == 0 }
func (m Money) IsPositive() bool { return m.Cents > 0 }

// Validate checks the value is usable as a transaction amount.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Percent returns part/whole*100 rounded to two places, or 0 when whole is zero.
func Percent(part, whole Money) float64 {
	if whole.IsZero() {
		return 0
	}
	f, _ := part.Decimal().Div(whole.Decimal()).Mul(hundred).Round(2).Float64()
	return f
}

// PercentChange compares current against previous: 100 when growing from
// zero, 0 when both are zero, otherwise (current-previous)/previous*100.
func PercentChange(current, previous Money) float64 {
	if previous.IsZero() {
		if current.Cents > 0 {
			return 100
		}
		return 0
	}
	f, _ := current.Sub(previous).Decimal().Div(previous.Decimal()).Mul(hundred).Round(2).Float64()
	return f
}

// MarshalJSON renders the amount as a fixed two-place decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts JSON numbers and numeric strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	v, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
