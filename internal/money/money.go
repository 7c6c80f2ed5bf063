package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal monetary amount. The zero value is "0.00".
// Arithmetic keeps full precision internally; the canonical textual form is
// always two fractional digits, rounded half away from zero.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// Parse converts a textual amount such as "10.99" into Money.
func Parse(value string) (Money, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Money{}, fmt.Errorf("money: empty value")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", value, err)
	}
	return Money{d: d}, nil
}

// MustParse is Parse that panics on invalid input. Intended for constants and tests.
func MustParse(value string) Money {
	m, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal wraps an existing decimal value.
func FromDecimal(d decimal.Decimal) Money {
	return Money{d: d}
}

// Decimal exposes the underlying decimal for storage adapters.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{d: m.d.Sub(o.d)}
}

// MulInt returns m multiplied by an integer quantity.
func (m Money) MulInt(n int) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(int64(n)))}
}

// Percent returns m * (p / 100). Intermediate precision is arbitrary, so no
// digits are lost before the final two-decimal rendering.
func (m Money) Percent(p Money) Money {
	return Money{d: m.d.Mul(p.d).Div(decimal.NewFromInt(100))}
}

// Cmp compares two amounts: -1 if m < o, 0 if equal, 1 if m > o.
func (m Money) Cmp(o Money) int {
	return m.d.Cmp(o.d)
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// IsZero reports whether the amount equals zero.
func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// ClampNonNegative returns "0.00" for negative amounts and m otherwise.
func (m Money) ClampNonNegative() Money {
	if m.d.IsNegative() {
		return Zero
	}
	return m
}

// Round2 rounds to two fractional digits, half away from zero.
func (m Money) Round2() Money {
	return Money{d: m.d.Round(2)}
}

// String renders the canonical form: two fractional digits, '.' separator,
// no thousands separators.
func (m Money) String() string {
	return m.d.StringFixed(2)
}

// MarshalJSON renders the amount as a JSON string in canonical form.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts a JSON string or bare number.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
