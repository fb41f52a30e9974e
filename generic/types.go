/*
Package generic provides the domain-agnostic primitives of the vacation ledger.

PURPOSE:
  Day counts, calendar days, inclusive date ranges and the error taxonomy
  live here so the vacation package, the stores and the HTTP layer all
  speak the same vocabulary.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity of days (half days allowed)
  - Unlimited: Sentinel availability for categories with no cap

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so 0.5 + 0.5 is exactly 1
  2. Value semantics: Amounts are immutable, every operation returns a copy

USAGE:
  days := generic.Days(3)
  half := generic.MustParseDays("0.5")
  total := days.Add(half) // 3.5

SEE ALSO:
  - time.go: Calendar day type
  - period.go: Inclusive date ranges and overlap checks
  - errors.go: Error taxonomy shared by every layer
*/
package generic

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity of days
// =============================================================================

type Amount struct {
	Value decimal.Decimal
}

func Days(n int) Amount                        { return Amount{Value: decimal.NewFromInt(int64(n))} }
func DaysFromFloat(f float64) Amount           { return Amount{Value: decimal.NewFromFloat(f)} }
func DaysFromDecimal(d decimal.Decimal) Amount { return Amount{Value: d} }

// ParseDays parses a decimal string such as "2" or "0.5".
func ParseDays(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Value: d}, nil
}

// MustParseDays is ParseDays for literals; malformed input yields zero.
func MustParseDays(s string) Amount {
	a, err := ParseDays(s)
	if err != nil {
		return Amount{Value: decimal.Zero}
	}
	return a
}

func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) Neg() Amount               { return Amount{Value: a.Value.Neg()} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool       { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }
func (a Amount) Float() float64            { f, _ := a.Value.Float64(); return f }
func (a Amount) String() string            { return a.Value.String() }

func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// ClampZero returns a, or zero when a is negative.
func (a Amount) ClampZero() Amount { return a.Max(Amount{Value: decimal.Zero}) }

// Sum adds a list of amounts.
func Sum(amounts ...Amount) Amount {
	total := Amount{Value: decimal.Zero}
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// MarshalJSON encodes the amount as a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Value.String()), nil
}

// UnmarshalJSON accepts both numbers and quoted decimals.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	a.Value = d
	return nil
}

// =============================================================================
// UNLIMITED - Availability of uncapped categories
// =============================================================================

// Unlimited is returned as the availability of categories without a cap.
// It is large enough that no realistic request exceeds it.
var Unlimited = Amount{Value: decimal.NewFromInt(1 << 31)}

// IsUnlimited reports whether a is the Unlimited sentinel.
func (a Amount) IsUnlimited() bool { return a.Equal(Unlimited) }
