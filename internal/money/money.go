package money

import (
	"bytes"
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a currency value in minor units (hundredths of a unit).
type Amount int64

const (
	MinStake      Amount = 100
	DefaultStake  Amount = 1000
	StartingGrant Amount = 100000
	// MaxAmount bounds any single parsed amount or stake.
	MaxAmount Amount = 1_000_000_000_000
)

var (
	ErrMalformed    = errors.New("malformed_amount")
	ErrInvalidPrice = errors.New("invalid_price")
	ErrOverflow     = errors.New("amount_overflow")
)

var (
	one       = decimal.NewFromInt(1)
	maxAmount = decimal.New(int64(MaxAmount), -2)
	// MaxPrice keeps MaxAmount x price inside int64.
	maxPrice = decimal.NewFromInt(10000)
)

// FromDecimal rounds d to two fractional digits, half away from zero.
// Values beyond the int64 range saturate.
func FromDecimal(d decimal.Decimal) Amount {
	minor := d.Round(2).Shift(2)
	switch {
	case minor.GreaterThan(decimal.NewFromInt(math.MaxInt64)):
		return math.MaxInt64
	case minor.LessThan(decimal.NewFromInt(math.MinInt64)):
		return math.MinInt64
	}
	return Amount(minor.IntPart())
}

// Parse reads a decimal amount. Anything larger in magnitude than MaxAmount
// is malformed.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrMalformed
	}
	if d.Abs().GreaterThan(maxAmount) {
		return 0, ErrMalformed
	}
	return FromDecimal(d), nil
}

func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := string(bytes.Trim(b, `"`))
	if raw == "" || raw == "null" {
		return ErrMalformed
	}
	v, err := Parse(raw)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (a *Amount) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Price is a decimal odds multiplier. A usable price is strictly greater than 1.
type Price struct {
	d decimal.Decimal
}

func NewPrice(d decimal.Decimal) (Price, error) {
	if !d.GreaterThan(one) || d.GreaterThan(maxPrice) {
		return Price{}, ErrInvalidPrice
	}
	return Price{d: d.Round(4)}, nil
}

func ParsePrice(s string) (Price, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Price{}, ErrInvalidPrice
	}
	return NewPrice(d)
}

func MustPrice(s string) Price {
	p, err := ParsePrice(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Price) Valid() bool { return p.d.GreaterThan(one) && !p.d.GreaterThan(maxPrice) }

func (p Price) Decimal() decimal.Decimal { return p.d }

func (p Price) String() string { return p.d.String() }

func (p Price) Equal(o Price) bool { return p.d.Equal(o.d) }

func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.d.String()), nil
}

func (p *Price) UnmarshalJSON(b []byte) error {
	v, err := ParsePrice(string(bytes.Trim(b, `"`)))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Payout is the total return of stake at price, principal included.
func Payout(stake Amount, price Price) Amount {
	return FromDecimal(stake.Decimal().Mul(price.d))
}

// Add returns a+b, or ErrOverflow when the sum leaves the int64 range.
func Add(a, b Amount) (Amount, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sum adds amounts, saturating at the int64 bounds instead of wrapping.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, a := range amounts {
		next, err := Add(total, a)
		if err != nil {
			if a > 0 {
				return math.MaxInt64
			}
			return math.MinInt64
		}
		total = next
	}
	return total
}
