package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	BTC Currency = "btc"
	ETH Currency = "eth"
	STQ Currency = "stq"
)

// decimals is the number of smallest units per display unit, as a power of ten.
var decimals = map[Currency]int32{
	BTC: 8,
	ETH: 18,
	STQ: 18,
}

// Currencies returns every supported currency in a stable order.
func Currencies() []Currency {
	return []Currency{BTC, ETH, STQ}
}

func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	return c, nil
}

func (c Currency) Valid() bool {
	_, ok := decimals[c]
	return ok
}

func (c Currency) Decimals() int32 {
	return decimals[c]
}

func (c Currency) String() string {
	return string(c)
}

// ToFloat converts an amount in smallest units to display units.
func (c Currency) ToFloat(a Amount) float64 {
	f, _ := decimal.NewFromBigInt(a.BigInt(), -c.Decimals()).Float64()
	return f
}

// FromFloat converts a display value to smallest units, rounding half-up.
func (c Currency) FromFloat(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return Amount{}, fmt.Errorf("%w: %v %s", ErrInvalidAmount, f, c)
	}
	v := decimal.NewFromFloat(f).Shift(c.Decimals()).Round(0)
	return Amount{v: v.BigInt()}, nil
}

// Format renders the amount in display units, e.g. "1.5 ETH".
func (c Currency) Format(a Amount) string {
	return decimal.NewFromBigInt(a.BigInt(), -c.Decimals()).String() + " " + strings.ToUpper(string(c))
}

func (c *Currency) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCurrency, data)
	}
	parsed, err := ParseCurrency(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Currency) Value() (driver.Value, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, string(c))
	}
	return string(c), nil
}

func (c *Currency) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidCurrency, src)
	}
	parsed, err := ParseCurrency(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
