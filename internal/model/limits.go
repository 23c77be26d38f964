package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Limit bounds a tradable amount in display units. Both ends are inclusive.
type Limit struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

type Limits map[Currency]Limit

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError reports an amount outside the configured limit of its currency.
type ValidationError struct {
	Currency Currency
	Min      float64
	Max      float64
	Errors   []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ValidateAmount checks amount against the limit configured for c.
// The bounds are converted to smallest units so the comparison is exact.
func ValidateAmount(field string, c Currency, amount Amount, limits Limits) error {
	limit, ok := limits[c]
	if !ok {
		return fmt.Errorf("%w: no limit configured for %q", ErrInvalidCurrency, string(c))
	}
	lo, err := c.FromFloat(limit.Min)
	if err != nil {
		return fmt.Errorf("limit min for %s: %w", c, err)
	}
	hi, err := c.FromFloat(limit.Max)
	if err != nil {
		return fmt.Errorf("limit max for %s: %w", c, err)
	}
	if amount.Cmp(lo) >= 0 && amount.Cmp(hi) <= 0 {
		return nil
	}
	return &ValidationError{
		Currency: c,
		Min:      limit.Min,
		Max:      limit.Max,
		Errors: []FieldError{{
			Field:   field,
			Code:    "limit",
			Message: fmt.Sprintf("Amount should be between %s and %s", formatFloat(limit.Min), formatFloat(limit.Max)),
		}},
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
