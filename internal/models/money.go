package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the display scale of every money field.
const MoneyScale = 2

var twelve = decimal.NewFromInt(12)

// RoundMoney rounds half away from zero to two decimals, which is half-up for
// the non-negative amounts dues are computed on.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// MonthlyDue is yearlyPledge / 12 rounded to cents. The division is carried out
// at full precision before rounding.
func MonthlyDue(yearlyPledge decimal.Decimal) decimal.Decimal {
	if yearlyPledge.IsZero() {
		return decimal.Zero
	}
	return yearlyPledge.DivRound(twelve, MoneyScale)
}

// ParseAmount parses a statement or notification amount. It accepts a leading
// currency symbol, thousands separators, a leading sign and parentheses for
// negative values ("(12.50)").
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if strings.HasPrefix(s, "-$") {
		s = "-" + strings.TrimPrefix(s, "-$")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount string '%s': %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseOptionalAmount parses raw, returning an invalid NullDecimal for blank input.
func ParseOptionalAmount(raw string) (decimal.NullDecimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := ParseAmount(raw)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// SumAmounts adds up amounts exactly.
func SumAmounts(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
