// Package core holds the ledger domain: transactions, money, validation
// rules and the error taxonomy shared by every other package.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// CurrencySymbol is the single currency the dashboard knows about.
const CurrencySymbol = "₹"

// ParseAmount converts user input to a positive Money value.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. Signs,
// thousands separators and anything that is not a digit are rejected, as is
// zero. Precision is kept as typed; the backend stores the decimal as is.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, amountError("amount is required")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Money{}, amountError("please enter a valid amount greater than 0")
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return Money{}, amountError("please enter a valid amount greater than 0")
		}
	}
	if s == "." {
		return Money{}, amountError("please enter a valid amount greater than 0")
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return Money{}, amountError("please enter a valid amount greater than 0")
	}
	return Money{Decimal: d}, nil
}

func amountError(msg string) error {
	return &ValidationError{Field: "amount", Msg: msg, Err: ErrInvalidAmount}
}

// FormatAmount renders m with the currency symbol and thousands grouping,
// e.g. ₹12,500 or -₹1,250.50. Whole amounts drop the fraction.
func FormatAmount(m Money) string {
	neg := m.IsNegative()
	s := m.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	out := CurrencySymbol + groupThousands(intPart)
	if frac != "00" {
		out += "." + frac
	}
	if neg {
		return "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
