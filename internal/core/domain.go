package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense Kind = "Expense"
	Revenue Kind = "Revenue"
)

type (
	// Kind tells whether a transaction is money out (Expense) or money in (Revenue).
	Kind string

	// Money is a non-negative currency amount. It travels as a bare JSON number.
	Money struct {
		decimal.Decimal
	}

	// Timestamp accepts the handful of layouts the backend has been seen to emit.
	// A value in any other layout is kept in Raw with a zero Time.
	Timestamp struct {
		time.Time
		Raw string
	}

	Transaction struct {
		ID             string    `json:"id"`
		Kind           Kind      `json:"type"`
		Description    string    `json:"description"`
		CategorySource string    `json:"category_source"` // category for expenses, platform for revenue
		Amount         Money     `json:"amount"`
		CreatedAt      Timestamp `json:"created_at"`
	}

	// Summary is computed by the backend; ProfitLoss is always Revenue - Expense.
	Summary struct {
		Revenue    Money `json:"revenue"`
		Expense    Money `json:"expense"`
		ProfitLoss Money `json:"profit_loss"`
	}

	// RestaurantProfile holds the account's display name. A nil Name means
	// the name was never set, which is a normal first-run state.
	RestaurantProfile struct {
		Name *string `json:"restaurant_name"`
	}

	// TransactionDraft is a validated transaction ready to be submitted.
	TransactionDraft struct {
		Kind           Kind   `json:"type"`
		Description    string `json:"description"`
		CategorySource string `json:"category_source"`
		Amount         Money  `json:"amount"`
	}
)

// ExpenseCategories are the categories offered by the expense form.
var ExpenseCategories = []string{
	"Food",
	"Ingredients",
	"Packaging",
	"Utilities",
	"Rent",
	"Staff Wages",
	"Marketing",
	"Equipment",
	"Transportation",
	"Other",
}

// RevenueSources are the payout platforms offered by the revenue form.
var RevenueSources = []string{"Zomato", "Swiggy", "Direct Orders", "Other"}

// ParseKind matches the exact wire values.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.TrimSpace(s)) {
	case Expense:
		return Expense, nil
	case Revenue:
		return Revenue, nil
	}
	return "", &ValidationError{Field: "type", Msg: fmt.Sprintf("must be %q or %q", Expense, Revenue)}
}

func (k Kind) Valid() bool {
	return k == Expense || k == Revenue
}

func (k Kind) String() string {
	return string(k)
}

// NewMoney builds Money from a float, for tests and fixtures.
func NewMoney(v float64) Money {
	return Money{Decimal: decimal.NewFromFloat(v)}
}

// MoneyFromDecimal wraps a decimal value.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func (m Money) Plus(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

func (m Money) Minus(o Money) Money {
	return Money{Decimal: m.Decimal.Sub(o.Decimal)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		m.Decimal = decimal.Zero
		return nil
	}
	return m.Decimal.UnmarshalJSON(b)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses s trying each known layout. Zone-less values are UTC.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// Unparsed reports whether the backend sent a value in no known layout.
func (t Timestamp) Unparsed() bool {
	return t.IsZero() && t.Raw != ""
}

// Display renders the local time in layout, the raw text when unparsed, or "-".
func (t Timestamp) Display(layout string) string {
	switch {
	case !t.IsZero():
		return t.Local().Format(layout)
	case t.Raw != "":
		return t.Raw
	default:
		return "-"
	}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		if t.Raw != "" {
			return json.Marshal(t.Raw)
		}
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON never fails: one odd created_at must not sink a whole list.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	*t = Timestamp{}
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		t.Raw = string(b)
		return nil
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		t.Raw = s
		return nil
	}
	*t = parsed
	return nil
}

// HasName reports whether the profile carries a non-empty restaurant name.
func (p RestaurantProfile) HasName() bool {
	return p.Name != nil && strings.TrimSpace(*p.Name) != ""
}

// DisplayName returns the name or fallback when absent.
func (p RestaurantProfile) DisplayName(fallback string) string {
	if !p.HasName() {
		return fallback
	}
	return *p.Name
}
