package services

import (
	"fmt"
	"sort"
	"strings"

	"kitchenledger/internal/core"
)

// SortBy orders the transaction table.
type SortBy string

const (
	SortByDate   SortBy = "date"
	SortByAmount SortBy = "amount"
)

// KindAll disables the kind filter.
const KindAll = "all"

// RecentCount is how many transactions the overview shows.
const RecentCount = 3

// Filter narrows and orders the transaction table.
type Filter struct {
	Search string
	Kind   string // KindAll, "Expense" or "Revenue"
	Sort   SortBy
}

// ParseFilter reads table options, defaulting blanks to all kinds sorted by date.
func ParseFilter(search, kind, sortBy string) (Filter, error) {
	f := Filter{Search: strings.TrimSpace(search), Kind: KindAll, Sort: SortByDate}

	switch k := strings.TrimSpace(kind); {
	case k == "" || strings.EqualFold(k, KindAll):
	default:
		parsed, err := core.ParseKind(k)
		if err != nil {
			return Filter{}, err
		}
		f.Kind = string(parsed)
	}

	switch s := SortBy(strings.ToLower(strings.TrimSpace(sortBy))); s {
	case "":
	case SortByDate, SortByAmount:
		f.Sort = s
	default:
		return Filter{}, &core.ValidationError{Field: "sort", Msg: fmt.Sprintf("must be %q or %q", SortByDate, SortByAmount)}
	}
	return f, nil
}

// Apply returns a new slice of the matching transactions in f's order.
// Search is a case-insensitive substring match on description and category/source.
func (f Filter) Apply(txs []core.Transaction) []core.Transaction {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Kind != "" && f.Kind != KindAll && string(tx.Kind) != f.Kind {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(tx.Description), needle) &&
			!strings.Contains(strings.ToLower(tx.CategorySource), needle) {
			continue
		}
		out = append(out, tx)
	}

	switch f.Sort {
	case SortByAmount:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Amount.GreaterThan(out[j].Amount.Decimal) })
	default:
		sortNewestFirst(out)
	}
	return out
}

func sortNewestFirst(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt.Time) })
}

// Recent returns the n newest transactions.
func Recent(txs []core.Transaction, n int) []core.Transaction {
	out := append([]core.Transaction(nil), txs...)
	sortNewestFirst(out)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// TableTotals are the footer sums of the transaction table.
type TableTotals struct {
	Revenue  core.Money `json:"revenue"`
	Expenses core.Money `json:"expenses"`
	Net      core.Money `json:"net"`
}

func Totals(txs []core.Transaction) TableTotals {
	var t TableTotals
	for _, tx := range txs {
		switch tx.Kind {
		case core.Revenue:
			t.Revenue = t.Revenue.Plus(tx.Amount)
		case core.Expense:
			t.Expenses = t.Expenses.Plus(tx.Amount)
		}
	}
	t.Net = t.Revenue.Minus(t.Expenses)
	return t
}
