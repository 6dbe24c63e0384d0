package services

import (
	"testing"
	"time"

	"kitchenledger/internal/core"
)

func day(d int) core.Timestamp {
	return core.Timestamp{Time: time.Date(2024, 5, d, 12, 0, 0, 0, time.UTC)}
}

var tableFixture = []core.Transaction{
	{ID: "1", Kind: core.Expense, Description: "Vegetables", CategorySource: "Food", Amount: core.NewMoney(100), CreatedAt: day(1)},
	{ID: "2", Kind: core.Revenue, Description: "Zomato payout", CategorySource: "Zomato", Amount: core.NewMoney(900), CreatedAt: day(3)},
	{ID: "3", Kind: core.Expense, Description: "May rent", CategorySource: "Rent", Amount: core.NewMoney(200), CreatedAt: day(2)},
	{ID: "4", Kind: core.Revenue, Description: "Walk-in", CategorySource: "Direct Orders", Amount: core.NewMoney(50), CreatedAt: day(4)},
}

func ids(txs []core.Transaction) string {
	s := ""
	for _, tx := range txs {
		s += tx.ID
	}
	return s
}

func TestFilterApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{"all by date", Filter{Kind: KindAll, Sort: SortByDate}, "4231"},
		{"all by amount", Filter{Kind: KindAll, Sort: SortByAmount}, "2314"},
		{"expenses only", Filter{Kind: "Expense"}, "31"},
		{"search description", Filter{Search: "RENT"}, "3"},
		{"search category", Filter{Search: "zom"}, "2"},
		{"search and kind", Filter{Search: "o", Kind: "Revenue", Sort: SortByAmount}, "24"},
		{"no match", Filter{Search: "xyz"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(tt.filter.Apply(tableFixture)); got != tt.want {
				t.Errorf("Apply = %q, want %q", got, tt.want)
			}
		})
	}
	if tableFixture[0].ID != "1" {
		t.Error("Apply must not reorder its input")
	}
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("  veg ", "", "")
	if err != nil || f.Kind != KindAll || f.Sort != SortByDate || f.Search != "veg" {
		t.Fatalf("defaults: %+v, %v", f, err)
	}
	f, err = ParseFilter("", "Revenue", "AMOUNT")
	if err != nil || f.Kind != "Revenue" || f.Sort != SortByAmount {
		t.Fatalf("explicit: %+v, %v", f, err)
	}
	if _, err := ParseFilter("", "Income", ""); !core.IsValidation(err) {
		t.Errorf("bad kind: %v", err)
	}
	if _, err := ParseFilter("", "", "name"); !core.IsValidation(err) {
		t.Errorf("bad sort: %v", err)
	}
}

func TestRecent(t *testing.T) {
	if got := ids(Recent(tableFixture, RecentCount)); got != "423" {
		t.Errorf("Recent = %q, want 423", got)
	}
	if got := ids(Recent(tableFixture[:1], RecentCount)); got != "1" {
		t.Errorf("Recent short = %q", got)
	}
}

func TestTotals(t *testing.T) {
	tot := Totals(tableFixture)
	if tot.Revenue.String() != "950" || tot.Expenses.String() != "300" || tot.Net.String() != "650" {
		t.Errorf("totals = %+v", tot)
	}
}
