package sheets

import (
	"testing"
	"time"

	"kitchenledger/internal/core"
)

func TestRowCodec(t *testing.T) {
	tx := core.Transaction{
		ID:             "abc",
		Kind:           core.Expense,
		Description:    "Gas refill",
		CategorySource: "Utilities",
		Amount:         core.NewMoney(1250.5),
		CreatedAt:      core.Timestamp{Time: time.Date(2024, 5, 3, 22, 0, 0, 0, time.UTC)},
	}

	row := ToRow(tx)
	if len(row) != len(Header) {
		t.Fatalf("row has %d cells, header %d", len(row), len(Header))
	}
	if row[1] != "2024-05-03" || row[5] != "1250.5" {
		t.Fatalf("unexpected row %v", row)
	}

	cols := make([]string, len(row))
	for i, v := range row {
		cols[i] = v.(string)
	}
	got, err := FromRow(cols)
	if err != nil {
		t.Fatalf("FromRow: %v", err)
	}
	if got.ID != "abc" || got.Kind != core.Expense || got.Amount.String() != "1250.5" || got.CreatedAt.Day() != 3 {
		t.Errorf("unexpected transaction %+v", got)
	}
}

func TestFromRowFormattedAmountAndShortRow(t *testing.T) {
	got, err := FromRow([]string{"7", "", "Revenue", "Zomato", "", "₹12,500"})
	if err != nil {
		t.Fatalf("FromRow: %v", err)
	}
	if got.Amount.String() != "12500" {
		t.Errorf("amount = %s", got.Amount)
	}

	got, err = FromRow([]string{"8"})
	if err != nil || got.ID != "8" || !got.Amount.IsZero() {
		t.Errorf("short row: %+v, %v", got, err)
	}

	if _, err := FromRow([]string{"", "2024-01-01"}); err == nil {
		t.Error("row without id should fail")
	}
}
