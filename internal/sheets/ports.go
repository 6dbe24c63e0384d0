// Package sheets defines the spreadsheet mirror of the ledger and the row
// layout shared by its adapters.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"kitchenledger/internal/core"
)

// Ports for outbound adapters.
type (
	// Exporter mirrors backend transactions into a spreadsheet. Both
	// operations are idempotent so redelivered events are harmless.
	Exporter interface {
		AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
		DeleteTransaction(ctx context.Context, id string) error
	}

	// RowLister reads back what was exported.
	RowLister interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}
)

// Header is the first row of the export sheet.
var Header = []string{"ID", "Date", "Kind", "Category/Source", "Description", "Amount"}

const dateLayout = "2006-01-02"

// ToRow renders tx in Header order.
func ToRow(tx core.Transaction) []any {
	date := ""
	if !tx.CreatedAt.IsZero() {
		date = tx.CreatedAt.UTC().Format(dateLayout)
	}
	return []any{tx.ID, date, string(tx.Kind), tx.CategorySource, tx.Description, tx.Amount.String()}
}

// FromRow parses a row written by ToRow; missing trailing cells are empty.
func FromRow(cols []string) (core.Transaction, error) {
	cell := func(i int) string {
		if i < len(cols) {
			return strings.TrimSpace(cols[i])
		}
		return ""
	}

	tx := core.Transaction{
		ID:             cell(0),
		Kind:           core.Kind(cell(2)),
		CategorySource: cell(3),
		Description:    cell(4),
	}
	if tx.ID == "" {
		return core.Transaction{}, fmt.Errorf("row without id")
	}
	if d := cell(1); d != "" {
		ts, err := core.ParseTimestamp(d)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("row %s: %w", tx.ID, err)
		}
		tx.CreatedAt = ts
	}
	if a := cell(5); a != "" {
		m, err := core.ParseAmount(strings.NewReplacer(",", "", core.CurrencySymbol, "").Replace(a))
		if err != nil {
			return core.Transaction{}, fmt.Errorf("row %s: %w", tx.ID, err)
		}
		tx.Amount = m
	}
	return tx, nil
}
