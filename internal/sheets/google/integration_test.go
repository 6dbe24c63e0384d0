//go:build integration

package google

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"kitchenledger/internal/core"
)

// Integration tests require a real spreadsheet shared with a service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ExportRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	cfg := Config{
		SpreadsheetID:      os.Getenv("GOOGLE_SPREADSHEET_ID"),
		SheetName:          os.Getenv("GOOGLE_SHEET_NAME"),
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if cfg.SpreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	if cfg.ServiceAccountJSON == "" && cfg.ServiceAccountFile == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	tx := core.Transaction{
		ID:             fmt.Sprintf("it-%d", time.Now().UnixNano()),
		Kind:           core.Expense,
		Description:    "integration test",
		CategorySource: "Other",
		Amount:         core.NewMoney(1.23),
		CreatedAt:      core.Timestamp{Time: time.Now()},
	}

	ref, err := client.AppendTransaction(ctx, tx)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	t.Logf("exported to %s", ref)

	again, err := client.AppendTransaction(ctx, tx)
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	t.Logf("second append resolved to %s", again)

	if err := client.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rows, err := client.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, r := range rows {
		if r.ID == tx.ID {
			t.Fatalf("row %s still present after delete", tx.ID)
		}
	}
}
