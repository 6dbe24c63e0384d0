// Package worker forwards ledger events to the spreadsheet mirror.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"kitchenledger/internal/amqp"
	"kitchenledger/internal/core"
	applog "kitchenledger/internal/log"
	"kitchenledger/internal/sheets"
)

// TransactionSource lists the authoritative transactions, normally the backend client.
type TransactionSource interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
}

type ExportWorker struct {
	exporter sheets.Exporter
	logger   *slog.Logger
}

func NewExportWorker(exporter sheets.Exporter, logger *slog.Logger) *ExportWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportWorker{
		exporter: exporter,
		logger:   logger.With(applog.FieldComponent, applog.ComponentWorker),
	}
}

// HandleEvent applies one ledger event to the exporter. It matches
// amqp.Handler, so a returned error requeues the message.
func (w *ExportWorker) HandleEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	switch e.Type {
	case amqp.TransactionCreated:
		tx := e.Transaction()
		ref, err := w.exporter.AppendTransaction(ctx, tx)
		if err != nil {
			return fmt.Errorf("export transaction %s: %w", e.ID, err)
		}
		w.logger.InfoContext(ctx, "Transaction exported",
			applog.FieldTransactionID, tx.ID,
			applog.FieldKind, tx.Kind,
			applog.FieldAmount, tx.Amount.String(),
			applog.FieldSheetsRef, ref)
	case amqp.TransactionDeleted:
		if err := w.exporter.DeleteTransaction(ctx, e.ID); err != nil {
			return fmt.Errorf("remove exported transaction %s: %w", e.ID, err)
		}
		w.logger.InfoContext(ctx, "Exported transaction removed", applog.FieldTransactionID, e.ID)
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event", "type", e.Type, applog.FieldTransactionID, e.ID)
	}
	return nil
}

// ReconcileResult counts what a reconciliation pass did.
type ReconcileResult struct {
	Total    int
	Exported int
	Removed  int
	Errors   int
}

// Reconcile brings the mirror in line with src, covering events missed while
// the worker or broker was down. Rows are only removed when the exporter can
// list what it holds.
func (w *ExportWorker) Reconcile(ctx context.Context, src TransactionSource) (ReconcileResult, error) {
	txs, err := src.ListTransactions(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list transactions: %w", err)
	}

	res := ReconcileResult{Total: len(txs)}
	live := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		live[tx.ID] = struct{}{}
	}

	exported := map[string]struct{}{}
	lister, canList := w.exporter.(sheets.RowLister)
	if canList {
		rows, err := lister.ListTransactions(ctx)
		if err != nil {
			return res, fmt.Errorf("list exported rows: %w", err)
		}
		for _, r := range rows {
			exported[r.ID] = struct{}{}
		}
	}

	for _, tx := range txs {
		if _, ok := exported[tx.ID]; ok {
			continue
		}
		if _, err := w.exporter.AppendTransaction(ctx, tx); err != nil {
			w.logger.ErrorContext(ctx, "Reconcile export failed", applog.FieldTransactionID, tx.ID, applog.FieldError, err)
			res.Errors++
			continue
		}
		res.Exported++
	}

	for id := range exported {
		if _, ok := live[id]; ok {
			continue
		}
		if err := w.exporter.DeleteTransaction(ctx, id); err != nil {
			w.logger.ErrorContext(ctx, "Reconcile removal failed", applog.FieldTransactionID, id, applog.FieldError, err)
			res.Errors++
			continue
		}
		res.Removed++
	}

	w.logger.InfoContext(ctx, "Reconcile completed",
		"total", res.Total,
		"exported", res.Exported,
		"removed", res.Removed,
		"errors", res.Errors)
	return res, nil
}
