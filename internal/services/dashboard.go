// Package services holds the dashboard state machine between the backend
// client and the view layers (web and CLI).
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"kitchenledger/internal/amqp"
	"kitchenledger/internal/analytics"
	"kitchenledger/internal/core"
	applog "kitchenledger/internal/log"
)

// Backend is the transaction half of the API client.
type Backend interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	GetSummary(ctx context.Context) (core.Summary, error)
	CreateTransaction(ctx context.Context, d core.TransactionDraft) error
	DeleteTransaction(ctx context.Context, id string) error
}

// EventPublisher receives ledger events after successful changes.
type EventPublisher interface {
	Publish(ctx context.Context, e *amqp.LedgerEvent) error
}

// Snapshot is the last successfully loaded dashboard state.
type Snapshot struct {
	Summary      core.Summary       `json:"summary"`
	Transactions []core.Transaction `json:"transactions"`
	Report       analytics.Report   `json:"report"`
	RefreshedAt  time.Time          `json:"refreshed_at"`
	Loaded       bool               `json:"loaded"`
}

type Dashboard struct {
	backend   Backend
	memo      *analytics.Memo
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time

	mu   sync.RWMutex
	snap Snapshot
	// epoch is bumped by Reset; a refresh started in an older epoch is
	// dropped. seq orders refreshes so an older fetch never replaces a newer one.
	epoch     uint64
	seq       uint64
	committed uint64
}

// ErrSessionEnded is returned by a refresh that was overtaken by Reset.
var ErrSessionEnded = errors.New("session ended during refresh")

type Option func(*Dashboard)

// WithPublisher enables ledger events. A nil publisher leaves them off.
func WithPublisher(p EventPublisher) Option {
	return func(d *Dashboard) { d.publisher = p }
}

func WithMemo(m *analytics.Memo) Option {
	return func(d *Dashboard) { d.memo = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dashboard) {
		if l != nil {
			d.logger = l
		}
	}
}

func NewDashboard(backend Backend, opts ...Option) *Dashboard {
	d := &Dashboard{
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.memo == nil {
		d.memo = analytics.NewMemo(8, 0)
	}
	d.logger = d.logger.With(applog.FieldComponent, applog.ComponentLedger)
	return d
}

// Snapshot returns the current state without touching the backend.
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap
}

// Reset forgets the loaded state, e.g. after the session ends.
func (d *Dashboard) Reset() {
	d.mu.Lock()
	d.snap = Snapshot{}
	d.epoch++
	d.mu.Unlock()
}

// Refresh fetches the summary and the transaction list concurrently. If
// either call fails the whole refresh fails and the previous snapshot stays.
// A Reset during the fetch discards the result with ErrSessionEnded.
func (d *Dashboard) Refresh(ctx context.Context) (Snapshot, error) {
	d.mu.Lock()
	d.seq++
	seq, epoch := d.seq, d.epoch
	d.mu.Unlock()

	var (
		summary core.Summary
		txs     []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := d.backend.GetSummary(gctx)
		if err != nil {
			return err
		}
		summary = s
		return nil
	})
	g.Go(func() error {
		list, err := d.backend.ListTransactions(gctx)
		if err != nil {
			return err
		}
		txs = list
		return nil
	})
	if err := g.Wait(); err != nil {
		d.logger.WarnContext(ctx, "Dashboard refresh failed",
			applog.FieldOperation, applog.OpRefresh,
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorType(err))
		return d.Snapshot(), err
	}

	next := Snapshot{
		Summary:      summary,
		Transactions: txs,
		Report:       d.memo.Aggregate(txs),
		RefreshedAt:  d.now(),
		Loaded:       true,
	}
	d.mu.Lock()
	switch {
	case d.epoch != epoch:
		cur := d.snap
		d.mu.Unlock()
		d.logger.InfoContext(ctx, "Dropped refresh of an ended session", applog.FieldOperation, applog.OpRefresh)
		return cur, ErrSessionEnded
	case seq < d.committed:
		cur := d.snap
		d.mu.Unlock()
		return cur, nil
	}
	d.snap = next
	d.committed = seq
	d.mu.Unlock()

	d.logger.DebugContext(ctx, "Dashboard refreshed", "transactions", len(txs))
	return next, nil
}

// Add validates in, submits it and refreshes. Validation failures never
// reach the backend.
func (d *Dashboard) Add(ctx context.Context, in core.DraftInput) (Snapshot, error) {
	draft, err := core.NewDraft(in)
	if err != nil {
		return d.Snapshot(), err
	}
	before := d.Snapshot()
	// created() diffs against the prior list, so it has to be known before
	// anything is published.
	if !before.Loaded && d.publisher != nil {
		loaded, err := d.Refresh(ctx)
		if err != nil {
			return before, err
		}
		before = loaded
	}

	if err := d.backend.CreateTransaction(ctx, draft); err != nil {
		d.logger.WarnContext(ctx, "Create transaction failed",
			applog.FieldOperation, applog.OpCreate,
			applog.FieldKind, draft.Kind,
			applog.FieldError, err)
		return before, err
	}
	d.logger.InfoContext(ctx, "Transaction created", applog.NewFields().
		WithTransaction("", string(draft.Kind), draft.CategorySource, draft.Amount.String()).
		WithOperation(applog.OpCreate).
		ToSlice()...)

	snap, err := d.Refresh(ctx)
	if err != nil {
		return snap, fmt.Errorf("transaction saved but refresh failed: %w", err)
	}
	for _, tx := range created(before.Transactions, snap.Transactions, draft) {
		d.publish(ctx, amqp.NewCreatedEvent(tx))
	}
	return snap, nil
}

// Delete removes id on the backend. On failure the local list is left as is
// until the next successful refresh.
func (d *Dashboard) Delete(ctx context.Context, id string) (Snapshot, error) {
	if err := d.backend.DeleteTransaction(ctx, id); err != nil {
		d.logger.WarnContext(ctx, "Delete transaction failed",
			applog.FieldOperation, applog.OpDelete,
			applog.FieldTransactionID, id,
			applog.FieldError, err)
		return d.Snapshot(), err
	}
	d.logger.InfoContext(ctx, "Transaction deleted", applog.FieldTransactionID, id)
	d.publish(ctx, amqp.NewDeletedEvent(id))

	snap, err := d.Refresh(ctx)
	if err != nil {
		return snap, fmt.Errorf("transaction deleted but refresh failed: %w", err)
	}
	return snap, nil
}

func (d *Dashboard) publish(ctx context.Context, e *amqp.LedgerEvent) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(ctx, e); err != nil {
		d.logger.WarnContext(ctx, "Ledger event not published",
			"type", e.Type,
			applog.FieldTransactionID, e.ID,
			applog.FieldError, err)
	}
}

// created picks the transactions that appeared between two lists and match
// the submitted draft. The create endpoint does not return the new record.
func created(before, after []core.Transaction, d core.TransactionDraft) []core.Transaction {
	known := make(map[string]struct{}, len(before))
	for _, tx := range before {
		known[tx.ID] = struct{}{}
	}
	var out []core.Transaction
	for _, tx := range after {
		if _, ok := known[tx.ID]; ok {
			continue
		}
		if tx.Kind == d.Kind && tx.CategorySource == d.CategorySource && tx.Amount.Equal(d.Amount.Decimal) {
			out = append(out, tx)
		}
	}
	return out
}
