package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"kitchenledger/internal/core"
	applog "kitchenledger/internal/log"
)

// ListTransactions returns every transaction of the account in backend order.
func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	const op = "fetch transactions"
	resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/transactions", auth: authOptional})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, &core.ServiceError{Op: op, Status: resp.status, Body: resp.text()}
	}

	var txs []core.Transaction
	if err := resp.decode(op, &txs); err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	for _, tx := range txs {
		if tx.CreatedAt.Unparsed() {
			c.logger.WarnContext(ctx, "Unrecognised transaction timestamp",
				applog.FieldOperation, op, "transaction_id", tx.ID, "created_at", tx.CreatedAt.Raw)
		}
	}
	return txs, nil
}

// GetSummary returns the backend-computed revenue, expense and profit/loss.
func (c *Client) GetSummary(ctx context.Context) (core.Summary, error) {
	const op = "fetch transaction summary"
	resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/transactions/summary", auth: authOptional})
	if err != nil {
		return core.Summary{}, err
	}
	if !resp.ok() {
		return core.Summary{}, &core.ServiceError{Op: op, Status: resp.status, Body: resp.text()}
	}

	var s core.Summary
	if err := resp.decode(op, &s); err != nil {
		return core.Summary{}, err
	}
	return s, nil
}

// CreateTransaction submits a validated draft.
//
// Each call carries a fresh Idempotency-Key header. The backend is not known
// to honour it, so retrying a failed submission may still record it twice.
func (c *Client) CreateTransaction(ctx context.Context, d core.TransactionDraft) error {
	const op = "create transaction"
	resp, err := c.do(ctx, request{
		op:      op,
		method:  http.MethodPost,
		path:    "/transactions",
		body:    d,
		auth:    authOptional,
		headers: map[string]string{"Idempotency-Key": c.idempotencyKey()},
	})
	if err != nil {
		return err
	}
	if !resp.ok() {
		return &core.ServiceError{Op: op, Status: resp.status, Body: resp.text()}
	}
	return nil
}

// DeleteTransaction removes the transaction with the given id.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &core.ValidationError{Field: "id", Msg: "transaction id is required"}
	}

	const op = "delete transaction"
	resp, err := c.do(ctx, request{op: op, method: http.MethodDelete, path: "/transactions/" + url.PathEscape(id), auth: authOptional})
	if err != nil {
		return err
	}
	if !resp.ok() {
		return &core.ServiceError{Op: op, Status: resp.status, Body: resp.text()}
	}
	return nil
}
