// Package api talks to the cloud-kitchen backend: OTP login, the restaurant
// profile and transaction CRUD.
//
// Every call is a single request with no retry. Non-success statuses
// become *core.ServiceError (or *core.AuthError where the endpoint defines
// it), transport failures become *core.NetworkError.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"kitchenledger/internal/core"
	applog "kitchenledger/internal/log"
)

// DefaultBaseURL is the production backend.
const DefaultBaseURL = "https://cloud-kitchen-backend-5dnj.onrender.com/api"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// TokenSource yields the current bearer token, if there is one.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

type authMode int

const (
	authNone     authMode = iota // never send a token
	authOptional                 // send it when present, the backend enforces
	authRequired                 // fail locally without one
)

type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	logger         *slog.Logger
	idempotencyKey func() string
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIdempotencyKeys overrides the generator of Idempotency-Key header values.
func WithIdempotencyKeys(gen func() string) Option {
	return func(c *Client) {
		if gen != nil {
			c.idempotencyKey = gen
		}
	}
}

func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{},
		tokens:         tokens,
		logger:         slog.Default(),
		idempotencyKey: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(applog.FieldComponent, applog.ComponentAPI)
	return c
}

// BaseURL returns the backend root every path is joined to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type response struct {
	status int
	body   []byte
}

func (r response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r response) text() string {
	return strings.TrimSpace(string(r.body))
}

func (r response) decode(op string, v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return &core.ServiceError{Op: op, Status: r.status, Body: "malformed response: " + err.Error()}
	}
	return nil
}

type request struct {
	op      string
	method  string
	path    string
	body    any
	auth    authMode
	headers map[string]string
}

func (c *Client) do(ctx context.Context, req request) (response, error) {
	var payload io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return response{}, fmt.Errorf("%s: encode request: %w", req.op, err)
		}
		payload = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, payload)
	if err != nil {
		return response{}, fmt.Errorf("%s: build request: %w", req.op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	if req.auth != authNone {
		token, ok := "", false
		if c.tokens != nil {
			token, ok = c.tokens.Token(ctx)
		}
		switch {
		case ok:
			httpReq.Header.Set("Authorization", "Bearer "+token)
		case req.auth == authRequired:
			return response{}, core.ErrMissingToken
		}
	}

	c.logger.DebugContext(ctx, "Backend request",
		applog.FieldOperation, req.op,
		applog.FieldMethod, req.method,
		applog.FieldEndpoint, req.path,
		"authorized", httpReq.Header.Get("Authorization") != "")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.WarnContext(ctx, "Backend unreachable", applog.FieldOperation, req.op, applog.FieldError, err)
		return response{}, &core.NetworkError{Op: req.op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return response{}, &core.NetworkError{Op: req.op, Err: fmt.Errorf("read response: %w", err)}
	}

	out := response{status: resp.StatusCode, body: body}
	if !out.ok() {
		c.logger.WarnContext(ctx, "Backend returned error status",
			applog.FieldOperation, req.op,
			applog.FieldStatusCode, out.status,
			"body", out.text())
	}
	return out, nil
}
