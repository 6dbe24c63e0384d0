// Package session keeps the single bearer token of this installation.
//
// The token is opaque. Nothing here tracks expiry: the backend decides a
// token is stale by answering 401, and the auth controller reacts to that.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"kitchenledger/internal/storage"
)

const (
	// TokenKey is the fixed local-storage key of the bearer token.
	TokenKey = "auth_token"
	// PendingEmailKey remembers the address an OTP was sent to between CLI runs.
	PendingEmailKey = "pending_email"
)

// Store reads and writes the session through a durable KV.
type Store struct {
	kv     storage.KV
	logger *slog.Logger
}

func NewStore(kv storage.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger.With("component", "session")}
}

// Get returns the stored token, if any.
func (s *Store) Get(ctx context.Context) (string, bool, error) {
	token, ok, err := s.kv.Get(ctx, TokenKey)
	if err != nil {
		return "", false, fmt.Errorf("read session: %w", err)
	}
	if !ok || strings.TrimSpace(token) == "" {
		return "", false, nil
	}
	return token, true, nil
}

func (s *Store) Set(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("refusing to store an empty token")
	}
	if err := s.kv.Put(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	s.logger.InfoContext(ctx, "Session stored")
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.logger.InfoContext(ctx, "Session cleared")
	return nil
}

// IsAuthenticated reports whether a token is present. Read failures count as logged out.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	_, ok, err := s.Get(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Session read failed", "error", err)
		return false
	}
	return ok
}

// Token satisfies api.TokenSource.
func (s *Store) Token(ctx context.Context) (string, bool) {
	token, ok, err := s.Get(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Session read failed, sending request without token", "error", err)
		return "", false
	}
	return token, ok
}

func (s *Store) PendingEmail(ctx context.Context) (string, bool, error) {
	return s.kv.Get(ctx, PendingEmailKey)
}

func (s *Store) SetPendingEmail(ctx context.Context, email string) error {
	return s.kv.Put(ctx, PendingEmailKey, email)
}

func (s *Store) ClearPendingEmail(ctx context.Context) error {
	return s.kv.Delete(ctx, PendingEmailKey)
}
