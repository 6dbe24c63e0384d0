package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"kitchenledger/internal/core"
	ports "kitchenledger/internal/sheets"
)

// Store is an in-process Exporter for tests and dry runs.
type Store struct {
	mu    sync.Mutex
	rows  []core.Transaction
	index map[string]int
}

var (
	_ ports.Exporter  = (*Store)(nil)
	_ ports.RowLister = (*Store)(nil)
)

func New() *Store {
	return &Store{index: make(map[string]int)}
}

// AppendTransaction stores tx once per ID and returns a synthetic row reference.
func (s *Store) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		return "", errors.New("transaction without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[tx.ID]; ok {
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	s.rows = append(s.rows, tx)
	s.index[tx.ID] = len(s.rows) - 1
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// DeleteTransaction removes the row for id; unknown ids are ignored.
func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.rows); j++ {
		s.index[s.rows[j].ID] = j
	}
	return nil
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.rows...), nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
