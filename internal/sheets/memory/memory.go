// Package memory is an in-memory overdue register used in tests and
// when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"forfettario/internal/core"
)

type Store struct {
	mu   sync.Mutex
	rows []core.Invoice
}

func New() *Store {
	return &Store{}
}

// AppendOverdue stores the invoice and returns a synthetic row
// reference.
func (s *Store) AppendOverdue(_ context.Context, inv core.Invoice) (string, error) {
	if inv.DueDate.IsZero() {
		return "", fmt.Errorf("invoice %d has no due date: %w", inv.ID, core.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, inv)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of the registered invoices.
func (s *Store) Rows() []core.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Invoice, len(s.rows))
	copy(out, s.rows)
	return out
}
