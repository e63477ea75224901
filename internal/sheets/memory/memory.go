package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"dompet/internal/core"
	"dompet/internal/sheets"
)

var _ sheets.TransactionExporter = (*Store)(nil)

// Store keeps exported rows in process, in insertion order.
type Store struct {
	mu   sync.Mutex
	ids  []string
	rows map[string][]string
}

func New() *Store {
	return &Store{rows: make(map[string][]string)}
}

// Upsert stores t and returns a synthetic row reference.
func (s *Store) Upsert(_ context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", errors.New("transaction id is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[t.ID]; !ok {
		s.ids = append(s.ids, t.ID)
	}
	s.rows[t.ID] = sheets.Row(t)
	return fmt.Sprintf("mem:%d", s.indexOf(t.ID)+1), nil
}

func (s *Store) Remove(_ context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(transactionID)
	if i < 0 {
		return nil
	}
	s.ids = append(s.ids[:i], s.ids[i+1:]...)
	delete(s.rows, transactionID)
	return nil
}

// Rows returns a copy of the exported rows.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, append([]string(nil), s.rows[id]...))
	}
	return out
}

func (s *Store) indexOf(id string) int {
	for i, v := range s.ids {
		if v == id {
			return i
		}
	}
	return -1
}
