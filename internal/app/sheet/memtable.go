package sheet

import (
	"context"
	"fmt"
	"sync"
)

// MemTable - лист в памяти (dev/тесты)
type MemTable struct {
	mu   sync.RWMutex
	rows []Row
}

func NewMemTable(rows ...Row) *MemTable {
	t := &MemTable{}
	for _, r := range rows {
		t.rows = append(t.rows, r.Clone())
	}
	return t
}

func (t *MemTable) Append(_ context.Context, row Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, row.Clone())
	return nil
}

func (t *MemTable) Rows(_ context.Context) ([]Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Clone()
	}
	return out, nil
}

func (t *MemTable) Update(_ context.Context, index int, row Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.rows) {
		return fmt.Errorf("row %d out of range (rows: %d)", index, len(t.rows))
	}
	t.rows[index] = row.Clone()
	return nil
}
