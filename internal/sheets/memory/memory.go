package memory

import (
	"context"
	"sync"

	ports "fintrack/internal/sheets"
)

// Mirror keeps the last replaced rows in memory.
type Mirror struct {
	mu       sync.Mutex
	rows     [][]string
	replaces int
}

var _ ports.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) Replace(_ context.Context, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = copyRows(rows)
	m.replaces++
	return nil
}

// Rows returns a copy of the current sheet contents.
func (m *Mirror) Rows() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyRows(m.rows)
}

// Replaces reports how many times the sheet was rewritten.
func (m *Mirror) Replaces() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaces
}

func copyRows(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, r := range in {
		out[i] = append([]string(nil), r...)
	}
	return out
}
