package pipeline

import (
	"context"
	"sync"

	"github.com/matzehuels/marketmap/pkg/dataset"
	"github.com/matzehuels/marketmap/pkg/errors"
)

// Source supplies the typed input tables. Implementations may block on I/O
// and should honor ctx.
type Source interface {
	// Constituents returns the reference table rows.
	Constituents(ctx context.Context) ([]dataset.ConstituentRow, error)

	// Changes returns the change table for maturity m.
	Changes(ctx context.Context, m dataset.Maturity) (*dataset.ChangeTable, error)
}

// StaticSource serves in-memory tables. It is safe for concurrent use once
// populated.
type StaticSource struct {
	mu     sync.RWMutex
	rows   []dataset.ConstituentRow
	tables map[dataset.Maturity]*dataset.ChangeTable
}

// NewStaticSource creates a source over rows and the given change tables.
func NewStaticSource(rows []dataset.ConstituentRow, tables ...*dataset.ChangeTable) *StaticSource {
	s := &StaticSource{rows: rows, tables: make(map[dataset.Maturity]*dataset.ChangeTable)}
	for _, t := range tables {
		s.tables[t.Maturity()] = t
	}
	return s
}

// SetChanges replaces the table for t's maturity.
func (s *StaticSource) SetChanges(t *dataset.ChangeTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.Maturity()] = t
}

// Constituents implements Source.
func (s *StaticSource) Constituents(ctx context.Context) ([]dataset.ConstituentRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows, nil
}

// Changes implements Source. An unknown maturity yields an empty table, so
// every date selection on it is an empty hierarchy.
func (s *StaticSource) Changes(ctx context.Context, m dataset.Maturity) (*dataset.ChangeTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !m.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidMaturity, "invalid maturity: %q", m)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tables[m]; ok {
		return t, nil
	}
	return dataset.NewChangeTable(m), nil
}

var _ Source = (*StaticSource)(nil)
