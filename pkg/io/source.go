package io

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/marketmap/pkg/dataset"
	"github.com/matzehuels/marketmap/pkg/errors"
	"github.com/matzehuels/marketmap/pkg/pipeline"
)

// Paths names the table files of a [FileSource]. Relative paths resolve
// against the source directory.
type Paths struct {
	Reference string `toml:"reference" json:"reference"`
	Dates     string `toml:"dates" json:"dates"`
	Daily     string `toml:"daily" json:"daily"`
	Monthly   string `toml:"monthly" json:"monthly"`
	Annual    string `toml:"annual" json:"annual"`
}

// DefaultPaths returns the standard file names.
func DefaultPaths() Paths {
	return Paths{
		Reference: "stock_data.csv",
		Dates:     "date_only.csv",
		Daily:     "daily_stock_changes.csv",
		Monthly:   "monthly_stock_changes.csv",
		Annual:    "annual_stock_changes.csv",
	}
}

// WithDefaults returns p with empty entries replaced by DefaultPaths.
func (p Paths) WithDefaults() Paths {
	d := DefaultPaths()
	if p.Reference == "" {
		p.Reference = d.Reference
	}
	if p.Dates == "" {
		p.Dates = d.Dates
	}
	if p.Daily == "" {
		p.Daily = d.Daily
	}
	if p.Monthly == "" {
		p.Monthly = d.Monthly
	}
	if p.Annual == "" {
		p.Annual = d.Annual
	}
	return p
}

// Changes returns the change file of maturity m, or "" for an unknown one.
func (p Paths) Changes(m dataset.Maturity) string {
	switch m {
	case dataset.Daily:
		return p.Daily
	case dataset.Monthly:
		return p.Monthly
	case dataset.Annual:
		return p.Annual
	}
	return ""
}

// FileSource serves tables from files. It is safe for concurrent use;
// concurrent first requests for the same table share one read.
type FileSource struct {
	dir    string
	paths  Paths
	logger *log.Logger

	loads singleflight.Group

	mu       sync.RWMutex
	rows     []dataset.ConstituentRow
	rejected []*errors.InvalidDataError
	hasRows  bool
	dates    []string
	tables   map[dataset.Maturity]*dataset.ChangeTable
}

// NewFileSource creates a source reading from dir. Empty entries of paths
// use the defaults; a nil logger discards output.
func NewFileSource(dir string, paths Paths, logger *log.Logger) *FileSource {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &FileSource{
		dir:    dir,
		paths:  paths.WithDefaults(),
		logger: logger,
		tables: make(map[dataset.Maturity]*dataset.ChangeTable),
	}
}

// Dir returns the source directory.
func (s *FileSource) Dir() string { return s.dir }

// Path resolves name against the source directory.
func (s *FileSource) Path(name string) string {
	if s.dir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// Constituents implements pipeline.Source.
func (s *FileSource) Constituents(ctx context.Context) ([]dataset.ConstituentRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	if s.hasRows {
		defer s.mu.RUnlock()
		return s.rows, nil
	}
	s.mu.RUnlock()

	_, err, _ := s.loads.Do("reference", func() (any, error) {
		path := s.Path(s.paths.Reference)
		t, err := ImportTable(path)
		if err != nil {
			return nil, err
		}
		rows, rejected, err := dataset.ConstituentsFromTable(t)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, r := range rejected {
			s.logger.Debug("rejected reference row", "row", r.Row, "ticker", r.Ticker, "reason", r.Reason)
		}
		s.logger.Debug("loaded reference table", "path", path, "rows", len(rows), "rejected", len(rejected))

		s.mu.Lock()
		s.rows, s.rejected, s.hasRows = rows, rejected, true
		s.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows, nil
}

// Rejected returns the reference rows excluded while loading. It is empty
// until Constituents has run.
func (s *FileSource) Rejected() []*errors.InvalidDataError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rejected
}

// Changes implements pipeline.Source.
func (s *FileSource) Changes(ctx context.Context, m dataset.Maturity) (*dataset.ChangeTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !m.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidMaturity, "invalid maturity: %q", m)
	}
	if t := s.cachedTable(m); t != nil {
		return t, nil
	}

	_, err, _ := s.loads.Do("changes:"+string(m), func() (any, error) {
		path := s.Path(s.paths.Changes(m))
		t, err := ImportTable(path)
		if err != nil {
			return nil, err
		}
		ct, err := dataset.ChangesFromTable(t, m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		s.logger.Debug("loaded change table", "maturity", m, "path", path, "dates", ct.Len())

		s.mu.Lock()
		s.tables[m] = ct
		s.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return s.cachedTable(m), nil
}

func (s *FileSource) cachedTable(m dataset.Maturity) *dataset.ChangeTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables[m]
}

// Dates returns the selectable dates in file order. When the date file is
// missing the dates of the daily change table are used instead.
func (s *FileSource) Dates(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	if s.dates != nil {
		defer s.mu.RUnlock()
		return s.dates, nil
	}
	s.mu.RUnlock()

	_, err, _ := s.loads.Do("dates", func() (any, error) {
		dates, err := s.loadDates(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.dates = dates
		s.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dates, nil
}

func (s *FileSource) loadDates(ctx context.Context) ([]string, error) {
	path := s.Path(s.paths.Dates)
	t, err := ImportTable(path)
	if errors.Is(err, errors.ErrCodeFileNotFound) {
		s.logger.Debug("date file missing, using daily table", "path", path)
		ct, err := s.Changes(ctx, dataset.Daily)
		if err != nil {
			return nil, err
		}
		return ct.Dates(), nil
	}
	if err != nil {
		return nil, err
	}
	dates, err := dataset.DatesFromTable(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return dates, nil
}

// DefaultSelection returns the first available date with the default
// maturity.
func (s *FileSource) DefaultSelection(ctx context.Context) (dataset.Selection, error) {
	dates, err := s.Dates(ctx)
	if err != nil {
		return dataset.Selection{}, err
	}
	if len(dates) == 0 {
		return dataset.Selection{}, errors.New(errors.ErrCodeNotFound, "no dates available")
	}
	return dataset.Selection{Date: dates[0], Maturity: dataset.DefaultMaturity}, nil
}

// Preload reads every table concurrently. A missing change file for one
// maturity is an error; callers serving a subset of maturities can skip
// Preload and rely on lazy loading.
func (s *FileSource) Preload(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.Constituents(gctx)
		return err
	})
	g.Go(func() error {
		_, err := s.Dates(gctx)
		return err
	})
	for _, m := range dataset.Maturities() {
		g.Go(func() error {
			_, err := s.Changes(gctx, m)
			return err
		})
	}
	return g.Wait()
}

// Reload drops every cached table.
func (s *FileSource) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows, s.rejected, s.hasRows = nil, nil, false
	s.dates = nil
	s.tables = make(map[dataset.Maturity]*dataset.ChangeTable)
}

var _ pipeline.Source = (*FileSource)(nil)
