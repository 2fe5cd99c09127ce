package backfill

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pnl_dashboard/config"
	"pnl_dashboard/internal/sheets"
	"pnl_dashboard/internal/store"
	"pnl_dashboard/logger"
)

// Snapshots imports <tab>.csv files from a directory into the SQLite store.
// A file feeds every configured table whose tab matches its name.
type Snapshots struct {
	dir    string
	store  *store.Store
	tables config.Tables
	now    func() time.Time
	done   func(Summary)
	log    *logger.Entry
}

func NewSnapshots(dir string, st *store.Store, tables config.Tables) *Snapshots {
	return &Snapshots{
		dir:    dir,
		store:  st,
		tables: tables,
		now:    time.Now,
		log:    logger.GetLogger().WithComponent("backfill"),
	}
}

// OnComplete registers a callback for the end of a run.
func (s *Snapshots) OnComplete(fn func(Summary)) *Snapshots {
	s.done = fn
	return s
}

func (s *Snapshots) ListCandidates(ctx context.Context) ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scan snapshot dir: %w", err)
	}
	imports, err := s.store.Imports(ctx)
	if err != nil {
		return nil, fmt.Errorf("load imports: %w", err)
	}

	var out []Record
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		tab, ok := sheets.TabForPath(path)
		if !ok {
			continue
		}
		if len(s.refsForTab(tab)) == 0 {
			s.log.WithField("path", path).Debug("snapshot has no configured table")
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		rec := Record{Path: path, Tab: tab, ModTime: info.ModTime(), SizeBytes: info.Size()}
		if prev, ok := imports[path]; ok {
			rec.Imported = prev.SizeBytes == rec.SizeBytes && prev.ModTime.Equal(rec.ModTime)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ImportRecord replaces each matching table with the file's contents and
// returns the number of data rows written per table.
func (s *Snapshots) ImportRecord(ctx context.Context, rec Record) (int, error) {
	grid, err := sheets.ReadCSV(rec.Path)
	if err != nil {
		return 0, err
	}
	headers, rows := splitGrid(grid)
	if len(headers) == 0 {
		return 0, fmt.Errorf("%s: no header row", rec.Path)
	}
	for _, ref := range s.refsForTab(rec.Tab) {
		if err := s.store.ReplaceTable(ctx, ref, headers, rows); err != nil {
			return 0, fmt.Errorf("replace %s: %w", ref.Key(), err)
		}
	}
	err = s.store.RecordImport(ctx, store.Import{
		Path:       rec.Path,
		SizeBytes:  rec.SizeBytes,
		ModTime:    rec.ModTime,
		RowCount:   len(rows),
		ImportedAt: s.now(),
	})
	if err != nil {
		return 0, fmt.Errorf("record import: %w", err)
	}
	s.log.WithFields(logger.Fields{"path": rec.Path, "rows": len(rows)}).Info("snapshot imported")
	return len(rows), nil
}

func (s *Snapshots) OnBackfillComplete(summary Summary) {
	if s.done != nil {
		s.done(summary)
	}
}

func (s *Snapshots) refsForTab(tab string) []config.TableRef {
	var refs []config.TableRef
	seen := make(map[string]bool)
	for _, name := range s.tables.Names() {
		ref, _ := s.tables.Lookup(name)
		if ref.Tab != tab || seen[ref.Key()] {
			continue
		}
		seen[ref.Key()] = true
		refs = append(refs, ref)
	}
	return refs
}

// splitGrid drops title rows above the detected header and trailing blank
// rows below the data.
func splitGrid(grid [][]string) ([]string, [][]string) {
	if len(grid) == 0 {
		return nil, nil
	}
	h := sheets.DetectHeader(grid)
	rows := grid[h+1:]
	for len(rows) > 0 && strings.TrimSpace(strings.Join(rows[len(rows)-1], "")) == "" {
		rows = rows[:len(rows)-1]
	}
	return grid[h], rows
}
