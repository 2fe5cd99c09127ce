package sheets

import (
	"context"
	"errors"
	"fmt"

	"pnl_dashboard/config"
	"pnl_dashboard/internal/store"
)

// The header occupies row 1, so data row i (0-based) is sheet row i+2.
const sqliteFirstDataRow = 2

// SQLite serves tables from the local store with full row editing.
type SQLite struct {
	store *store.Store
}

func NewSQLite(s *store.Store) *SQLite {
	return &SQLite{store: s}
}

func (s *SQLite) ReadTable(ctx context.Context, ref config.TableRef) (Table, error) {
	grid, err := s.store.LoadTable(ctx, ref)
	if err != nil {
		return Table{}, mapStoreErr(ref, err)
	}
	return NewTable(ref, grid.Headers, grid.Rows, sqliteFirstDataRow), nil
}

func (s *SQLite) AppendRow(ctx context.Context, ref config.TableRef, values map[string]string) error {
	grid, err := s.store.LoadTable(ctx, ref)
	if err != nil {
		return mapStoreErr(ref, err)
	}
	return mapStoreErr(ref, s.store.AppendRow(ctx, ref, Align(grid.Headers, values)))
}

func (s *SQLite) UpdateRow(ctx context.Context, ref config.TableRef, rowNumber int, values map[string]string) error {
	grid, err := s.store.LoadTable(ctx, ref)
	if err != nil {
		return mapStoreErr(ref, err)
	}
	return mapStoreErr(ref, s.store.UpdateRow(ctx, ref, rowNumber-sqliteFirstDataRow, Align(grid.Headers, values)))
}

func (s *SQLite) DeleteRow(ctx context.Context, ref config.TableRef, rowNumber int) error {
	return mapStoreErr(ref, s.store.DeleteRow(ctx, ref, rowNumber-sqliteFirstDataRow))
}

func mapStoreErr(ref config.TableRef, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrTableNotFound):
		return fmt.Errorf("%s: %w", ref.Key(), ErrTableNotFound)
	case errors.Is(err, store.ErrRowNotFound):
		return fmt.Errorf("%s: %w", ref.Key(), ErrRowNotFound)
	default:
		return err
	}
}
