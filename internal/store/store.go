package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"pnl_dashboard/config"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrRowNotFound   = errors.New("row not found")
)

// Store keeps spreadsheet-shaped tables in SQLite. Each table has a header
// list and ordered rows of string values aligned with it.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sheet_tables (
			sheet_id TEXT NOT NULL,
			tab TEXT NOT NULL,
			headers_json TEXT NOT NULL,
			updated_at TIMESTAMP,
			PRIMARY KEY (sheet_id, tab)
		);`,
		`CREATE TABLE IF NOT EXISTS sheet_rows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sheet_id TEXT NOT NULL,
			tab TEXT NOT NULL,
			position INTEGER NOT NULL,
			values_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sheet_rows_table ON sheet_rows(sheet_id, tab, position);`,
		`CREATE TABLE IF NOT EXISTS snapshot_imports (
			path TEXT PRIMARY KEY,
			size_bytes INTEGER,
			mod_time TIMESTAMP,
			row_count INTEGER,
			imported_at TIMESTAMP
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Grid is a table as stored: headers plus data rows in sheet order.
type Grid struct {
	Headers   []string
	Rows      [][]string
	UpdatedAt time.Time
}

// ReplaceTable overwrites a table's headers and rows in one transaction.
func (s *Store) ReplaceTable(ctx context.Context, ref config.TableRef, headers []string, rows [][]string) error {
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO sheet_tables(sheet_id, tab, headers_json, updated_at) VALUES(?,?,?,?)
		ON CONFLICT(sheet_id, tab) DO UPDATE SET headers_json=excluded.headers_json, updated_at=excluded.updated_at`,
		ref.SheetID, ref.Tab, string(headersJSON), time.Now().UTC()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_rows WHERE sheet_id=? AND tab=?`, ref.SheetID, ref.Tab); err != nil {
		return err
	}
	for i, row := range rows {
		valuesJSON, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO sheet_rows(sheet_id, tab, position, values_json) VALUES(?,?,?,?)`,
			ref.SheetID, ref.Tab, i, string(valuesJSON)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) LoadTable(ctx context.Context, ref config.TableRef) (Grid, error) {
	var grid Grid
	var headersJSON string
	var updated sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT headers_json, updated_at FROM sheet_tables WHERE sheet_id=? AND tab=?`, ref.SheetID, ref.Tab).
		Scan(&headersJSON, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return grid, fmt.Errorf("%s: %w", ref.Key(), ErrTableNotFound)
	}
	if err != nil {
		return grid, err
	}
	if err := json.Unmarshal([]byte(headersJSON), &grid.Headers); err != nil {
		return grid, fmt.Errorf("decode headers for %s: %w", ref.Key(), err)
	}
	if updated.Valid {
		grid.UpdatedAt = updated.Time
	}

	rows, err := s.db.QueryContext(ctx, `SELECT values_json FROM sheet_rows WHERE sheet_id=? AND tab=? ORDER BY position ASC, id ASC`, ref.SheetID, ref.Tab)
	if err != nil {
		return grid, err
	}
	defer rows.Close()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return grid, err
		}
		var values []string
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			return grid, fmt.Errorf("decode row for %s: %w", ref.Key(), err)
		}
		grid.Rows = append(grid.Rows, values)
	}
	return grid, rows.Err()
}

// AppendRow adds a data row after the last one.
func (s *Store) AppendRow(ctx context.Context, ref config.TableRef, values []string) error {
	if err := s.requireTable(ctx, ref); err != nil {
		return err
	}
	valuesJSON, err := json.Marshal(values)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO sheet_rows(sheet_id, tab, position, values_json)
		VALUES(?, ?, COALESCE((SELECT MAX(position) + 1 FROM sheet_rows WHERE sheet_id=? AND tab=?), 0), ?)`,
		ref.SheetID, ref.Tab, ref.SheetID, ref.Tab, string(valuesJSON))
	if err == nil {
		err = s.touch(ctx, ref)
	}
	return err
}

// UpdateRow replaces the values of the index-th data row (0-based).
func (s *Store) UpdateRow(ctx context.Context, ref config.TableRef, index int, values []string) error {
	id, err := s.rowID(ctx, ref, index)
	if err != nil {
		return err
	}
	valuesJSON, err := json.Marshal(values)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE sheet_rows SET values_json=? WHERE id=?`, string(valuesJSON), id); err != nil {
		return err
	}
	return s.touch(ctx, ref)
}

// DeleteRow removes the index-th data row (0-based); later rows move up.
func (s *Store) DeleteRow(ctx context.Context, ref config.TableRef, index int) error {
	id, err := s.rowID(ctx, ref, index)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sheet_rows WHERE id=?`, id); err != nil {
		return err
	}
	return s.touch(ctx, ref)
}

func (s *Store) rowID(ctx context.Context, ref config.TableRef, index int) (int64, error) {
	if err := s.requireTable(ctx, ref); err != nil {
		return 0, err
	}
	if index < 0 {
		return 0, fmt.Errorf("row %d: %w", index, ErrRowNotFound)
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM sheet_rows WHERE sheet_id=? AND tab=? ORDER BY position ASC, id ASC LIMIT 1 OFFSET ?`,
		ref.SheetID, ref.Tab, index).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("row %d: %w", index, ErrRowNotFound)
	}
	return id, err
}

func (s *Store) requireTable(ctx context.Context, ref config.TableRef) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sheet_tables WHERE sheet_id=? AND tab=?`, ref.SheetID, ref.Tab).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", ref.Key(), ErrTableNotFound)
	}
	return nil
}

func (s *Store) touch(ctx context.Context, ref config.TableRef) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sheet_tables SET updated_at=? WHERE sheet_id=? AND tab=?`, time.Now().UTC(), ref.SheetID, ref.Tab)
	return err
}

// Import records one CSV snapshot loaded into the store.
type Import struct {
	Path       string
	SizeBytes  int64
	ModTime    time.Time
	RowCount   int
	ImportedAt time.Time
}

func (s *Store) RecordImport(ctx context.Context, imp Import) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO snapshot_imports(path, size_bytes, mod_time, row_count, imported_at) VALUES(?,?,?,?,?)
		ON CONFLICT(path) DO UPDATE SET size_bytes=excluded.size_bytes, mod_time=excluded.mod_time, row_count=excluded.row_count, imported_at=excluded.imported_at`,
		imp.Path, imp.SizeBytes, imp.ModTime.UTC(), imp.RowCount, imp.ImportedAt.UTC())
	return err
}

// Imports returns every recorded import keyed by path.
func (s *Store) Imports(ctx context.Context) (map[string]Import, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, size_bytes, mod_time, row_count, imported_at FROM snapshot_imports`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]Import)
	for rows.Next() {
		var imp Import
		if err := rows.Scan(&imp.Path, &imp.SizeBytes, &imp.ModTime, &imp.RowCount, &imp.ImportedAt); err != nil {
			return nil, err
		}
		out[imp.Path] = imp
	}
	return out, rows.Err()
}

// Health returns err if DB not reachable.
func (s *Store) Health(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, `SELECT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}
