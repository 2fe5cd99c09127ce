package sheets

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pnl_dashboard/config"
)

const snapshotExt = ".csv"

// CSVDir reads exported snapshots, one <tab>.csv file per table.
type CSVDir struct {
	dir string
}

func NewCSVDir(dir string) *CSVDir {
	return &CSVDir{dir: dir}
}

func (c *CSVDir) Dir() string {
	return c.dir
}

// Path is the snapshot file backing ref.
func (c *CSVDir) Path(ref config.TableRef) string {
	return filepath.Join(c.dir, ref.Tab+snapshotExt)
}

// TabForPath returns the tab a snapshot file stands for, or false when the
// file is not a snapshot.
func TabForPath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(base), snapshotExt) {
		return "", false
	}
	tab := strings.TrimSuffix(base, filepath.Ext(base))
	return tab, tab != ""
}

func (c *CSVDir) ReadTable(_ context.Context, ref config.TableRef) (Table, error) {
	grid, err := ReadCSV(c.Path(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return Table{}, fmt.Errorf("%s: %w", ref.Key(), ErrTableNotFound)
	}
	if err != nil {
		return Table{}, err
	}
	return FromGrid(ref, grid), nil
}

// ReadCSV loads every record of a CSV file. Ragged rows are allowed.
func ReadCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	grid, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return grid, nil
}
