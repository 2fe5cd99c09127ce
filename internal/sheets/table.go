package sheets

import (
	"encoding/json"
	"strings"

	"pnl_dashboard/config"
)

const (
	headerScanRows  = 15
	maxHeaderLength = 60
)

// Row is one data row. Number is the 1-based row number in the sheet, which
// is what update and delete address.
type Row struct {
	Number int
	Values map[string]string
}

// MarshalJSON flattens the values and adds the row number as _rowIndex.
func (r Row) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Values)+1)
	for k, v := range r.Values {
		out[k] = v
	}
	out["_rowIndex"] = r.Number
	return json.Marshal(out)
}

// Table is a header-keyed view of one tab.
type Table struct {
	Ref     config.TableRef `json:"-"`
	Headers []string        `json:"headers"`
	Rows    []Row           `json:"rows"`
}

// DetectHeader picks the header row among the first rows of a grid: the row
// with the most short non-empty cells. Ties keep the earliest row.
func DetectHeader(grid [][]string) int {
	best, bestScore := 0, 0
	for i := 0; i < len(grid) && i < headerScanRows; i++ {
		score := 0
		for _, cell := range grid[i] {
			n := len(strings.TrimSpace(cell))
			if n > 0 && n < maxHeaderLength {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// FromGrid builds a table from raw cell values as a sheet returns them.
func FromGrid(ref config.TableRef, grid [][]string) Table {
	if len(grid) == 0 {
		return Table{Ref: ref, Headers: []string{}, Rows: []Row{}}
	}
	headerIdx := DetectHeader(grid)
	return NewTable(ref, grid[headerIdx], grid[headerIdx+1:], headerIdx+2)
}

// NewTable keys each row by header. firstRowNumber is the sheet row number of
// rows[0]. Blank rows are dropped but keep their numbering.
func NewTable(ref config.TableRef, headers []string, rows [][]string, firstRowNumber int) Table {
	t := Table{Ref: ref, Headers: make([]string, len(headers)), Rows: make([]Row, 0, len(rows))}
	for i, h := range headers {
		t.Headers[i] = strings.TrimSpace(h)
	}
	for i, cells := range rows {
		if isBlank(cells) {
			continue
		}
		values := make(map[string]string, len(t.Headers))
		for col, h := range t.Headers {
			if h == "" {
				continue
			}
			v := ""
			if col < len(cells) {
				v = strings.TrimSpace(cells[col])
			}
			values[h] = v
		}
		t.Rows = append(t.Rows, Row{Number: firstRowNumber + i, Values: values})
	}
	return t
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Records returns the row values as plain maps, the shape the engine reads.
func (t Table) Records() []map[string]string {
	out := make([]map[string]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Values
	}
	return out
}

// Align orders values by header so they can be written as a sheet row.
// Unknown keys are dropped and missing ones are blank.
func Align(headers []string, values map[string]string) []string {
	row := make([]string, len(headers))
	for i, h := range headers {
		row[i] = values[h]
	}
	return row
}
