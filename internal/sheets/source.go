package sheets

import (
	"context"
	"errors"

	"pnl_dashboard/config"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrReadOnly      = errors.New("table source is read-only")
	ErrRowNotFound   = errors.New("row not found")
)

// Source reads whole tables.
type Source interface {
	ReadTable(ctx context.Context, ref config.TableRef) (Table, error)
}

// Writer edits single rows. Row numbers are 1-based sheet rows as reported
// in Row.Number.
type Writer interface {
	Source
	AppendRow(ctx context.Context, ref config.TableRef, values map[string]string) error
	UpdateRow(ctx context.Context, ref config.TableRef, rowNumber int, values map[string]string) error
	DeleteRow(ctx context.Context, ref config.TableRef, rowNumber int) error
}
