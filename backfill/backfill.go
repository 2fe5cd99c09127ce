package backfill

import (
	"context"
	"sort"
	"time"

	"pnl_dashboard/logger"
)

// Record is one CSV snapshot and whether its current version is already in
// the store.
type Record struct {
	Path      string
	Tab       string
	ModTime   time.Time
	SizeBytes int64
	Imported  bool
}

// Summary captures import run counts.
type Summary struct {
	TotalCandidates int `json:"total"`
	AlreadyImported int `json:"already_imported"`
	Pending         int `json:"pending"`
	Selected        int `json:"selected"`
	Imported        int `json:"imported"`
	Failed          int `json:"failed"`
	Rows            int `json:"rows"`
}

// Repository describes the snapshot source and the store imports land in.
type Repository interface {
	ListCandidates(ctx context.Context) ([]Record, error)
	ImportRecord(ctx context.Context, rec Record) (int, error)
	OnBackfillComplete(summary Summary)
}

// SelectPending returns up to limit records, newest first, whose current
// version has not been imported. A limit <= 0 selects all of them.
func SelectPending(records []Record, limit int) ([]Record, Summary) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ModTime.After(records[j].ModTime)
	})

	summary := Summary{TotalCandidates: len(records)}
	pending := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Imported {
			summary.AlreadyImported++
			continue
		}
		pending = append(pending, r)
	}

	summary.Pending = len(pending)
	if limit > 0 && limit < summary.Pending {
		pending = pending[:limit]
	}
	summary.Selected = len(pending)
	return pending, summary
}

// Run imports the pending snapshots and returns the summary. A failed file
// is logged and does not stop the run.
func Run(ctx context.Context, repo Repository, limit int) (Summary, error) {
	log := logger.GetLogger().WithComponent("backfill")

	records, err := repo.ListCandidates(ctx)
	if err != nil {
		return Summary{}, err
	}
	selected, summary := SelectPending(records, limit)

	for _, rec := range selected {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		rows, err := repo.ImportRecord(ctx, rec)
		if err != nil {
			summary.Failed++
			log.WithError(err).WithField("path", rec.Path).Warn("snapshot import failed")
			continue
		}
		summary.Imported++
		summary.Rows += rows
	}

	log.WithFields(logger.Fields{
		"total":            summary.TotalCandidates,
		"already_imported": summary.AlreadyImported,
		"selected":         summary.Selected,
		"imported":         summary.Imported,
		"failed":           summary.Failed,
		"rows":             summary.Rows,
	}).Info("backfill summary")
	repo.OnBackfillComplete(summary)
	return summary, nil
}
