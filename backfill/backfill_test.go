package backfill

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pnl_dashboard/config"
	"pnl_dashboard/internal/store"
)

func TestSelectPendingRespectsLimitAndImports(t *testing.T) {
	now := time.Now()
	var records []Record
	for i := 0; i < 30; i++ {
		records = append(records, Record{
			Path:     fmt.Sprintf("snap-%02d.csv", i),
			ModTime:  now.Add(time.Duration(i) * time.Minute),
			Imported: i%5 == 0,
		})
	}

	pending, summary := SelectPending(records, 15)
	if len(pending) != 15 {
		t.Fatalf("expected 15 pending records, got %d", len(pending))
	}
	if summary.AlreadyImported != 6 || summary.Pending != 24 || summary.Selected != 15 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for i, rec := range pending {
		if rec.Imported {
			t.Fatalf("imported record selected: %s", rec.Path)
		}
		if i > 0 && rec.ModTime.After(pending[i-1].ModTime) {
			t.Fatal("records not sorted by recency")
		}
	}

	all, summary := SelectPending(records, 0)
	if len(all) != 24 || summary.Selected != 24 {
		t.Fatalf("limit 0 should select everything pending, got %d", len(all))
	}
}

type stubRepo struct {
	candidates []Record
	failPath   string
	summaries  []Summary
}

func (s *stubRepo) ListCandidates(context.Context) ([]Record, error) { return s.candidates, nil }

func (s *stubRepo) ImportRecord(_ context.Context, rec Record) (int, error) {
	if rec.Path == s.failPath {
		return 0, errors.New("broken csv")
	}
	return 3, nil
}

func (s *stubRepo) OnBackfillComplete(summary Summary) { s.summaries = append(s.summaries, summary) }

func TestRunCountsFailures(t *testing.T) {
	now := time.Now()
	repo := &stubRepo{failPath: "b.csv"}
	for i, p := range []string{"a.csv", "b.csv", "c.csv"} {
		repo.candidates = append(repo.candidates, Record{Path: p, ModTime: now.Add(time.Duration(i) * time.Second)})
	}
	summary, err := Run(context.Background(), repo, 0)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Imported != 2 || summary.Failed != 1 || summary.Rows != 6 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(repo.summaries) != 1 || repo.summaries[0] != summary {
		t.Fatalf("completion callback should receive the summary, got %+v", repo.summaries)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	repo := &stubRepo{candidates: []Record{{Path: "a.csv"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, repo, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(repo.summaries) != 0 {
		t.Fatal("cancelled run should not complete")
	}
}

func TestSnapshotsImportIntoStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(t.TempDir(), "tables.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	tables := config.Tables{
		Sales:      config.TableRef{SheetID: "sales", Tab: "Sheet1"},
		Commission: config.TableRef{SheetID: "comm", Tab: "Sheet1"},
		CallLogs:   config.TableRef{SheetID: "calls", Tab: "Report"},
	}
	report := "Call Report,,\n,,\nDate,Rep,Campaign\n2024-03-01,Jane Doe,VENDOR-X\n2024-03-02,Bill S,ACME\n,,\n"
	if err := os.WriteFile(filepath.Join(dir, "Report.csv"), []byte(report), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Sheet1.csv"), []byte("Agent,Carrier\nJane Doe,CICA\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Other.csv"), []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}

	var done []Summary
	repo := NewSnapshots(dir, st, tables).OnComplete(func(s Summary) { done = append(done, s) })
	summary, err := Run(ctx, repo, 0)
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalCandidates != 2 || summary.Imported != 2 || summary.Rows != 3 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	calls, err := st.LoadTable(ctx, tables.CallLogs)
	if err != nil {
		t.Fatal(err)
	}
	if len(calls.Headers) != 3 || calls.Headers[0] != "Date" || len(calls.Rows) != 2 || calls.Rows[1][1] != "Bill S" {
		t.Fatalf("unexpected call table %+v", calls)
	}
	for _, ref := range []config.TableRef{tables.Sales, tables.Commission} {
		grid, err := st.LoadTable(ctx, ref)
		if err != nil || len(grid.Rows) != 1 {
			t.Fatalf("%s: shared tab should feed every table, got %+v %v", ref.Key(), grid, err)
		}
	}

	summary, err = Run(ctx, repo, 0)
	if err != nil {
		t.Fatal(err)
	}
	if summary.AlreadyImported != 2 || summary.Imported != 0 {
		t.Fatalf("unchanged files should be skipped, got %+v", summary)
	}
	if len(done) != 2 {
		t.Fatalf("expected two completed runs, got %d", len(done))
	}
}
