package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/claude/setlog/internal/ingest"
)

const export = `"Push · Day 1";"2026-02-17 5:04 h";"1:12 hr"
"1. Bench Press · Barbell · 6 reps";"WU1 · 22,5 kg · 10 reps"
#;KG;REPS;RIR
1;102,5;6;0
2;102,5;6;0
`

type fakeIngester struct {
	calls  int
	userID int
	err    error
}

func (f *fakeIngester) Ingest(_ context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	f.calls++
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(r)
	if len(data) == 0 {
		return &ingest.Result{}, nil
	}
	return &ingest.Result{Sessions: 1, SetsInserted: 2, SetsSkipped: 1, WarmupsIgnored: 1, RecordsInserted: f.calls}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeExports(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestImportDirectory(t *testing.T) {
	dir := writeExports(t, map[string]string{
		"a.csv":     export,
		"b.csv":     export,
		"empty.csv": "",
		"notes.txt": "ignored",
	})
	ing := &fakeIngester{}

	stats, err := New(ing, 4, testLogger(), false).Import(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if ing.calls != 3 || ing.userID != 4 {
		t.Errorf("calls = %d user = %d, want 3 calls for user 4", ing.calls, ing.userID)
	}
	if stats.FilesProcessed != 2 || stats.FilesSkipped != 1 {
		t.Errorf("processed = %d skipped = %d, want 2/1", stats.FilesProcessed, stats.FilesSkipped)
	}
	if stats.SetsInserted != 4 || stats.SetsDuplicated != 2 || stats.WarmupsIgnored != 2 {
		t.Errorf("stats = %+v", stats)
	}
	// the empty file sorts last, so the last counted ingest was the second
	if stats.RecordsInserted != 2 {
		t.Errorf("records = %d, want 2", stats.RecordsInserted)
	}
}

func TestImportCountsFailures(t *testing.T) {
	dir := writeExports(t, map[string]string{"a.csv": export})
	ing := &fakeIngester{err: errors.New("db down")}

	stats, err := New(ing, 1, testLogger(), false).Import(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesErrored != 1 || stats.FilesProcessed != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestImportDryRun(t *testing.T) {
	dir := writeExports(t, map[string]string{"a.csv": export})

	stats, err := New(nil, 1, testLogger(), true).Import(context.Background(), filepath.Join(dir, "a.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesProcessed != 1 || stats.Sessions != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.SetsInserted != 2 || stats.WarmupsIgnored != 1 {
		t.Errorf("sets = %d warmups = %d, want 2/1", stats.SetsInserted, stats.WarmupsIgnored)
	}
}

func TestImportMissingPath(t *testing.T) {
	_, err := New(nil, 1, testLogger(), true).Import(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing path")
	}
}
