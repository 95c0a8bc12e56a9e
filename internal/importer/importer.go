// Package importer bulk-loads a directory of Alpha Progression exports
// straight into the database.
package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/claude/setlog/internal/ingest"
	"github.com/claude/setlog/internal/ingest/alpha"
)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	Sessions        int
	SetsInserted    int64
	SetsDuplicated  int64
	WarmupsIgnored  int
	RecordsInserted int
}

// Ingester stores one export for a user.
type Ingester interface {
	Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error)
}

// Importer reads .csv exports from a directory and ingests them oldest file first.
type Importer struct {
	ing    Ingester
	userID int
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer. ing may be nil in dry-run mode.
func New(ing Ingester, userID int, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{ing: ing, userID: userID, log: log, dryRun: dryRun}
}

// Import processes every export under dir, or dir itself when it is a file.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, error) {
	files, err := exportFiles(dir)
	if err != nil {
		return &imp.stats, err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &imp.stats, err
		}
		if err := imp.importFile(ctx, f); err != nil {
			imp.log.Warn("import failed", "file", f, "error", err)
			imp.stats.FilesErrored++
		}
	}
	return &imp.stats, nil
}

func (imp *Importer) importFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if imp.dryRun {
		sessions, err := alpha.Parse(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}
		if len(sessions) == 0 {
			imp.stats.FilesSkipped++
			return nil
		}
		imp.stats.FilesProcessed++
		imp.stats.Sessions += len(sessions)
		for _, s := range sessions {
			rows, warmups := alpha.SetRows(s, imp.userID)
			imp.stats.SetsInserted += int64(len(rows))
			imp.stats.WarmupsIgnored += warmups
		}
		return nil
	}

	res, err := imp.ing.Ingest(ctx, bytes.NewReader(data), imp.userID)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", filepath.Base(path), err)
	}
	if res.Sessions == 0 {
		imp.stats.FilesSkipped++
		return nil
	}

	imp.stats.FilesProcessed++
	imp.stats.Sessions += res.Sessions
	imp.stats.SetsInserted += res.SetsInserted
	imp.stats.SetsDuplicated += res.SetsSkipped
	imp.stats.WarmupsIgnored += res.WarmupsIgnored
	// Each ingest rebuilds the whole record chain, so the last count wins.
	imp.stats.RecordsInserted = res.RecordsInserted
	imp.log.Info("imported export", "file", filepath.Base(path), "sessions", res.Sessions, "sets", res.SetsInserted)
	return nil
}

// exportFiles lists the .csv files to import in name order.
func exportFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	files, err := filepath.Glob(filepath.Join(path, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
