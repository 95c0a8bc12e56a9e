// Package upload sends Alpha Progression exports from a workstation to a
// remote setlog server.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/claude/setlog/internal/ingest"
	"github.com/claude/setlog/internal/ingest/alpha"
)

// Sender delivers one export. *Client satisfies it.
type Sender interface {
	SendAlphaExport(ctx context.Context, csv []byte) (*ingest.Result, error)
}

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	Sessions        int
	SetsInserted    int64
	RecordsInserted int
}

// Uploader sends every CSV export under a path to the server.
type Uploader struct {
	client Sender
	state  *StateDB
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. client may be nil in dry-run mode.
func New(client Sender, state *StateDB, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{client: client, state: state, dryRun: dryRun, log: log}
}

// Run uploads path, which is either one export or a directory of exports.
// A failing file is logged and counted; the run continues with the next one.
func (u *Uploader) Run(ctx context.Context, path string) (*Stats, error) {
	files, err := exportFiles(path)
	if err != nil {
		return &u.stats, err
	}
	u.stats.FilesTotal = len(files)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		if err := u.uploadFile(ctx, f); err != nil {
			u.stats.FilesErrored++
			u.log.Error("upload failed", "file", f, "error", err)
		}
	}
	return &u.stats, nil
}

func (u *Uploader) uploadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading export: %w", err)
	}
	hash := hashContent(data)

	seen, err := u.state.Seen(hash)
	if err != nil {
		return err
	}
	if seen {
		u.stats.FilesSkipped++
		u.log.Debug("export already uploaded", "file", path)
		return nil
	}

	if u.dryRun {
		sessions, err := alpha.Parse(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("parsing export: %w", err)
		}
		sets := 0
		for _, s := range sessions {
			rows, _ := alpha.SetRows(s, 0)
			sets += len(rows)
		}
		u.stats.Sessions += len(sessions)
		u.stats.SetsInserted += int64(sets)
		u.log.Info("dry run", "file", path, "sessions", len(sessions), "sets", sets)
		return nil
	}

	result, err := u.client.SendAlphaExport(ctx, data)
	if err != nil {
		return err
	}
	u.stats.FilesUploaded++
	u.stats.Sessions += result.Sessions
	u.stats.SetsInserted += result.SetsInserted
	u.stats.RecordsInserted += result.RecordsInserted
	u.log.Info("export uploaded", "file", path, "sessions", result.Sessions, "sets", result.SetsInserted)

	return u.state.Record(path, hash, result)
}

// exportFiles returns path itself, or the sorted .csv files directly under it.
func exportFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("export path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading export dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
