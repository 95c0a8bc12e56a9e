package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/claude/setlog/internal/config"
	"github.com/claude/setlog/internal/importer"
	"github.com/claude/setlog/internal/ingest/alpha"
	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	exportPath := flag.String("path", "", "Alpha Progression CSV export or directory of exports (required)")
	login := flag.String("user", "", "login of the user to import for (defaults to auth.dev_user)")
	template := flag.Bool("template", false, "print the most recent session as a workout template and exit")
	dryRun := flag.Bool("dry-run", false, "report counts without inserting into database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: setlog-import -config config.yaml -path /path/to/export.csv [-user login] [-template] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *template {
		if err := printTemplate(*exportPath); err != nil {
			log.Error("template failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
		stats, err := importer.New(nil, 0, log, true).Import(context.Background(), *exportPath)
		if err != nil {
			log.Error("import failed", "error", err)
			os.Exit(1)
		}
		printStats(log, stats)
		return
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	userLogin := *login
	if userLogin == "" {
		userLogin = cfg.Auth.DevUser
	}
	userID, err := db.GetOrCreateUser(ctx, userLogin, userLogin)
	if err != nil {
		log.Error("failed to resolve user", "login", userLogin, "error", err)
		os.Exit(1)
	}

	// Record the run so it shows up next to server-side imports
	started := time.Now()
	logID, err := db.InsertImportLog(ctx, storage.ImportLog{
		UserID: userID,
		Source: models.SourceAlpha,
		Status: "running",
	})
	if err != nil {
		log.Warn("failed to create import log", "error", err)
	}

	// Run import
	imp := importer.New(alpha.NewProvider(db, log), userID, log, false)
	stats, err := imp.Import(ctx, *exportPath)
	finishImportLog(ctx, db, log, logID, userID, stats, err, time.Since(started))
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete", "user", userLogin)
}

// finishImportLog moves the run's import log out of "running".
func finishImportLog(ctx context.Context, db *storage.DB, log *slog.Logger, id int64, userID int, stats *importer.Stats, importErr error, elapsed time.Duration) {
	if id == 0 {
		return
	}
	durationMs := int(elapsed.Milliseconds())
	entry := storage.ImportLog{
		UserID:          userID,
		Source:          models.SourceAlpha,
		Status:          "success",
		Sessions:        stats.Sessions,
		SetsInserted:    stats.SetsInserted,
		RecordsInserted: stats.RecordsInserted,
		DurationMs:      &durationMs,
	}
	entry.SetsReceived = int(stats.SetsInserted + stats.SetsDuplicated)
	if importErr != nil || stats.FilesErrored > 0 {
		entry.Status = "error"
		msg := fmt.Sprintf("%d file(s) failed", stats.FilesErrored)
		if importErr != nil {
			msg = importErr.Error()
		}
		entry.ErrorMessage = &msg
	}
	if err := db.UpdateImportLog(ctx, id, entry); err != nil {
		log.Warn("failed to update import log", "id", id, "error", err)
	}
}

// printTemplate writes the newest session of an export as a workout template.
func printTemplate(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sessions, err := alpha.Parse(f)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return fmt.Errorf("no sessions in %s", path)
	}

	latest := sessions[0]
	for _, s := range sessions[1:] {
		if s.Date.After(latest.Date) {
			latest = s
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(alpha.Workout(latest))
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"sessions", stats.Sessions,
		"sets_inserted", stats.SetsInserted,
		"sets_duplicated", stats.SetsDuplicated,
		"warmups_ignored", stats.WarmupsIgnored,
		"records_inserted", stats.RecordsInserted,
	)
}
