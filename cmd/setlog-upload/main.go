package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/claude/setlog/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "setlog server URL (e.g. https://setlog.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("SETLOG_API_KEY"), "server API key (defaults to $SETLOG_API_KEY)")
	exportPath := flag.String("path", "", "Alpha Progression CSV export or directory of exports")
	dryRun := flag.Bool("dry-run", false, "parse exports but don't send to server")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("setlog-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: setlog-upload -server <URL> -api-key <key> -path <export.csv|dir> [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if (*serverURL == "" || *apiKey == "") && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server and -api-key are required (or use -dry-run)\n")
		os.Exit(1)
	}

	// Strip trailing slash from server URL
	*serverURL = strings.TrimRight(*serverURL, "/")

	// Open state database
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	stateDir := filepath.Join(homeDir, ".setlog-upload")

	state, err := upload.OpenStateDB(stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	// No sender in dry-run mode
	var sender upload.Sender
	if !*dryRun {
		sender = upload.NewClient(*serverURL, *apiKey)
	} else {
		log.Info("DRY RUN mode: exports will be parsed but not sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run upload
	uploader := upload.New(sender, state, *dryRun, log)
	stats, err := uploader.Run(ctx, *exportPath)
	if err != nil {
		log.Error("upload failed", "error", err)
		printStats(stats)
		os.Exit(1)
	}

	printStats(stats)
	log.Info("upload complete")
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  Files total:      %d\n", stats.FilesTotal)
	fmt.Printf("  Files uploaded:   %d\n", stats.FilesUploaded)
	fmt.Printf("  Files skipped:    %d (already uploaded)\n", stats.FilesSkipped)
	fmt.Printf("  Files errored:    %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Sessions:         %d\n", stats.Sessions)
	fmt.Printf("  Sets inserted:    %d\n", stats.SetsInserted)
	fmt.Printf("  Personal records: %d\n", stats.RecordsInserted)
	fmt.Println()
}
