package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/claude/setlog/internal/config"
	"github.com/claude/setlog/internal/device"
	"github.com/claude/setlog/internal/ingest/alpha"
	"github.com/claude/setlog/internal/kvstore"
	setlogmcp "github.com/claude/setlog/internal/mcp"
	"github.com/claude/setlog/internal/metrics"
	"github.com/claude/setlog/internal/records"
	"github.com/claude/setlog/internal/server"
	"github.com/claude/setlog/internal/session"
	"github.com/claude/setlog/internal/storage"
	"github.com/claude/setlog/internal/summary"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"tailscale.com/tsnet"
	"tailscale.com/tstime"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	webDir := flag.String("web", "", "directory with a built web client to serve")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	log.Info("setlog starting", "version", Version)

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Open the durable session slot
	kv, closeKV, err := openSessionStore(cfg.Session)
	if err != nil {
		log.Error("failed to open session store", "store", cfg.Session.Store, "error", err)
		os.Exit(1)
	}
	defer closeKV()

	// Metrics
	var (
		metricsManager *metrics.Manager
		promRegistry   *prometheus.Registry
	)
	if cfg.Metrics.Enabled {
		pgxpoolCollector := pgxpoolprometheus.NewCollector(
			db.Pool,
			map[string]string{"db_name": cfg.Database.Name},
		)
		promRegistry = metrics.SetupPrometheus(pgxpoolCollector)
		metricsManager = metrics.NewManager("setlog", "server", promRegistry)
	}

	// Restore or create the live session
	clock := tstime.StdClock{}
	events := server.NewEvents()
	onChange := events.Notify
	if metricsManager != nil {
		onChange = func() {
			events.Notify()
			metricsManager.CounterSessionChanges.Inc()
		}
	}
	sess := session.New(session.Options{
		Store:           session.NewKVStore(kv),
		Detector:        records.NewDetector(db.Records(), clock.Now, log),
		Clock:           clock,
		Devices:         device.Logging(log),
		Log:             log,
		ElapsedInterval: cfg.Session.ElapsedInterval,
		TickInterval:    cfg.Session.TickInterval,
		CountdownFrom:   cfg.Session.CountdownFrom,
		Volume:          cfg.Session.Volume,
		RestSeconds:     cfg.Session.RestSeconds,
		Summary:         summary.Options{MET: cfg.Summary.MET, BodyWeightKg: cfg.Summary.BodyWeightKg},
		OnChange:        onChange,
	})
	defer sess.Close()

	// Create server
	alphaProvider := alpha.NewProvider(db, log)
	srv := server.New(db, sess, alphaProvider, events, cfg.Auth.APIKey, cfg.Auth.DevUser, log)
	if metricsManager != nil {
		srv.SetMetrics(metricsManager, promRegistry)
	}

	mcpSrv := setlogmcp.New(setlogmcp.Local{DB: db, Session: sess}, Version, log)
	srv.Mount("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithHTTPContextFunc(setlogmcp.HTTPContext),
	))

	if *webDir != "" {
		srv.SetFrontend(os.DirFS(*webDir))
	}

	// Start server: tsnet or plain HTTP
	var listener net.Listener

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	httpSrv.RegisterOnShutdown(events.Close)

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// openSessionStore opens the configured session slot backend.
func openSessionStore(cfg config.SessionConfig) (kvstore.KV, func(), error) {
	switch cfg.Store {
	case "file":
		f, err := kvstore.NewFile(afero.NewOsFs(), cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return f, func() {}, nil
	default:
		s, err := kvstore.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
}
