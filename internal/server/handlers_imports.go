package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/setlog/internal/ingest"
	"github.com/claude/setlog/internal/metrics"
	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

func (s *Server) handleAlphaImport(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r)
	start := time.Now()

	result, err := s.alpha.Ingest(r.Context(), r.Body, uid)
	s.logImport(uid, models.SourceAlpha, result, err, int(time.Since(start).Milliseconds()))
	if err != nil {
		s.log.Error("alpha import error", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetDataStats(r.Context(), userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.db.QueryImportLogs(r.Context(), userIDFromContext(r), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// logImport records an import operation's result to the import_logs table.
func (s *Server) logImport(uid int, source string, result *ingest.Result, importErr error, durationMs int) {
	entry := storage.ImportLog{
		UserID:     uid,
		Source:     source,
		Status:     "success",
		DurationMs: &durationMs,
	}
	if importErr != nil {
		entry.Status = "error"
		msg := importErr.Error()
		entry.ErrorMessage = &msg
	}
	if result != nil {
		entry.Sessions = result.Sessions
		entry.SetsReceived = result.SetsReceived
		entry.SetsInserted = result.SetsInserted
		entry.RecordsInserted = result.RecordsInserted
	}

	s.observe(func(m *metrics.Manager) {
		m.CounterImports.With(prometheus.Labels{"source": source, "status": entry.Status}).Inc()
		m.CounterSetsImported.Add(float64(entry.SetsInserted))
	})

	ctx, cancel := contextWithTimeout()
	defer cancel()

	if _, err := s.db.InsertImportLog(ctx, entry); err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}

// contextWithTimeout returns a background context with a 5-second timeout for import logging.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}
