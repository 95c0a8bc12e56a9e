package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/setlog/internal/ingest"
	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/records"
)

// Store is the part of the backend storage the importer writes to.
type Store interface {
	DeleteWorkoutSets(ctx context.Context, userID int, source string, performedAt time.Time) error
	InsertWorkoutSets(ctx context.Context, rows []models.WorkoutSetRow) (int64, error)
	QueryWorkoutSets(ctx context.Context, userID int, source string, start, end time.Time) ([]models.WorkoutSetRow, error)
	ReplacePersonalRecords(ctx context.Context, userID int, source string, recs []models.PersonalRecord) (int, error)
}

// Provider processes Alpha Progression CSV exports.
type Provider struct {
	db  Store
	log *slog.Logger
}

// NewProvider creates a new Alpha Progression ingest provider.
func NewProvider(db Store, log *slog.Logger) *Provider {
	return &Provider{db: db, log: log}
}

// Ingest parses a CSV export, stores the working sets and rebuilds the PR
// baseline from the user's whole imported history.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result := &ingest.Result{Sessions: len(sessions)}
	var rows []models.WorkoutSetRow

	// Delete existing sets per session so re-imports always reflect the latest parser output.
	for _, s := range sessions {
		if err := p.db.DeleteWorkoutSets(ctx, userID, models.SourceAlpha, s.Date); err != nil {
			return nil, fmt.Errorf("deleting existing sets for session %s: %w", s.Date.Format("2006-01-02"), err)
		}
		sessionRows, warmups := SetRows(s, userID)
		rows = append(rows, sessionRows...)
		result.WarmupsIgnored += warmups
	}

	if len(rows) > 0 {
		inserted, err := p.db.InsertWorkoutSets(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("inserting sets: %w", err)
		}
		result.SetsReceived = len(rows)
		result.SetsInserted = inserted
		result.SetsSkipped = int64(len(rows)) - inserted
	}

	history, err := p.db.QueryWorkoutSets(ctx, userID, models.SourceAlpha, time.Time{}, time.Now().AddDate(100, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("loading imported history: %w", err)
	}
	n, err := p.db.ReplacePersonalRecords(ctx, userID, models.SourceAlpha, records.Chain(history))
	if err != nil {
		return nil, fmt.Errorf("rebuilding personal records: %w", err)
	}
	result.RecordsInserted = n

	p.log.Info("alpha import complete",
		"sessions", result.Sessions,
		"sets", result.SetsInserted,
		"records", result.RecordsInserted,
	)
	return result, nil
}
