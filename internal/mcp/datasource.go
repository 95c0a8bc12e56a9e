package mcp

import (
	"context"
	"time"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/session"
	"github.com/claude/setlog/internal/storage"
	"github.com/google/uuid"
)

// DataSource abstracts the data layer for MCP tools. Both Local (in-process)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ActiveSession(ctx context.Context) (*session.View, error)
	QueryPersonalRecords(ctx context.Context, userID int) ([]models.PersonalRecord, error)
	QueryWorkouts(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutRow, error)
	GetWorkout(ctx context.Context, workoutID uuid.UUID, userID int) (*storage.WorkoutDetail, error)
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error)
	GetDataStats(ctx context.Context, userID int) (*storage.DataStats, error)
}

// Local serves MCP tools from the process that runs the live session.
type Local struct {
	*storage.DB
	Session *session.Session
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = Local{}

// ActiveSession returns the live session view.
func (l Local) ActiveSession(context.Context) (*session.View, error) {
	v := l.Session.View()
	return &v, nil
}
