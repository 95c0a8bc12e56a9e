package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/session"
	"github.com/claude/setlog/internal/storage"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// fakeSource is an in-memory DataSource that records the user it was asked about.
type fakeSource struct {
	view    session.View
	records []models.PersonalRecord
	workout *storage.WorkoutDetail
	err     error

	gotUser   int
	gotStart  time.Time
	gotEnd    time.Time
	gotBucket string
}

func (f *fakeSource) ActiveSession(context.Context) (*session.View, error) {
	return &f.view, f.err
}

func (f *fakeSource) QueryPersonalRecords(_ context.Context, userID int) ([]models.PersonalRecord, error) {
	f.gotUser = userID
	return f.records, f.err
}

func (f *fakeSource) QueryWorkouts(_ context.Context, start, end time.Time, userID int) ([]models.WorkoutRow, error) {
	f.gotUser, f.gotStart, f.gotEnd = userID, start, end
	return []models.WorkoutRow{}, f.err
}

func (f *fakeSource) GetWorkout(_ context.Context, id uuid.UUID, userID int) (*storage.WorkoutDetail, error) {
	f.gotUser = userID
	if f.workout == nil || f.workout.ID != id {
		return nil, storage.ErrNotFound
	}
	return f.workout, nil
}

func (f *fakeSource) GetTrainingSummary(_ context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error) {
	f.gotUser, f.gotStart, f.gotEnd, f.gotBucket = userID, start, end, bucket
	return []storage.TrainingSummaryPeriod{}, f.err
}

func (f *fakeSource) GetDataStats(_ context.Context, userID int) (*storage.DataStats, error) {
	f.gotUser = userID
	return &storage.DataStats{TotalWorkouts: 3}, f.err
}

func newHandlers(ds DataSource) *handlers {
	return &handlers{ds: ds, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

// TestUserIDFromContextDefault verifies the default user ID (1) when no value
// is set in the context.
func TestUserIDFromContextDefault(t *testing.T) {
	ctx := context.Background()
	if id := UserIDFromContext(ctx); id != 1 {
		t.Errorf("UserIDFromContext(empty) = %d, want 1", id)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), 42)
	if id := UserIDFromContext(ctx); id != 42 {
		t.Errorf("UserIDFromContext = %d, want 42", id)
	}
}

// TestDefaultTimeRange verifies time range defaults and parsing.
func TestDefaultTimeRange(t *testing.T) {
	// Both empty → defaults to the window
	start, end, err := defaultTimeRange("", "", lastDays(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	diff := end.Sub(start)
	if diff.Hours() < 167 || diff.Hours() > 169 { // ~168 hours = 7 days
		t.Errorf("default range = %.0f hours, want ~168", diff.Hours())
	}

	// Explicit dates
	start, end, err = defaultTimeRange("2024-01-01", "2024-01-31", lastDays(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Year() != 2024 || start.Month() != 1 || start.Day() != 1 {
		t.Errorf("start = %v, want 2024-01-01", start)
	}
	if end.Year() != 2024 || end.Month() != 1 || end.Day() != 31 {
		t.Errorf("end = %v, want 2024-01-31", end)
	}

	// Window relative to an explicit end
	start, _, err = defaultTimeRange("", "2024-07-01", lastMonths(6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Month() != 1 || start.Day() != 1 {
		t.Errorf("start = %v, want 2024-01-01", start)
	}

	// RFC3339
	start, _, err = defaultTimeRange("2024-06-15T10:30:00Z", "", lastDays(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, want 10:30", start)
	}

	// Invalid
	_, _, err = defaultTimeRange("not-a-date", "", lastDays(7))
	if err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestGetActiveSession(t *testing.T) {
	ds := &fakeSource{view: session.View{Status: models.StatusResting, WorkoutName: "Push Day", CompletedCount: 2}}
	res, err := newHandlers(ds).getActiveSession(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	var v session.View
	if err := json.Unmarshal([]byte(resultText(t, res)), &v); err != nil {
		t.Fatal(err)
	}
	if v.Status != models.StatusResting || v.WorkoutName != "Push Day" || v.CompletedCount != 2 {
		t.Errorf("view = %+v", v)
	}
}

func TestGetPersonalRecordsFilter(t *testing.T) {
	ds := &fakeSource{records: []models.PersonalRecord{
		{ExerciseKey: "alpha:bench-press-barbell", ExerciseName: "Bench Press", WeightKg: 100, Reps: 5},
		{ExerciseKey: "alpha:squat-barbell", ExerciseName: "Squat", WeightKg: 140, Reps: 3},
	}}
	ctx := WithUserID(context.Background(), 7)
	res, err := newHandlers(ds).getPersonalRecords(ctx, callRequest(map[string]any{"exercise": "BENCH"}))
	if err != nil {
		t.Fatal(err)
	}
	var recs []models.PersonalRecord
	if err := json.Unmarshal([]byte(resultText(t, res)), &recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ExerciseName != "Bench Press" {
		t.Errorf("records = %+v", recs)
	}
	if ds.gotUser != 7 {
		t.Errorf("user = %d, want 7", ds.gotUser)
	}
}

func TestGetWorkout(t *testing.T) {
	id := uuid.New()
	ds := &fakeSource{workout: &storage.WorkoutDetail{WorkoutRow: models.WorkoutRow{ID: id, Name: "Leg Day"}}}
	h := newHandlers(ds)

	tests := []struct {
		name    string
		args    map[string]any
		wantErr bool
	}{
		{"found", map[string]any{"id": id.String()}, false},
		{"missing arg", map[string]any{}, true},
		{"invalid id", map[string]any{"id": "nope"}, true},
		{"not found", map[string]any{"id": uuid.NewString()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.getWorkout(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatal(err)
			}
			if res.IsError != tt.wantErr {
				t.Errorf("IsError = %v, want %v", res.IsError, tt.wantErr)
			}
		})
	}
}

func TestGetTrainingSummaryDefaults(t *testing.T) {
	ds := &fakeSource{}
	res, err := newHandlers(ds).getTrainingSummary(context.Background(), callRequest(map[string]any{"end": "2026-07-01"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if ds.gotBucket != "month" {
		t.Errorf("bucket = %q, want month", ds.gotBucket)
	}
	if want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC); !ds.gotStart.Equal(want) {
		t.Errorf("start = %v, want %v", ds.gotStart, want)
	}
}

func TestToolQueryFailure(t *testing.T) {
	ds := &fakeSource{err: errors.New("db down")}
	res, err := newHandlers(ds).getDataStats(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected tool error")
	}
}

func TestActiveSessionResource(t *testing.T) {
	ds := &fakeSource{view: session.View{Status: models.StatusInProgress}}
	var req mcp.ReadResourceRequest
	req.Params.URI = "setlog://active_session"

	contents, err := newHandlers(ds).activeSession(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents = %T", contents[0])
	}
	if tc.URI != "setlog://active_session" || tc.MIMEType != "application/json" {
		t.Errorf("resource = %s %s", tc.URI, tc.MIMEType)
	}
}

func TestNewRegistersTools(t *testing.T) {
	s := New(&fakeSource{}, "test", slog.Default())
	tools := s.ListTools()
	for _, name := range []string{
		"get_active_session", "get_personal_records", "get_workout_history",
		"get_workout", "get_training_summary", "get_data_stats",
	} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %s not registered", name)
		}
	}
}
