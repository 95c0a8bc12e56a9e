package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/storage"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the given window before now.
func defaultTimeRange(startStr, endStr string, window func(time.Time) time.Time) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = window(end)
	}

	return start, end, nil
}

func lastDays(n int) func(time.Time) time.Time {
	return func(end time.Time) time.Time { return end.AddDate(0, 0, -n) }
}

func lastMonths(n int) func(time.Time) time.Time {
	return func(end time.Time) time.Time { return end.AddDate(0, -n, 0) }
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetActiveSession = mcp.NewTool("get_active_session",
	mcp.WithDescription("Get the workout in progress: status (not_started, in_progress, resting, completed), current exercise and set, rest countdown, elapsed time, completed sets and personal records set during the session."),
)

var toolGetPersonalRecords = mcp.NewTool("get_personal_records",
	mcp.WithDescription("List the current personal record (weight × reps) for every exercise, from both live sessions and imported history."),
	mcp.WithString("exercise", mcp.Description("Filter by exercise name (partial match, e.g. 'bench press')")),
)

var toolGetWorkoutHistory = mcp.NewTool("get_workout_history",
	mcp.WithDescription("List finished workouts with duration, sets, volume and estimated calories."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get one finished workout with every logged set and the personal records it set."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout ID (UUID) from get_workout_history")),
)

var toolGetTrainingSummary = mcp.NewTool("get_training_summary",
	mcp.WithDescription("Weekly/monthly aggregated training volume: workouts, minutes, calories, working sets, reps, tonnage and personal records per period."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 6 months ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to 'month'."), mcp.Enum("week", "month")),
)

var toolGetDataStats = mcp.NewTool("get_data_stats",
	mcp.WithDescription("Overview of stored training data: workout and set counts, imported sets, records, date range and workouts by name."),
)

// --- Tool handlers ---

func (h *handlers) getActiveSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := h.ds.ActiveSession(ctx)
	if err != nil {
		h.log.Error("mcp get_active_session", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(view)
}

func (h *handlers) getPersonalRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)
	recs, err := h.ds.QueryPersonalRecords(ctx, uid)
	if err != nil {
		h.log.Error("mcp get_personal_records", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	if filter := strings.ToLower(req.GetString("exercise", "")); filter != "" {
		matched := []models.PersonalRecord{}
		for _, r := range recs {
			if strings.Contains(strings.ToLower(r.ExerciseName), filter) {
				matched = append(matched, r)
			}
		}
		recs = matched
	}
	return jsonResult(recs)
}

func (h *handlers) getWorkoutHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), lastDays(30))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	workouts, err := h.ds.QueryWorkouts(ctx, start, end, uid)
	if err != nil {
		h.log.Error("mcp get_workout_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(workouts)
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("invalid workout ID: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	detail, err := h.ds.GetWorkout(ctx, id, uid)
	if errors.Is(err, storage.ErrNotFound) {
		return mcp.NewToolResultError("workout not found"), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(detail)
}

func (h *handlers) getTrainingSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), lastMonths(6))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	bucket := req.GetString("bucket", "month")
	uid := UserIDFromContext(ctx)

	summary, err := h.ds.GetTrainingSummary(ctx, start, end, bucket, uid)
	if err != nil {
		h.log.Error("mcp get_training_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(summary)
}

func (h *handlers) getDataStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.ds.GetDataStats(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_data_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(stats)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
