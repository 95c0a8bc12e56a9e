package storage

import (
	"context"
	"fmt"
	"time"
)

// TrainingSummaryPeriod holds aggregated training stats for one period.
type TrainingSummaryPeriod struct {
	Period          string  `json:"period"`
	Workouts        int     `json:"workouts"`
	TotalMinutes    int     `json:"total_minutes"`
	TotalCalories   int     `json:"total_calories"`
	WorkingSets     int     `json:"working_sets"`
	TotalReps       int     `json:"total_reps"`
	TonnageKg       float64 `json:"tonnage_kg"`
	PersonalRecords int     `json:"personal_records"`
}

// GetTrainingSummary returns aggregated training stats per period. Sets from
// every source count toward volume; workouts and calories come from finished
// live sessions.
func (db *DB) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]TrainingSummaryPeriod, error) {
	trunc := truncInterval(bucket)
	periods := make(map[string]*TrainingSummaryPeriod)
	var order []string
	get := func(t time.Time) *TrainingSummaryPeriod {
		key := t.Format("2006-01-02")
		p, ok := periods[key]
		if !ok {
			p = &TrainingSummaryPeriod{Period: key}
			periods[key] = p
			order = append(order, key)
		}
		return p
	}

	workoutRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, started_at)::date AS period,
		        COUNT(*)::int,
		        COALESCE(SUM(duration_minutes), 0)::int,
		        COALESCE(SUM(estimated_calories), 0)::int
		 FROM workouts
		 WHERE started_at >= $2 AND started_at < $3 AND user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		trunc, start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workout summary: %w", err)
	}
	defer workoutRows.Close()

	for workoutRows.Next() {
		var t time.Time
		var count, minutes, calories int
		if err := workoutRows.Scan(&t, &count, &minutes, &calories); err != nil {
			return nil, fmt.Errorf("scanning workout summary: %w", err)
		}
		p := get(t)
		p.Workouts, p.TotalMinutes, p.TotalCalories = count, minutes, calories
	}
	if err := workoutRows.Err(); err != nil {
		return nil, err
	}

	setRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, performed_at)::date AS period,
		        COUNT(*)::int,
		        COALESCE(SUM(reps), 0)::int,
		        COALESCE(SUM(weight_kg * reps), 0),
		        COUNT(*) FILTER (WHERE is_pr)::int
		 FROM workout_sets
		 WHERE performed_at >= $2 AND performed_at < $3 AND user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		trunc, start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying set summary: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var t time.Time
		var sets, reps, prs int
		var tonnage float64
		if err := setRows.Scan(&t, &sets, &reps, &tonnage, &prs); err != nil {
			return nil, fmt.Errorf("scanning set summary: %w", err)
		}
		p := get(t)
		p.WorkingSets, p.TotalReps, p.TonnageKg, p.PersonalRecords = sets, reps, tonnage, prs
	}
	if err := setRows.Err(); err != nil {
		return nil, err
	}

	result := make([]TrainingSummaryPeriod, 0, len(order))
	for _, key := range order {
		result = append(result, *periods[key])
	}
	return result, nil
}

// truncInterval converts bucket strings like "1 month" to the interval name
// that date_trunc expects (e.g. "month", "week").
func truncInterval(bucket string) string {
	switch bucket {
	case "1 day":
		return "day"
	case "1 week":
		return "week"
	default:
		return "month"
	}
}
