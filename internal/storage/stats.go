package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about a user's stored training data.
type DataStats struct {
	TotalWorkouts   int64             `json:"total_workouts"`
	TotalSets       int64             `json:"total_sets"`
	ImportedSets    int64             `json:"imported_sets"`
	PersonalRecords int64             `json:"personal_records"`
	EarliestData    *time.Time        `json:"earliest_data"`
	LatestData      *time.Time        `json:"latest_data"`
	WorkoutsByName  []WorkoutNameStat `json:"workouts_by_name"`
}

// WorkoutNameStat holds summary stats for workouts sharing a name.
type WorkoutNameStat struct {
	Name          string  `json:"name"`
	Count         int64   `json:"count"`
	TotalMinutes  int64   `json:"total_minutes"`
	TotalVolumeKg float64 `json:"total_volume_kg"`
}

// GetDataStats returns aggregate statistics for a user's stored data.
func (db *DB) GetDataStats(ctx context.Context, userID int) (*DataStats, error) {
	stats := &DataStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM workouts WHERE user_id = $1`, userID,
	).Scan(&stats.TotalWorkouts)
	if err != nil {
		return nil, fmt.Errorf("counting workouts: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE source <> 'live'), MIN(performed_at), MAX(performed_at)
		 FROM workout_sets WHERE user_id = $1`, userID,
	).Scan(&stats.TotalSets, &stats.ImportedSets, &stats.EarliestData, &stats.LatestData)
	if err != nil {
		return nil, fmt.Errorf("counting sets: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM personal_records WHERE user_id = $1`, userID,
	).Scan(&stats.PersonalRecords)
	if err != nil {
		return nil, fmt.Errorf("counting personal records: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT name, COUNT(*), COALESCE(SUM(duration_minutes), 0), COALESCE(SUM(volume_kg), 0)
		 FROM workouts
		 WHERE user_id = $1
		 GROUP BY name
		 ORDER BY COUNT(*) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts by name: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s WorkoutNameStat
		if err := rows.Scan(&s.Name, &s.Count, &s.TotalMinutes, &s.TotalVolumeKg); err != nil {
			return nil, fmt.Errorf("scanning workout name stat: %w", err)
		}
		stats.WorkoutsByName = append(stats.WorkoutsByName, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
