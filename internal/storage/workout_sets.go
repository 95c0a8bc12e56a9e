package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/setlog/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// insertBatchSize keeps a set insert under PostgreSQL's 65535 parameter limit
// (12 params per row).
const insertBatchSize = 5000

// InsertWorkoutSets batch-inserts set rows. Returns count inserted.
func (db *DB) InsertWorkoutSets(ctx context.Context, rows []models.WorkoutSetRow) (int64, error) {
	var total int64
	for i := 0; i < len(rows); i += insertBatchSize {
		end := min(i+insertBatchSize, len(rows))
		n, err := insertWorkoutSets(ctx, db.Pool, rows[i:end])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func insertWorkoutSets(ctx context.Context, q querier, rows []models.WorkoutSetRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO workout_sets (user_id, workout_id, source, exercise_key, exercise_id,
		exercise_name, set_number, weight_kg, reps, rir, is_pr, performed_at) VALUES `
	args := make([]any, 0, len(rows)*12)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * 12
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
			base+7, base+8, base+9, base+10, base+11, base+12,
		))
		args = append(args, r.UserID, r.WorkoutID, r.Source, r.ExerciseKey, r.ExerciseID,
			r.ExerciseName, r.SetNumber, r.WeightKg, r.Reps, r.RIR, r.IsPR, r.PerformedAt)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting workout sets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteWorkoutSets removes the sets of one source performed at the given time,
// so a re-imported session replaces its previous rows.
func (db *DB) DeleteWorkoutSets(ctx context.Context, userID int, source string, performedAt time.Time) error {
	_, err := db.Pool.Exec(ctx,
		`DELETE FROM workout_sets WHERE user_id = $1 AND source = $2 AND performed_at = $3`,
		userID, source, performedAt)
	if err != nil {
		return fmt.Errorf("deleting workout sets: %w", err)
	}
	return nil
}

// QueryWorkoutSets retrieves sets in a time range in chronological order.
// An empty source matches all sources.
func (db *DB) QueryWorkoutSets(ctx context.Context, userID int, source string, start, end time.Time) ([]models.WorkoutSetRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+setColumns+`
		 FROM workout_sets
		 WHERE user_id = $1 AND ($2 = '' OR source = $2)
		   AND performed_at >= $3 AND performed_at < $4
		 ORDER BY performed_at ASC, id ASC`,
		userID, source, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer rows.Close()
	return scanWorkoutSets(rows)
}

const setColumns = `user_id, workout_id, source, exercise_key, exercise_id, exercise_name,
		 set_number, weight_kg, reps, rir, is_pr, performed_at`

func scanWorkoutSets(rows pgx.Rows) ([]models.WorkoutSetRow, error) {
	var result []models.WorkoutSetRow
	for rows.Next() {
		var r models.WorkoutSetRow
		if err := rows.Scan(&r.UserID, &r.WorkoutID, &r.Source, &r.ExerciseKey, &r.ExerciseID,
			&r.ExerciseName, &r.SetNumber, &r.WeightKg, &r.Reps, &r.RIR, &r.IsPR, &r.PerformedAt); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
