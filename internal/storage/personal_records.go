package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/claude/setlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const recordColumns = `id::text, exercise_key, exercise_id, exercise_name, weight_kg, reps, achieved_at,
		 COALESCE(workout_id::text, '')`

// BestRecord returns the current record for an exercise key, or nil.
// Records for a key form a chain where each dominates the previous one, so
// the latest is the best.
func (db *DB) BestRecord(ctx context.Context, userID int, exerciseKey string) (*models.PersonalRecord, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+recordColumns+`
		 FROM personal_records
		 WHERE user_id = $1 AND exercise_key = $2
		 ORDER BY achieved_at DESC
		 LIMIT 1`,
		userID, exerciseKey)

	var r models.PersonalRecord
	err := row.Scan(&r.ID, &r.ExerciseKey, &r.ExerciseID, &r.ExerciseName, &r.WeightKg, &r.Reps, &r.AchievedAt, &r.WorkoutID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying best record for %s: %w", exerciseKey, err)
	}
	return &r, nil
}

// QueryPersonalRecords returns the current record of every exercise.
func (db *DB) QueryPersonalRecords(ctx context.Context, userID int) ([]models.PersonalRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT DISTINCT ON (exercise_key) `+recordColumns+`
		 FROM personal_records
		 WHERE user_id = $1
		 ORDER BY exercise_key, achieved_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying personal records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ReplacePersonalRecords swaps every record of one source for recs.
// Imports use it to rebuild the baseline derived from their history.
func (db *DB) ReplacePersonalRecords(ctx context.Context, userID int, source string, recs []models.PersonalRecord) (int, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM personal_records WHERE user_id = $1 AND source = $2`,
		userID, source); err != nil {
		return 0, fmt.Errorf("deleting personal records: %w", err)
	}
	n, err := insertPersonalRecords(ctx, tx, userID, source, recs)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing personal records: %w", err)
	}
	return n, nil
}

func insertPersonalRecords(ctx context.Context, q querier, userID int, source string, recs []models.PersonalRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	query := `INSERT INTO personal_records (id, user_id, source, exercise_key, exercise_id,
		exercise_name, weight_kg, reps, achieved_at, workout_id) VALUES `
	args := make([]any, 0, len(recs)*10)
	valueStrings := make([]string, 0, len(recs))

	for i, r := range recs {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			id = uuid.New()
		}
		var workoutID *uuid.UUID
		if wid, err := uuid.Parse(r.WorkoutID); err == nil {
			workoutID = &wid
		}

		base := i * 10
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5,
			base+6, base+7, base+8, base+9, base+10,
		))
		args = append(args, id, userID, source, r.ExerciseKey, r.ExerciseID,
			r.ExerciseName, r.WeightKg, r.Reps, r.AchievedAt, workoutID)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting personal records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanRecords(rows pgx.Rows) ([]models.PersonalRecord, error) {
	var result []models.PersonalRecord
	for rows.Next() {
		var r models.PersonalRecord
		if err := rows.Scan(&r.ID, &r.ExerciseKey, &r.ExerciseID, &r.ExerciseName,
			&r.WeightKg, &r.Reps, &r.AchievedAt, &r.WorkoutID); err != nil {
			return nil, fmt.Errorf("scanning personal record: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// RecordLookup adapts the records table to the PR detector. The user is taken
// from the request context (see ContextWithUser).
type RecordLookup struct {
	db *DB
}

// Records returns a RecordLookup backed by db.
func (db *DB) Records() *RecordLookup {
	return &RecordLookup{db: db}
}

// BestRecord implements records.Lookup.
func (l *RecordLookup) BestRecord(ctx context.Context, exerciseKey string) (*models.PersonalRecord, error) {
	userID, ok := UserFromContext(ctx)
	if !ok {
		return nil, errors.New("no user in context")
	}
	return l.db.BestRecord(ctx, userID, exerciseKey)
}
