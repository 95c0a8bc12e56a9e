package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/setlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WorkoutDetail is a finished workout with its sets and the records it set.
type WorkoutDetail struct {
	models.WorkoutRow
	Sets            []models.WorkoutSetRow  `json:"sets"`
	PersonalRecords []models.PersonalRecord `json:"personal_records"`
}

// SaveWorkout stores a finished session: the workout row, its sets and its
// personal records, in one transaction. Returns the new workout ID.
func (db *DB) SaveWorkout(ctx context.Context, userID int, s *models.WorkoutSummary) (uuid.UUID, error) {
	id := uuid.New()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO workouts (id, user_id, template_id, name, started_at, finished_at,
		 duration_minutes, exercises_completed, exercises_planned, sets_completed, sets_planned,
		 volume_kg, estimated_calories)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		id, userID, s.WorkoutID, s.WorkoutName, s.StartedAt, s.FinishedAt,
		s.DurationMinutes, s.ExercisesCompleted, s.ExercisesPlanned, s.SetsCompleted, s.SetsPlanned,
		s.VolumeKg, s.EstimatedCalories)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting workout: %w", err)
	}

	sets := make([]models.WorkoutSetRow, 0, len(s.Sets))
	for _, cs := range s.Sets {
		sets = append(sets, models.WorkoutSetRow{
			UserID:       userID,
			WorkoutID:    &id,
			Source:       models.SourceLive,
			ExerciseKey:  cs.ExerciseKey,
			ExerciseName: cs.ExerciseName,
			SetNumber:    cs.SetNumber,
			WeightKg:     cs.WeightKg,
			Reps:         cs.Reps,
			IsPR:         cs.IsPR,
			PerformedAt:  cs.CompletedAt,
		})
	}
	if _, err := insertWorkoutSets(ctx, tx, sets); err != nil {
		return uuid.Nil, err
	}

	prs := make([]models.PersonalRecord, len(s.PersonalRecords))
	for i, pr := range s.PersonalRecords {
		pr.WorkoutID = id.String()
		prs[i] = pr
	}
	if _, err := insertPersonalRecords(ctx, tx, userID, models.SourceLive, prs); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("committing workout: %w", err)
	}
	return id, nil
}

const workoutColumns = `id, user_id, template_id, name, started_at, finished_at,
		 duration_minutes, exercises_completed, exercises_planned, sets_completed, sets_planned,
		 volume_kg, estimated_calories`

// QueryWorkouts retrieves finished workouts started in a time range, newest first.
func (db *DB) QueryWorkouts(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+workoutColumns+`
		 FROM workouts
		 WHERE started_at >= $1 AND started_at < $2 AND user_id = $3
		 ORDER BY started_at DESC`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutRow
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// GetWorkout retrieves a single workout by ID with its sets and records.
// Returns ErrNotFound when the workout does not exist for the user.
func (db *DB) GetWorkout(ctx context.Context, workoutID uuid.UUID, userID int) (*WorkoutDetail, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+workoutColumns+`
		 FROM workouts
		 WHERE id = $1 AND user_id = $2`,
		workoutID, userID)

	w, err := scanWorkout(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	detail := &WorkoutDetail{WorkoutRow: w}

	setRows, err := db.Pool.Query(ctx,
		`SELECT `+setColumns+`
		 FROM workout_sets
		 WHERE workout_id = $1 AND user_id = $2
		 ORDER BY performed_at ASC, id ASC`,
		workoutID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer setRows.Close()
	if detail.Sets, err = scanWorkoutSets(setRows); err != nil {
		return nil, err
	}

	prRows, err := db.Pool.Query(ctx,
		`SELECT `+recordColumns+`
		 FROM personal_records
		 WHERE workout_id = $1 AND user_id = $2
		 ORDER BY achieved_at ASC`,
		workoutID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workout records: %w", err)
	}
	defer prRows.Close()
	if detail.PersonalRecords, err = scanRecords(prRows); err != nil {
		return nil, err
	}
	return detail, nil
}

func scanWorkout(row pgx.Row) (models.WorkoutRow, error) {
	var w models.WorkoutRow
	err := row.Scan(&w.ID, &w.UserID, &w.TemplateID, &w.Name, &w.StartedAt, &w.FinishedAt,
		&w.DurationMinutes, &w.ExercisesCompleted, &w.ExercisesPlanned, &w.SetsCompleted, &w.SetsPlanned,
		&w.VolumeKg, &w.EstimatedCalories)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return w, err
		}
		return w, fmt.Errorf("scanning workout: %w", err)
	}
	return w, nil
}
