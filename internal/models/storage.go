package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkoutRow is a row in the workouts table: one finished session.
type WorkoutRow struct {
	ID                 uuid.UUID `json:"id"`
	UserID             int       `json:"user_id"`
	TemplateID         string    `json:"template_id"`
	Name               string    `json:"name"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
	DurationMinutes    int       `json:"duration_minutes"`
	ExercisesCompleted int       `json:"exercises_completed"`
	ExercisesPlanned   int       `json:"exercises_planned"`
	SetsCompleted      int       `json:"sets_completed"`
	SetsPlanned        int       `json:"sets_planned"`
	VolumeKg           float64   `json:"volume_kg"`
	EstimatedCalories  int       `json:"estimated_calories"`
}

// WorkoutSetRow is a row in the workout_sets table. Live sessions and imports
// both land here; WorkoutID is nil for imported history.
type WorkoutSetRow struct {
	UserID       int        `json:"user_id"`
	WorkoutID    *uuid.UUID `json:"workout_id,omitempty"`
	Source       string     `json:"source"`
	ExerciseKey  string     `json:"exercise_key"`
	ExerciseID   string     `json:"exercise_id,omitempty"`
	ExerciseName string     `json:"exercise_name"`
	SetNumber    int        `json:"set_number"`
	WeightKg     float64    `json:"weight_kg"`
	Reps         int        `json:"reps"`
	RIR          *float64   `json:"rir,omitempty"`
	IsPR         bool       `json:"is_pr"`
	PerformedAt  time.Time  `json:"performed_at"`
}

// Set sources.
const (
	SourceLive  = "live"
	SourceAlpha = "alpha"
)
