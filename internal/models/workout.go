package models

import "time"

// Workout is the immutable template a session executes.
type Workout struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Exercises []WorkoutExercise `json:"exercises"`
}

// WorkoutExercise is one exercise slot inside a workout.
// ID is scoped to the workout; ExerciseID points at the exercise catalog and may
// be empty for ad-hoc templates.
type WorkoutExercise struct {
	ID         string        `json:"id"`
	ExerciseID string        `json:"exercise_id,omitempty"`
	Name       string        `json:"name"`
	Sets       []ExerciseSet `json:"sets"`
}

// ExerciseSet is a planned set. Targets are hints for the UI only.
type ExerciseSet struct {
	TargetReps     int     `json:"target_reps,omitempty"`
	TargetWeightKg float64 `json:"target_weight_kg,omitempty"`
}

// TotalSets returns the number of planned sets across all exercises.
func (w *Workout) TotalSets() int {
	if w == nil {
		return 0
	}
	n := 0
	for _, ex := range w.Exercises {
		n += len(ex.Sets)
	}
	return n
}

// CompletedSet is a logged set. It is never mutated once appended.
type CompletedSet struct {
	ExerciseKey  string    `json:"exercise_key"`
	ExerciseName string    `json:"exercise_name"`
	SetNumber    int       `json:"set_number"`
	Reps         int       `json:"reps"`
	WeightKg     float64   `json:"weight_kg"`
	IsPR         bool      `json:"is_pr"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Volume returns weight × reps for the set.
func (s CompletedSet) Volume() float64 {
	return s.WeightKg * float64(s.Reps)
}

// PersonalRecord is created by the PR detector at the moment a set is logged.
// ExerciseKey is the session-scoped exercise id used for all PR bookkeeping.
type PersonalRecord struct {
	ID           string    `json:"id"`
	ExerciseKey  string    `json:"exercise_key"`
	ExerciseID   string    `json:"exercise_id,omitempty"`
	ExerciseName string    `json:"exercise_name"`
	WeightKg     float64   `json:"weight_kg"`
	Reps         int       `json:"reps"`
	AchievedAt   time.Time `json:"achieved_at"`
	WorkoutID    string    `json:"workout_id,omitempty"`
}
