package models

import "time"

// Status is the lifecycle state of an execution session.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusResting    Status = "resting"
	StatusCompleted  Status = "completed"
)

// Active reports whether the session is in_progress or resting.
func (s Status) Active() bool {
	return s == StatusInProgress || s == StatusResting
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusResting, StatusCompleted:
		return true
	default:
		return false
	}
}

// ExecutionState is the root aggregate of a live session. It is serialized as a
// whole into the session slot on every transition.
type ExecutionState struct {
	Workout         *Workout         `json:"workout"`
	ExerciseIndex   int              `json:"exercise_index"`
	SetIndex        int              `json:"set_index"`
	CompletedSets   []CompletedSet   `json:"completed_sets"`
	Status          Status           `json:"status"`
	PersonalRecords []PersonalRecord `json:"personal_records"`
	ElapsedSeconds  int              `json:"elapsed_seconds"`
	StartedAt       time.Time        `json:"started_at"`

	Resting              bool       `json:"resting"`
	RestSecondsRemaining int        `json:"rest_seconds_remaining"`
	RestTotalSeconds     int        `json:"rest_total_seconds"`
	RestEndsAt           *time.Time `json:"rest_ends_at,omitempty"`
}

// NewExecutionState returns an empty not_started state.
func NewExecutionState() *ExecutionState {
	return &ExecutionState{Status: StatusNotStarted}
}

// CurrentExercise returns the exercise under the cursor, or nil.
func (s *ExecutionState) CurrentExercise() *WorkoutExercise {
	if s.Workout == nil || s.ExerciseIndex < 0 || s.ExerciseIndex >= len(s.Workout.Exercises) {
		return nil
	}
	return &s.Workout.Exercises[s.ExerciseIndex]
}

// CurrentSet returns the planned set under the cursor, or nil.
func (s *ExecutionState) CurrentSet() *ExerciseSet {
	ex := s.CurrentExercise()
	if ex == nil || s.SetIndex < 0 || s.SetIndex >= len(ex.Sets) {
		return nil
	}
	return &ex.Sets[s.SetIndex]
}

// Clone returns a deep copy. The workout template is shared since it is immutable.
func (s *ExecutionState) Clone() *ExecutionState {
	c := *s
	c.CompletedSets = append([]CompletedSet(nil), s.CompletedSets...)
	c.PersonalRecords = append([]PersonalRecord(nil), s.PersonalRecords...)
	if s.RestEndsAt != nil {
		t := *s.RestEndsAt
		c.RestEndsAt = &t
	}
	return &c
}

// WorkoutSummary is the read-only snapshot handed to backend persistence when a
// session finishes.
type WorkoutSummary struct {
	WorkoutID          string           `json:"workout_id"`
	WorkoutName        string           `json:"workout_name"`
	StartedAt          time.Time        `json:"started_at"`
	FinishedAt         time.Time        `json:"finished_at"`
	DurationMinutes    int              `json:"duration_minutes"`
	ExercisesCompleted int              `json:"exercises_completed"`
	ExercisesPlanned   int              `json:"exercises_planned"`
	SetsCompleted      int              `json:"sets_completed"`
	SetsPlanned        int              `json:"sets_planned"`
	VolumeKg           float64          `json:"volume_kg"`
	EstimatedCalories  int              `json:"estimated_calories"`
	PersonalRecords    []PersonalRecord `json:"personal_records"`
	Sets               []CompletedSet   `json:"sets"`
}
