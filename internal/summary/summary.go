// Package summary reduces a finished session into a WorkoutSummary.
package summary

import (
	"math"
	"time"

	"github.com/claude/setlog/internal/models"
)

const (
	DefaultMET          = 5.0
	DefaultBodyWeightKg = 75.0
)

// Options holds the inputs of the calorie estimate.
type Options struct {
	MET          float64
	BodyWeightKg float64
}

func (o Options) withDefaults() Options {
	if o.MET <= 0 {
		o.MET = DefaultMET
	}
	if o.BodyWeightKg <= 0 {
		o.BodyWeightKg = DefaultBodyWeightKg
	}
	return o
}

// Build returns the summary of state, or nil when no workout is loaded.
func Build(state *models.ExecutionState, finishedAt time.Time, opts Options) *models.WorkoutSummary {
	if state == nil || state.Workout == nil {
		return nil
	}
	opts = opts.withDefaults()
	w := state.Workout

	planned := 0
	for _, ex := range w.Exercises {
		if len(ex.Sets) > 0 {
			planned++
		}
	}

	touched := make(map[string]struct{})
	var volume float64
	for _, s := range state.CompletedSets {
		touched[s.ExerciseKey] = struct{}{}
		volume += s.Volume()
	}

	return &models.WorkoutSummary{
		WorkoutID:          w.ID,
		WorkoutName:        w.Name,
		StartedAt:          state.StartedAt,
		FinishedAt:         finishedAt,
		DurationMinutes:    DurationMinutes(state.ElapsedSeconds),
		ExercisesCompleted: len(touched),
		ExercisesPlanned:   planned,
		SetsCompleted:      len(state.CompletedSets),
		SetsPlanned:        w.TotalSets(),
		VolumeKg:           volume,
		EstimatedCalories:  Calories(state.ElapsedSeconds, opts),
		PersonalRecords:    append([]models.PersonalRecord(nil), state.PersonalRecords...),
		Sets:               append([]models.CompletedSet(nil), state.CompletedSets...),
	}
}

// DurationMinutes rounds elapsed seconds to whole minutes.
func DurationMinutes(elapsedSeconds int) int {
	return int(math.Round(float64(elapsedSeconds) / 60))
}

// Calories estimates energy expenditure as MET × body weight × hours.
func Calories(elapsedSeconds int, opts Options) int {
	opts = opts.withDefaults()
	hours := float64(elapsedSeconds) / 3600
	return int(math.Round(opts.MET * opts.BodyWeightKg * hours))
}
