package models

import "time"

// AlphaSession is one workout of an Alpha Progression CSV export.
type AlphaSession struct {
	Name      string
	Date      time.Time
	Duration  string // as exported, e.g. "1:02 hr"
	Exercises []AlphaExercise
}

// AlphaExercise is a numbered exercise block. Warmups from the header come
// first in Sets, followed by the working sets.
type AlphaExercise struct {
	Number     int
	Name       string
	Equipment  string
	TargetReps int
	Sets       []AlphaSet
}

// AlphaSet is one exported set. WeightKg is the added load when
// IsBodyweightPlus is set.
type AlphaSet struct {
	Number           int
	WeightKg         float64
	IsBodyweightPlus bool
	Reps             int
	RIR              float64
	IsWarmup         bool
}

// WorkingSets returns the non-warmup sets and the number of warmups skipped.
func (e AlphaExercise) WorkingSets() ([]AlphaSet, int) {
	working := make([]AlphaSet, 0, len(e.Sets))
	for _, s := range e.Sets {
		if !s.IsWarmup {
			working = append(working, s)
		}
	}
	return working, len(e.Sets) - len(working)
}
