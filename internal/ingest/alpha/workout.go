package alpha

import (
	"strings"
	"unicode"

	"github.com/claude/setlog/internal/models"
)

// ExerciseKey returns the exercise key imported history is stored under.
// Templates built with Workout use the same key, so a live session compares
// against the imported records.
func ExerciseKey(ex models.AlphaExercise) string {
	return "alpha:" + slug(ex.Name+" "+ex.Equipment)
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// SetRows converts the working sets of a session to storage rows. It also
// returns the number of warmup sets left out.
func SetRows(s models.AlphaSession, userID int) ([]models.WorkoutSetRow, int) {
	var rows []models.WorkoutSetRow
	warmups := 0
	for _, ex := range s.Exercises {
		key := ExerciseKey(ex)
		working, skipped := ex.WorkingSets()
		warmups += skipped
		for _, set := range working {
			rir := set.RIR
			rows = append(rows, models.WorkoutSetRow{
				UserID:       userID,
				Source:       models.SourceAlpha,
				ExerciseKey:  key,
				ExerciseName: ex.Name,
				SetNumber:    set.Number,
				WeightKg:     set.WeightKg,
				Reps:         set.Reps,
				RIR:          &rir,
				PerformedAt:  s.Date,
			})
		}
	}
	return rows, warmups
}

// Workout turns a parsed session into a template that repeats it: one planned
// set per working set, targeting the weight and reps that were done.
func Workout(s models.AlphaSession) models.Workout {
	w := models.Workout{
		ID:   "alpha:" + slug(s.Name) + ":" + s.Date.Format("20060102"),
		Name: s.Name,
	}
	for _, ex := range s.Exercises {
		we := models.WorkoutExercise{
			ID:   ExerciseKey(ex),
			Name: ex.Name,
		}
		working, _ := ex.WorkingSets()
		for _, set := range working {
			we.Sets = append(we.Sets, models.ExerciseSet{
				TargetReps:     set.Reps,
				TargetWeightKg: set.WeightKg,
			})
		}
		w.Exercises = append(w.Exercises, we)
	}
	return w
}
