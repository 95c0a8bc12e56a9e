// Package records decides whether a logged set is a personal record.
package records

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/setlog/internal/models"
	"github.com/google/uuid"
)

// IsPR reports whether a set of weightKg × reps beats best.
// With no best on file every set is a PR. Otherwise the set must be at least as
// good on both weight and reps and strictly better on one of them.
func IsPR(best *models.PersonalRecord, weightKg float64, reps int) bool {
	if best == nil {
		return true
	}
	return (weightKg > best.WeightKg && reps >= best.Reps) ||
		(weightKg >= best.WeightKg && reps > best.Reps)
}

// Lookup returns the best historical record for an exercise key, or nil.
type Lookup interface {
	BestRecord(ctx context.Context, exerciseKey string) (*models.PersonalRecord, error)
}

// Detector classifies sets as they are logged.
type Detector struct {
	lookup Lookup
	now    func() time.Time
	log    *slog.Logger
}

// NewDetector creates a Detector. lookup may be nil (no history).
func NewDetector(lookup Lookup, now func() time.Time, log *slog.Logger) *Detector {
	return &Detector{lookup: lookup, now: now, log: log}
}

// Detect returns a new PersonalRecord if the set beats the current best for the
// exercise, or nil. The current best is the latest record for the exercise in
// sessionPRs, falling back to the historical lookup.
func (d *Detector) Detect(ctx context.Context, ex models.WorkoutExercise, workoutID string, weightKg float64, reps int, sessionPRs []models.PersonalRecord) *models.PersonalRecord {
	best := Latest(sessionPRs, ex.ID)
	if best == nil {
		best = d.History(ctx, ex.ID)
	}
	return d.Classify(ex, workoutID, best, weightKg, reps)
}

// History returns the historical best for exerciseKey, or nil when there is
// none or the lookup fails.
func (d *Detector) History(ctx context.Context, exerciseKey string) *models.PersonalRecord {
	if d.lookup == nil {
		return nil
	}
	hist, err := d.lookup.BestRecord(ctx, exerciseKey)
	if err != nil {
		d.log.Warn("personal record lookup failed", "exercise", exerciseKey, "error", err)
		return nil
	}
	return hist
}

// Classify returns a new PersonalRecord if weightKg × reps beats best, or nil.
func (d *Detector) Classify(ex models.WorkoutExercise, workoutID string, best *models.PersonalRecord, weightKg float64, reps int) *models.PersonalRecord {
	if !IsPR(best, weightKg, reps) {
		return nil
	}
	return &models.PersonalRecord{
		ID:           uuid.New().String(),
		ExerciseKey:  ex.ID,
		ExerciseID:   ex.ExerciseID,
		ExerciseName: ex.Name,
		WeightKg:     weightKg,
		Reps:         reps,
		AchievedAt:   d.now(),
		WorkoutID:    workoutID,
	}
}

// Latest returns the last record for key. Records in a session form a chain
// where each one dominates its predecessor, so the last is the best.
func Latest(prs []models.PersonalRecord, key string) *models.PersonalRecord {
	for i := len(prs) - 1; i >= 0; i-- {
		if prs[i].ExerciseKey == key {
			pr := prs[i]
			return &pr
		}
	}
	return nil
}

// Chain replays a chronological list of sets through IsPR and returns the
// records it produces. Used to seed the baseline from imported history.
func Chain(sets []models.WorkoutSetRow) []models.PersonalRecord {
	best := make(map[string]*models.PersonalRecord)
	var out []models.PersonalRecord
	for _, s := range sets {
		if !IsPR(best[s.ExerciseKey], s.WeightKg, s.Reps) {
			continue
		}
		pr := models.PersonalRecord{
			ID:           uuid.New().String(),
			ExerciseKey:  s.ExerciseKey,
			ExerciseID:   s.ExerciseID,
			ExerciseName: s.ExerciseName,
			WeightKg:     s.WeightKg,
			Reps:         s.Reps,
			AchievedAt:   s.PerformedAt,
		}
		best[s.ExerciseKey] = &pr
		out = append(out, pr)
	}
	return out
}

// Book is an in-memory Lookup.
type Book struct {
	mu   sync.RWMutex
	best map[string]models.PersonalRecord
}

// NewBook creates a Book seeded with records. Later records for a key replace earlier ones.
func NewBook(recs ...models.PersonalRecord) *Book {
	b := &Book{best: make(map[string]models.PersonalRecord)}
	b.Add(recs...)
	return b
}

// Add records new bests.
func (b *Book) Add(recs ...models.PersonalRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range recs {
		b.best[r.ExerciseKey] = r
	}
}

// BestRecord implements Lookup.
func (b *Book) BestRecord(_ context.Context, exerciseKey string) (*models.PersonalRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.best[exerciseKey]
	if !ok {
		return nil, nil
	}
	return &r, nil
}
