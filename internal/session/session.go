// Package session implements the live workout execution engine.
//
// A Session walks the user through the exercises and sets of one workout,
// logs completed sets through the PR detector, delegates rest windows to the
// rest timer and persists the whole state after every transition so it can
// resume after a crash or reload.
//
// Mutating operations never return errors. Calls that do not apply to the
// current state (no workout, wrong status, cursor past the end) are ignored.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/setlog/internal/device"
	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/records"
	"github.com/claude/setlog/internal/resttimer"
	"github.com/claude/setlog/internal/summary"
	"github.com/google/uuid"
	"tailscale.com/tstime"
)

// DefaultRestSeconds is used by StartRest when called with a non-positive length.
const DefaultRestSeconds = 90

// Options configures a Session.
type Options struct {
	Store    Store
	Detector *records.Detector
	Clock    tstime.Clock
	Devices  device.Set
	Log      *slog.Logger

	// ElapsedInterval is the period of the elapsed-time loop. Zero disables it.
	ElapsedInterval time.Duration
	// TickInterval is the rest timer's wake-up period. Zero disables it.
	TickInterval  time.Duration
	CountdownFrom int
	Volume        float64
	RestSeconds   int
	Summary       summary.Options

	// OnChange is called after every persisted transition, with the session
	// lock held. It must not block or call back into the Session.
	OnChange func()
}

// Session is the single live workout session.
type Session struct {
	store       Store
	detector    *records.Detector
	clock       tstime.Clock
	log         *slog.Logger
	timer       *resttimer.Timer
	elapsedTick time.Duration
	restSeconds int
	summaryOpts summary.Options
	onChange    func()

	mu    sync.Mutex
	state *models.ExecutionState
	// Elapsed time is elapsedBase plus the time since segmentStart. A restored
	// session starts a new segment so time the process was dead is not counted.
	elapsedBase  int
	segmentStart time.Time
	elapsedStop  chan struct{}
}

// New creates a Session and restores any live session from the store.
func New(opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = tstime.StdClock{}
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Detector == nil {
		opts.Detector = records.NewDetector(nil, opts.Clock.Now, opts.Log)
	}
	if opts.RestSeconds <= 0 {
		opts.RestSeconds = DefaultRestSeconds
	}

	s := &Session{
		store:       opts.Store,
		detector:    opts.Detector,
		clock:       opts.Clock,
		log:         opts.Log,
		elapsedTick: opts.ElapsedInterval,
		restSeconds: opts.RestSeconds,
		summaryOpts: opts.Summary,
		onChange:    opts.OnChange,
		state:       models.NewExecutionState(),
	}
	s.timer = resttimer.New(resttimer.Options{
		Clock:         opts.Clock,
		Devices:       opts.Devices,
		Log:           opts.Log,
		TickInterval:  opts.TickInterval,
		CountdownFrom: opts.CountdownFrom,
		Volume:        opts.Volume,
		OnTick:        s.onRestTick,
		OnComplete:    s.onRestComplete,
	})
	s.restore()
	return s
}

// restore adopts the persisted session if it is still live.
func (s *Session) restore() {
	st, err := s.store.Load()
	if err != nil {
		s.log.Warn("dropping unreadable session", "error", err)
		s.clearSlot()
		return
	}
	if st == nil {
		return
	}
	if !st.Status.Active() || st.Workout == nil {
		s.log.Info("discarding inactive stored session", "status", st.Status)
		s.clearSlot()
		return
	}
	if st.CurrentSet() == nil {
		s.log.Warn("dropping stored session with no current set",
			"exercise_index", st.ExerciseIndex, "set_index", st.SetIndex)
		s.clearSlot()
		return
	}

	s.mu.Lock()
	s.state = st
	s.elapsedBase = st.ElapsedSeconds
	s.segmentStart = s.clock.Now()
	resting := st.Status == models.StatusResting
	endsAt, remaining, total := st.RestEndsAt, st.RestSecondsRemaining, st.RestTotalSeconds
	s.startElapsedLocked()
	s.mu.Unlock()

	if resting {
		switch {
		case endsAt != nil:
			if !s.timer.StartUntil(*endsAt, total) {
				s.log.Info("rest ended while away")
				s.finishRest()
			}
		case remaining > 0:
			s.timer.SetPaused(remaining, total)
		default:
			s.finishRest()
		}
	}

	s.mu.Lock()
	s.saveLocked()
	s.mu.Unlock()
	s.log.Info("session restored",
		"workout", st.Workout.Name,
		"status", st.Status,
		"completed_sets", len(st.CompletedSets),
	)
}

// StartWorkout begins executing w, replacing any live session.
func (s *Session) StartWorkout(w models.Workout) {
	s.timer.Clear()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status.Active() {
		s.log.Warn("discarding live session", "workout", s.state.Workout.Name, "completed_sets", len(s.state.CompletedSets))
	}
	s.stopElapsedLocked()

	wc := cloneWorkout(w)
	if n := assignExerciseIDs(&wc); n > 0 {
		s.log.Info("assigned exercise ids", "workout", wc.Name, "count", n)
	}
	now := s.clock.Now()
	st := &models.ExecutionState{
		Workout:         &wc,
		Status:          models.StatusInProgress,
		StartedAt:       now,
		CompletedSets:   []models.CompletedSet{},
		PersonalRecords: []models.PersonalRecord{},
	}
	s.state = st
	s.elapsedBase = 0
	s.segmentStart = now

	if idx := nextExercise(&wc, 0); idx >= 0 {
		st.ExerciseIndex = idx
		s.startElapsedLocked()
	} else {
		st.ExerciseIndex = len(wc.Exercises)
		st.Status = models.StatusCompleted
	}
	s.saveLocked()
	s.log.Info("workout started", "workout", wc.Name, "sets", wc.TotalSets())
}

// CompleteSet logs the current set and advances the cursor. Completing a set
// during a rest ends the rest.
//
// The historical best is looked up without holding the lock, so the cursor is
// re-read afterwards and the set lands on whatever is current then.
func (s *Session) CompleteSet(ctx context.Context, reps int, weightKg float64) {
	var (
		hist    *models.PersonalRecord
		histKey string
		looked  bool
	)
	s.mu.Lock()
	for {
		st := s.state
		if !st.Status.Active() || st.CurrentSet() == nil {
			s.mu.Unlock()
			return
		}
		ex := *st.CurrentExercise()
		best := records.Latest(st.PersonalRecords, ex.ID)
		if best == nil && (!looked || histKey != ex.ID) {
			s.mu.Unlock()
			hist, histKey, looked = s.detector.History(ctx, ex.ID), ex.ID, true
			s.mu.Lock()
			continue
		}
		if best == nil {
			best = hist
		}
		pr := s.detector.Classify(ex, st.Workout.ID, best, weightKg, reps)

		st.CompletedSets = append(st.CompletedSets, models.CompletedSet{
			ExerciseKey:  ex.ID,
			ExerciseName: ex.Name,
			SetNumber:    st.SetIndex + 1,
			Reps:         reps,
			WeightKg:     weightKg,
			IsPR:         pr != nil,
			CompletedAt:  s.clock.Now(),
		})
		if pr != nil {
			st.PersonalRecords = append(st.PersonalRecords, *pr)
			s.log.Info("personal record", "exercise", ex.Name, "weight_kg", weightKg, "reps", reps)
		}
		break
	}
	wasResting := s.endRestLocked()
	s.advanceLocked(false)
	s.saveLocked()
	s.mu.Unlock()

	if wasResting {
		s.timer.Clear()
	}
}

// SkipSet advances past the current set without logging it.
func (s *Session) SkipSet() {
	s.skip(false)
}

// SkipExercise advances to the first set of the next exercise.
func (s *Session) SkipExercise() {
	s.skip(true)
}

func (s *Session) skip(exercise bool) {
	s.mu.Lock()
	if !s.state.Status.Active() || s.state.CurrentSet() == nil {
		s.mu.Unlock()
		return
	}
	wasResting := s.endRestLocked()
	s.advanceLocked(exercise)
	s.saveLocked()
	s.mu.Unlock()

	if wasResting {
		s.timer.Clear()
	}
}

// StartRest starts a rest window. A non-positive length uses the configured
// default. Starting a rest while resting restarts the window.
func (s *Session) StartRest(seconds int) {
	if seconds <= 0 {
		seconds = s.restSeconds
	}
	s.mu.Lock()
	if !s.state.Status.Active() {
		s.mu.Unlock()
		return
	}
	st := s.state
	st.Status = models.StatusResting
	st.Resting = true
	st.RestSecondsRemaining = seconds
	st.RestTotalSeconds = seconds
	st.RestEndsAt = nil
	s.saveLocked()
	s.mu.Unlock()

	s.timer.Start(seconds)
}

// SkipRest ends the rest window now.
func (s *Session) SkipRest() {
	if !s.resting() {
		return
	}
	s.timer.Skip()
	s.finishRest()
}

// AddRestTime extends the current rest window. Negative values shorten it.
func (s *Session) AddRestTime(seconds int) {
	if !s.resting() {
		return
	}
	s.timer.AddTime(seconds)
}

// PauseRest freezes the rest countdown.
func (s *Session) PauseRest() {
	if !s.resting() {
		return
	}
	s.timer.Pause()
}

// ResumeRest restarts a paused rest countdown.
func (s *Session) ResumeRest() {
	if !s.resting() {
		return
	}
	s.timer.Resume()
}

// Wake rechecks the rest timer and elapsed time after the host regained
// visibility or focus.
func (s *Session) Wake(reason resttimer.WakeReason) {
	s.timer.Wake(reason)
	s.mu.Lock()
	if s.state.Status.Active() {
		s.saveLocked()
	}
	s.mu.Unlock()
}

// FinishWorkout builds the summary of the current workout, clears the stored
// session and returns the engine to not_started. It returns nil when no
// workout is loaded.
func (s *Session) FinishWorkout() *models.WorkoutSummary {
	s.mu.Lock()
	if s.state.Workout == nil {
		s.mu.Unlock()
		return nil
	}
	if s.state.Status.Active() {
		s.state.ElapsedSeconds = s.elapsedLocked()
	}
	sum := summary.Build(s.state, s.clock.Now(), s.summaryOpts)
	s.stopElapsedLocked()
	s.state = models.NewExecutionState()
	s.clearSlot()
	s.changed()
	s.mu.Unlock()

	s.timer.Clear()
	s.log.Info("workout finished",
		"workout", sum.WorkoutName,
		"sets", sum.SetsCompleted,
		"personal_records", len(sum.PersonalRecords),
		"duration_minutes", sum.DurationMinutes,
	)
	return sum
}

// Close stops the background loops. The stored session is kept.
func (s *Session) Close() {
	s.timer.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status.Active() {
		s.saveLocked()
	}
	s.stopElapsedLocked()
}

// State returns a copy of the current execution state.
func (s *Session) State() *models.ExecutionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state.Clone()
	if st.Status.Active() {
		st.ElapsedSeconds = s.elapsedLocked()
	}
	return st
}

func (s *Session) resting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Status == models.StatusResting
}

// onRestTick mirrors the timer into the persisted state.
func (s *Session) onRestTick(ts resttimer.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != models.StatusResting {
		return
	}
	s.state.RestSecondsRemaining = ts.Remaining
	s.state.RestTotalSeconds = ts.Total
	s.state.RestEndsAt = ts.EndsAt
	s.saveLocked()
}

func (s *Session) onRestComplete() {
	s.finishRest()
}

// finishRest returns a resting session to in_progress.
func (s *Session) finishRest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endRestLocked() {
		s.saveLocked()
	}
}

// endRestLocked clears the rest fields. It reports whether the session was resting.
func (s *Session) endRestLocked() bool {
	st := s.state
	if st.Status != models.StatusResting {
		return false
	}
	st.Status = models.StatusInProgress
	st.Resting = false
	st.RestSecondsRemaining = 0
	st.RestEndsAt = nil
	return true
}

// advanceLocked moves the cursor to the next set, or to the first set of the
// next exercise when exercise is true or the current exercise is exhausted.
// Running off the end completes the workout.
func (s *Session) advanceLocked(exercise bool) {
	st := s.state
	cur := st.CurrentExercise()
	if !exercise && cur != nil && st.SetIndex+1 < len(cur.Sets) {
		st.SetIndex++
		return
	}
	if next := nextExercise(st.Workout, st.ExerciseIndex+1); next >= 0 {
		st.ExerciseIndex = next
		st.SetIndex = 0
		return
	}

	st.ElapsedSeconds = s.elapsedLocked()
	st.Status = models.StatusCompleted
	st.ExerciseIndex = len(st.Workout.Exercises)
	st.SetIndex = 0
	s.stopElapsedLocked()
	s.log.Info("workout completed", "workout", st.Workout.Name, "sets", len(st.CompletedSets))
}

func (s *Session) elapsedLocked() int {
	return s.elapsedBase + int(s.clock.Now().Sub(s.segmentStart)/time.Second)
}

// saveLocked writes the state to the store. Failures are logged; the session
// keeps running from memory.
func (s *Session) saveLocked() {
	if s.state.Status.Active() {
		s.state.ElapsedSeconds = s.elapsedLocked()
	}
	if err := s.store.Save(s.state); err != nil {
		s.log.Error("saving session", "error", err)
	}
	s.changed()
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func (s *Session) clearSlot() {
	if err := s.store.Clear(); err != nil {
		s.log.Error("clearing session", "error", err)
	}
}

func (s *Session) startElapsedLocked() {
	if s.elapsedTick <= 0 || s.elapsedStop != nil {
		return
	}
	stop := make(chan struct{})
	s.elapsedStop = stop
	ticker, ch := s.clock.NewTicker(s.elapsedTick)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ch:
				s.refreshElapsed(stop)
			}
		}
	}()
}

func (s *Session) refreshElapsed(loop chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.elapsedStop != loop || !s.state.Status.Active() {
		return
	}
	s.saveLocked()
}

func (s *Session) stopElapsedLocked() {
	if s.elapsedStop != nil {
		close(s.elapsedStop)
		s.elapsedStop = nil
	}
}

// nextExercise returns the index of the first exercise at or after from that
// has planned sets, or -1.
func nextExercise(w *models.Workout, from int) int {
	for i := from; i < len(w.Exercises); i++ {
		if len(w.Exercises[i].Sets) > 0 {
			return i
		}
	}
	return -1
}

// assignExerciseIDs replaces blank and repeated exercise ids with fresh ones
// and reports how many it replaced.
func assignExerciseIDs(w *models.Workout) int {
	seen := make(map[string]bool, len(w.Exercises))
	n := 0
	for i := range w.Exercises {
		ex := &w.Exercises[i]
		if ex.ID == "" || seen[ex.ID] {
			ex.ID = uuid.New().String()
			n++
		}
		seen[ex.ID] = true
	}
	return n
}

func cloneWorkout(w models.Workout) models.Workout {
	exs := make([]models.WorkoutExercise, len(w.Exercises))
	for i, ex := range w.Exercises {
		ex.Sets = append([]models.ExerciseSet(nil), ex.Sets...)
		exs[i] = ex
	}
	w.Exercises = exs
	return w
}
