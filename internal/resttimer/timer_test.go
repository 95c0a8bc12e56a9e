package resttimer

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/setlog/internal/device"
	"go.uber.org/goleak"
	"tailscale.com/tstest"
	"tailscale.com/tstime"
)

var start = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

// recorder is a device.Set that counts every request.
type recorder struct {
	mu         sync.Mutex
	cues       []device.Cue
	vibrations int
	scheduled  []time.Duration
	cancels    int
	keepAlive  int // running keep-alives
}

func (r *recorder) PlayCue(kind device.Cue, _ float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, kind)
	return nil
}

func (r *recorder) Vibrate([]time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vibrations++
	return nil
}

func (r *recorder) Schedule(d time.Duration, _ device.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduled = append(r.scheduled, d)
	return nil
}

func (r *recorder) Cancel() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels++
	return nil
}

func (r *recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keepAlive++
	return nil
}

func (r *recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keepAlive--
	return nil
}

func (r *recorder) set() device.Set {
	return device.Set{Player: r, Haptics: r, Notifier: r, KeepAlive: r}
}

func (r *recorder) count(kind device.Cue) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.cues {
		if c == kind {
			n++
		}
	}
	return n
}

type harness struct {
	clock     *tstest.Clock
	rec       *recorder
	timer     *Timer
	completed atomic.Int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock: tstest.NewClock(tstest.ClockOpts{Start: start}),
		rec:   &recorder{},
	}
	h.timer = New(Options{
		Clock:      h.clock,
		Devices:    h.rec.set(),
		Log:        slog.Default(),
		Volume:     0.8,
		OnComplete: func() { h.completed.Add(1) },
	})
	return h
}

// TestWakeAfterSuspension verifies a long suspension is caught up by a single
// visibility recheck and completion fires exactly once.
func TestWakeAfterSuspension(t *testing.T) {
	h := newHarness(t)
	h.timer.Start(30)

	h.clock.Advance(45 * time.Second)
	h.timer.Wake(WakeVisible)

	st := h.timer.State()
	if st.Remaining != 0 || st.Running {
		t.Errorf("state = %+v, want remaining 0 and stopped", st)
	}
	if n := h.completed.Load(); n != 1 {
		t.Fatalf("completions = %d, want 1", n)
	}

	h.timer.Tick()
	h.timer.Wake(WakeFocus)
	if n := h.completed.Load(); n != 1 {
		t.Errorf("completions after extra rechecks = %d, want 1", n)
	}
	if got := h.rec.count(device.CueComplete); got != 1 {
		t.Errorf("complete cues = %d, want 1", got)
	}
	if h.rec.keepAlive != 0 {
		t.Errorf("keep-alive still running: %d", h.rec.keepAlive)
	}
}

// TestTickAndWakeRace verifies concurrent rechecks of an expired window
// complete it once.
func TestTickAndWakeRace(t *testing.T) {
	h := newHarness(t)
	h.timer.Start(10)
	h.clock.Advance(11 * time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); h.timer.Tick() }()
		go func() { defer wg.Done(); h.timer.Wake(WakePageShow) }()
	}
	wg.Wait()

	if n := h.completed.Load(); n != 1 {
		t.Errorf("completions = %d, want 1", n)
	}
	if h.rec.vibrations != 1 {
		t.Errorf("vibrations = %d, want 1", h.rec.vibrations)
	}
}

// TestRemainingRoundsUp verifies partial seconds count as a full second.
func TestRemainingRoundsUp(t *testing.T) {
	h := newHarness(t)
	h.timer.Start(30)

	h.clock.Advance(100 * time.Millisecond)
	h.timer.Tick()
	if got := h.timer.State().Remaining; got != 30 {
		t.Errorf("remaining after 0.1s = %d, want 30", got)
	}

	h.clock.Advance(29 * time.Second)
	h.timer.Tick()
	if got := h.timer.State().Remaining; got != 1 {
		t.Errorf("remaining after 29.1s = %d, want 1", got)
	}
	if n := h.completed.Load(); n != 0 {
		t.Errorf("completed early")
	}
}

// TestCountdownCues verifies the countdown cue plays for the final three
// seconds on the tick path and the completion cue plays once.
func TestCountdownCues(t *testing.T) {
	h := newHarness(t)
	h.timer.Start(5)

	for i := 0; i < 5; i++ {
		h.clock.Advance(time.Second)
		h.timer.Tick()
	}

	if got := h.rec.count(device.CueCountdown); got != 3 {
		t.Errorf("countdown cues = %d, want 3", got)
	}
	if got := h.rec.count(device.CueComplete); got != 1 {
		t.Errorf("complete cues = %d, want 1", got)
	}
	if n := h.completed.Load(); n != 1 {
		t.Errorf("completions = %d, want 1", n)
	}
}

// TestWakeDoesNotPlayCountdown verifies the visibility path never plays the
// countdown cue.
func TestWakeDoesNotPlayCountdown(t *testing.T) {
	h := newHarness(t)
	h.timer.Start(5)
	h.clock.Advance(3 * time.Second)
	h.timer.Wake(WakeVisible)

	if got := h.rec.count(device.CueCountdown); got != 0 {
		t.Errorf("countdown cues on wake = %d, want 0", got)
	}
}

// TestPauseResume verifies paused time does not count and resume re-anchors
// the end timestamp.
func TestPauseResume(t *testing.T) {
	h := newHarness(t)
	h.timer.Start(60)

	h.clock.Advance(10 * time.Second)
	h.timer.Pause()
	st := h.timer.State()
	if st.Remaining != 50 || st.Running || st.EndsAt != nil {
		t.Fatalf("paused state = %+v, want remaining 50 and stopped", st)
	}
	if h.rec.keepAlive != 0 {
		t.Errorf("keep-alive running while paused")
	}

	h.clock.Advance(100 * time.Second)
	h.timer.Tick()
	h.timer.Wake(WakeVisible)
	if got := h.timer.State().Remaining; got != 50 {
		t.Errorf("remaining while paused = %d, want 50", got)
	}

	h.timer.Resume()
	st = h.timer.State()
	if !st.Running || st.EndsAt == nil || !st.EndsAt.Equal(h.clock.Now().Add(50*time.Second)) {
		t.Fatalf("resumed state = %+v", st)
	}

	h.clock.Advance(20 * time.Second)
	h.timer.Tick()
	if got := h.timer.State().Remaining; got != 30 {
		t.Errorf("remaining after resume = %d, want 30", got)
	}
	if n := h.completed.Load(); n != 0 {
		t.Errorf("completed during pause/resume")
	}
}

// TestResumeNoop verifies Resume does nothing while running or when nothing remains.
func TestResumeNoop(t *testing.T) {
	h := newHarness(t)
	h.timer.Resume()
	if h.timer.State().Running {
		t.Error("Resume started an empty timer")
	}

	h.timer.Start(30)
	h.clock.Advance(5 * time.Second)
	h.timer.Resume()
	h.timer.Tick()
	if got := h.timer.State().Remaining; got != 25 {
		t.Errorf("remaining = %d, want 25 (Resume must not re-anchor a running timer)", got)
	}
	if got := len(h.rec.scheduled); got != 1 {
		t.Errorf("notifications scheduled = %d, want 1", got)
	}
}

// TestAddTimeRunning verifies the end timestamp moves with the adjustment.
func TestAddTimeRunning(t *testing.T) {
	h := newHarness(t)
	h.timer.Start(30)
	h.clock.Advance(10 * time.Second)
	h.timer.Tick()

	h.timer.AddTime(15)
	st := h.timer.State()
	if st.Remaining != 35 || st.Total != 45 {
		t.Fatalf("after AddTime(15) = %+v, want remaining 35 total 45", st)
	}
	if h.rec.scheduled[len(h.rec.scheduled)-1] != 35*time.Second {
		t.Errorf("notification not rescheduled: %v", h.rec.scheduled)
	}

	h.clock.Advance(34 * time.Second)
	h.timer.Tick()
	if n := h.completed.Load(); n != 0 {
		t.Fatal("completed before the extended end")
	}
	h.clock.Advance(time.Second)
	h.timer.Tick()
	if n := h.completed.Load(); n != 1 {
		t.Errorf("completions = %d, want 1", n)
	}
}

// TestAddTimeClamps verifies a negative adjustment never goes below zero and
// completes a running window that it exhausts.
func TestAddTimeClamps(t *testing.T) {
	h := newHarness(t)
	h.timer.Start(20)
	h.timer.Pause()

	h.timer.AddTime(-5)
	st := h.timer.State()
	if st.Remaining != 15 || st.Total != 15 {
		t.Errorf("paused AddTime(-5) = %+v, want 15/15", st)
	}

	h.timer.Resume()
	h.timer.AddTime(-60)
	st = h.timer.State()
	if st.Remaining != 0 || st.Total != 0 {
		t.Errorf("AddTime(-60) = %+v, want 0/0", st)
	}
	if n := h.completed.Load(); n != 1 {
		t.Errorf("completions = %d, want 1", n)
	}
}

// TestReset verifies Reset stops without firing completion and later
// rechecks do nothing.
func TestReset(t *testing.T) {
	h := newHarness(t)
	h.timer.Start(30)
	h.clock.Advance(10 * time.Second)
	h.timer.Tick()

	h.timer.Reset()
	st := h.timer.State()
	if st.Remaining != 30 || st.Running {
		t.Errorf("after Reset = %+v, want remaining 30 stopped", st)
	}

	h.clock.Advance(time.Minute)
	h.timer.Wake(WakeVisible)
	if n := h.completed.Load(); n != 0 {
		t.Errorf("completions = %d, want 0", n)
	}
}

// TestClear verifies Clear forgets the window silently.
func TestClear(t *testing.T) {
	h := newHarness(t)
	h.timer.Start(30)
	h.timer.Clear()

	st := h.timer.State()
	if st.Remaining != 0 || st.Total != 0 || st.Running {
		t.Errorf("after Clear = %+v", st)
	}
	h.timer.Skip()
	h.clock.Advance(time.Minute)
	h.timer.Wake(WakeVisible)
	if n := h.completed.Load(); n != 0 {
		t.Errorf("completions = %d, want 0", n)
	}
	if h.rec.keepAlive != 0 {
		t.Errorf("keep-alive running after Clear")
	}
}

// TestSkip verifies Skip completes once and releases the collaborators.
func TestSkip(t *testing.T) {
	h := newHarness(t)
	h.timer.Start(90)
	h.timer.Skip()
	h.timer.Skip()

	if n := h.completed.Load(); n != 1 {
		t.Errorf("completions = %d, want 1", n)
	}
	if h.rec.keepAlive != 0 {
		t.Errorf("keep-alive running after skip")
	}
	if h.rec.cancels == 0 {
		t.Errorf("notification not cancelled")
	}
}

// TestSkipPaused verifies a paused window can be skipped.
func TestSkipPaused(t *testing.T) {
	h := newHarness(t)
	h.timer.SetPaused(40, 60)
	h.timer.Skip()
	if n := h.completed.Load(); n != 1 {
		t.Errorf("completions = %d, want 1", n)
	}
}

// TestSkipAfterPauseReleasesOnce verifies skipping a paused window does not
// stop keep-alive or cancel the notification a second time.
func TestSkipAfterPauseReleasesOnce(t *testing.T) {
	h := newHarness(t)
	h.timer.Start(60)
	h.clock.Advance(10 * time.Second)
	h.timer.Pause()
	h.timer.Skip()

	if n := h.completed.Load(); n != 1 {
		t.Errorf("completions = %d, want 1", n)
	}
	if h.rec.cancels != 1 {
		t.Errorf("cancels = %d, want 1", h.rec.cancels)
	}
	if h.rec.keepAlive != 0 {
		t.Errorf("keep-alive balance = %d, want 0", h.rec.keepAlive)
	}
}

// TestStartUntil verifies a restored window keeps its absolute end and an
// expired one is not armed.
func TestStartUntil(t *testing.T) {
	h := newHarness(t)
	if !h.timer.StartUntil(start.Add(40*time.Second), 90) {
		t.Fatal("StartUntil(future) = false")
	}
	st := h.timer.State()
	if st.Remaining != 40 || st.Total != 90 {
		t.Errorf("restored = %+v, want 40/90", st)
	}

	h2 := newHarness(t)
	if h2.timer.StartUntil(start.Add(-time.Second), 90) {
		t.Error("StartUntil(past) = true")
	}
	h2.timer.Wake(WakeVisible)
	h2.timer.Skip()
	if n := h2.completed.Load(); n != 0 {
		t.Errorf("expired restore fired completion %d times", n)
	}
}

// TestProgress verifies the elapsed percentage.
func TestProgress(t *testing.T) {
	h := newHarness(t)
	if got := h.timer.Progress(); got != 0 {
		t.Errorf("idle progress = %v", got)
	}
	h.timer.Start(60)
	h.clock.Advance(15 * time.Second)
	h.timer.Tick()
	if got := h.timer.Progress(); got != 25 {
		t.Errorf("progress = %v, want 25", got)
	}
}

type panicPlayer struct{}

func (panicPlayer) PlayCue(device.Cue, float64) error { panic("audio backend gone") }

// TestFailingDevicesDoNotBlockCompletion verifies a panicking player does not
// prevent the state transition.
func TestFailingDevicesDoNotBlockCompletion(t *testing.T) {
	var done atomic.Int32
	clock := tstest.NewClock(tstest.ClockOpts{Start: start})
	timer := New(Options{
		Clock:      clock,
		Devices:    device.Set{Player: panicPlayer{}},
		OnComplete: func() { done.Add(1) },
	})
	timer.Start(3)
	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		timer.Tick()
	}
	if done.Load() != 1 {
		t.Errorf("completions = %d, want 1", done.Load())
	}
}

// TestLoopCompletesAndExits verifies the wake-up loop completes a short window
// on its own and leaves no goroutine behind.
func TestLoopCompletesAndExits(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	done := make(chan struct{})
	timer := New(Options{
		Clock:        tstime.StdClock{},
		TickInterval: 20 * time.Millisecond,
		OnComplete:   func() { close(done) },
	})
	timer.Start(1)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		timer.Close()
		t.Fatal("loop did not complete the window")
	}
}

// TestCloseStopsLoop verifies Close stops a running loop.
func TestCloseStopsLoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	timer := New(Options{Clock: tstime.StdClock{}, TickInterval: 10 * time.Millisecond})
	timer.Start(60)
	timer.Close()
}
