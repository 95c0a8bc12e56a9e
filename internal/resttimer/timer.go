// Package resttimer implements the rest countdown between sets.
//
// The absolute end timestamp is the only source of truth. The periodic wake-up
// (Tick) and the visibility/focus path (Wake) both recompute the remaining time
// from it, so the countdown stays correct however long the host suspended the
// process. Completion side effects run exactly once per rest window.
package resttimer

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/claude/setlog/internal/device"
	"tailscale.com/tstime"
)

// WakeReason names the host signal that triggered a recheck.
type WakeReason string

const (
	WakeVisible  WakeReason = "visible"
	WakeFocus    WakeReason = "focus"
	WakePageShow WakeReason = "pageshow"
)

// DefaultNotification is shown when a rest window ends in the background.
var DefaultNotification = device.Notification{
	Title: "Rest complete",
	Body:  "Time for your next set",
}

var completePattern = []time.Duration{200 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond}

// Options configures a Timer.
type Options struct {
	Clock   tstime.Clock
	Devices device.Set
	Log     *slog.Logger

	// TickInterval is the wake-up loop period. Zero disables the loop and the
	// host calls Tick itself.
	TickInterval time.Duration
	// CountdownFrom is the number of final seconds that get a countdown cue.
	CountdownFrom int
	Volume        float64
	Notification  device.Notification

	// OnTick receives every recomputed state. OnComplete runs once per window.
	// Both are called without the timer's lock held.
	OnTick     func(State)
	OnComplete func()
}

// State is a point-in-time view of the timer.
type State struct {
	Remaining int        `json:"remaining"`
	Total     int        `json:"total"`
	Running   bool       `json:"running"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
	Progress  float64    `json:"progress"`
}

// Timer is a drift-free rest countdown.
type Timer struct {
	clock    tstime.Clock
	dev      device.Set
	log      *slog.Logger
	interval time.Duration
	cueFrom  int
	volume   float64
	notif    device.Notification
	onTick   func(State)
	onDone   func()

	mu        sync.Mutex
	endAt     time.Time
	running   bool
	remaining int
	total     int
	gen       uint64
	stopLoop  chan struct{}
	completed atomic.Bool
}

// New creates an idle Timer.
func New(opts Options) *Timer {
	if opts.Clock == nil {
		opts.Clock = tstime.StdClock{}
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.CountdownFrom == 0 {
		opts.CountdownFrom = 3
	}
	if opts.Notification == (device.Notification{}) {
		opts.Notification = DefaultNotification
	}
	return &Timer{
		clock:    opts.Clock,
		dev:      opts.Devices.WithDefaults(),
		log:      opts.Log,
		interval: opts.TickInterval,
		cueFrom:  opts.CountdownFrom,
		volume:   opts.Volume,
		notif:    opts.Notification,
		onTick:   opts.OnTick,
		onDone:   opts.OnComplete,
	}
}

// Start begins a new rest window of the given length, replacing any current one.
func (t *Timer) Start(seconds int) {
	if seconds <= 0 {
		return
	}
	t.mu.Lock()
	end := t.clock.Now().Add(time.Duration(seconds) * time.Second)
	t.armLocked(end, seconds, seconds)
	st := t.stateLocked()
	t.mu.Unlock()

	t.engage(st.Remaining)
	t.emit(st)
}

// StartUntil re-arms a window that ends at end, typically one restored from
// persistence. It reports false without arming when end has already passed.
func (t *Timer) StartUntil(end time.Time, total int) bool {
	t.mu.Lock()
	remaining := remainingUntil(end, t.clock.Now())
	if remaining <= 0 {
		t.stopLoopLocked()
		t.gen++
		t.completed.Store(true)
		t.endAt = time.Time{}
		t.running = false
		t.remaining = 0
		t.total = total
		t.mu.Unlock()
		return false
	}
	if total < remaining {
		total = remaining
	}
	t.armLocked(end, remaining, total)
	st := t.stateLocked()
	t.mu.Unlock()

	t.engage(st.Remaining)
	t.emit(st)
	return true
}

// SetPaused loads a paused window without starting it.
func (t *Timer) SetPaused(remaining, total int) {
	t.mu.Lock()
	t.stopLoopLocked()
	t.gen++
	t.completed.Store(false)
	t.endAt = time.Time{}
	t.running = false
	t.remaining = max(0, remaining)
	t.total = max(t.remaining, total)
	t.mu.Unlock()
}

// Pause freezes the countdown at its current remaining time.
func (t *Timer) Pause() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	remaining := remainingUntil(t.endAt, t.clock.Now())
	if remaining <= 0 {
		gen := t.gen
		t.mu.Unlock()
		t.tryComplete(gen)
		return
	}
	t.stopLoopLocked()
	t.gen++
	t.endAt = time.Time{}
	t.running = false
	t.remaining = remaining
	st := t.stateLocked()
	t.mu.Unlock()

	t.release()
	t.emit(st)
}

// Resume restarts a paused countdown. It is a no-op while running or when
// nothing remains.
func (t *Timer) Resume() {
	t.mu.Lock()
	if t.running || t.remaining <= 0 {
		t.mu.Unlock()
		return
	}
	end := t.clock.Now().Add(time.Duration(t.remaining) * time.Second)
	t.armLocked(end, t.remaining, t.total)
	st := t.stateLocked()
	t.mu.Unlock()

	t.engage(st.Remaining)
	t.emit(st)
}

// Skip completes the current window immediately.
func (t *Timer) Skip() {
	t.mu.Lock()
	if !t.running && t.remaining <= 0 {
		t.mu.Unlock()
		return
	}
	gen := t.gen
	t.mu.Unlock()
	t.tryComplete(gen)
}

// AddTime extends (or, with a negative value, shortens) the window. Remaining
// and total move together so progress stays consistent.
func (t *Timer) AddTime(seconds int) {
	if seconds == 0 {
		return
	}
	t.mu.Lock()
	if t.running {
		t.endAt = t.endAt.Add(time.Duration(seconds) * time.Second)
	}
	t.remaining = max(0, t.remaining+seconds)
	t.total = max(0, t.total+seconds)
	running := t.running
	gen := t.gen
	st := t.stateLocked()
	t.mu.Unlock()

	if running && st.Remaining <= 0 {
		t.tryComplete(gen)
		return
	}
	if running {
		device.Call(t.log, "notification.reschedule", func() error {
			if err := t.dev.Notifier.Cancel(); err != nil {
				return err
			}
			return t.dev.Notifier.Schedule(time.Duration(st.Remaining)*time.Second, t.notif)
		})
	}
	t.emit(st)
}

// Reset stops the countdown and restores remaining to total without firing
// completion.
func (t *Timer) Reset() {
	t.mu.Lock()
	wasRunning := t.running
	t.stopLoopLocked()
	t.gen++
	t.completed.Store(false)
	t.endAt = time.Time{}
	t.running = false
	t.remaining = t.total
	st := t.stateLocked()
	t.mu.Unlock()

	if wasRunning {
		t.release()
	}
	t.emit(st)
}

// Clear stops the countdown and forgets the window. Neither completion nor
// OnTick fires.
func (t *Timer) Clear() {
	t.mu.Lock()
	wasRunning := t.running
	t.stopLoopLocked()
	t.gen++
	t.completed.Store(false)
	t.endAt = time.Time{}
	t.running = false
	t.remaining = 0
	t.total = 0
	t.mu.Unlock()

	if wasRunning {
		t.release()
	}
}

// Tick is the periodic wake-up. It recomputes the remaining time and plays
// the countdown cue during the final seconds.
func (t *Timer) Tick() {
	t.refresh(0, true)
}

// Wake rechecks the countdown after the host regained visibility or focus.
func (t *Timer) Wake(reason WakeReason) {
	t.log.Debug("rest timer wake", "reason", reason)
	t.refresh(0, false)
}

// Close stops the wake-up loop. State is kept.
func (t *Timer) Close() {
	t.mu.Lock()
	t.stopLoopLocked()
	t.mu.Unlock()
}

// State returns the current view without recomputing from the clock.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

// Progress returns the elapsed share of the window in percent.
func (t *Timer) Progress() float64 {
	return t.State().Progress
}

// refresh recomputes remaining from the end timestamp. A non-zero gen limits
// the refresh to that window so a stale loop cannot touch a newer one.
func (t *Timer) refresh(gen uint64, tick bool) {
	t.mu.Lock()
	if !t.running || (gen != 0 && gen != t.gen) {
		t.mu.Unlock()
		return
	}
	gen = t.gen
	t.remaining = remainingUntil(t.endAt, t.clock.Now())
	st := t.stateLocked()
	cue := tick && st.Remaining > 0 && st.Remaining <= t.cueFrom
	t.mu.Unlock()

	if cue {
		device.Call(t.log, "player.countdown", func() error {
			return t.dev.Player.PlayCue(device.CueCountdown, t.volume)
		})
	}
	if st.Remaining <= 0 {
		t.tryComplete(gen)
		return
	}
	t.emit(st)
}

// tryComplete runs the completion side effects for window gen. The
// compare-and-set on completed makes it safe to call from both the wake-up
// loop and the visibility path.
func (t *Timer) tryComplete(gen uint64) bool {
	t.mu.Lock()
	if gen != t.gen || !t.completed.CompareAndSwap(false, true) {
		t.mu.Unlock()
		return false
	}
	t.stopLoopLocked()
	wasRunning := t.running
	t.endAt = time.Time{}
	t.running = false
	t.remaining = 0
	st := t.stateLocked()
	t.mu.Unlock()

	// Pause already released the collaborators of a paused window.
	if wasRunning {
		t.release()
	}
	device.Call(t.log, "player.complete", func() error {
		return t.dev.Player.PlayCue(device.CueComplete, t.volume)
	})
	device.Call(t.log, "haptics.vibrate", func() error {
		return t.dev.Haptics.Vibrate(completePattern)
	})
	t.emit(st)
	if t.onDone != nil {
		t.onDone()
	}
	return true
}

func (t *Timer) armLocked(end time.Time, remaining, total int) {
	t.stopLoopLocked()
	t.gen++
	t.completed.Store(false)
	t.endAt = end
	t.running = true
	t.remaining = remaining
	t.total = total
	t.startLoopLocked(t.gen)
}

func (t *Timer) startLoopLocked(gen uint64) {
	if t.interval <= 0 {
		return
	}
	stop := make(chan struct{})
	t.stopLoop = stop
	ticker, ch := t.clock.NewTicker(t.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ch:
				t.refresh(gen, true)
			}
		}
	}()
}

func (t *Timer) stopLoopLocked() {
	if t.stopLoop != nil {
		close(t.stopLoop)
		t.stopLoop = nil
	}
}

func (t *Timer) stateLocked() State {
	st := State{
		Remaining: t.remaining,
		Total:     t.total,
		Running:   t.running,
	}
	if t.running {
		end := t.endAt
		st.EndsAt = &end
	}
	if t.total > 0 {
		st.Progress = float64(t.total-t.remaining) / float64(t.total) * 100
	}
	return st
}

// engage schedules the background notification and the keep-alive.
func (t *Timer) engage(remaining int) {
	device.Call(t.log, "notification.schedule", func() error {
		return t.dev.Notifier.Schedule(time.Duration(remaining)*time.Second, t.notif)
	})
	device.Call(t.log, "keepalive.start", t.dev.KeepAlive.Start)
}

// release undoes engage.
func (t *Timer) release() {
	device.Call(t.log, "notification.cancel", t.dev.Notifier.Cancel)
	device.Call(t.log, "keepalive.stop", t.dev.KeepAlive.Stop)
}

func (t *Timer) emit(st State) {
	if t.onTick != nil {
		t.onTick(st)
	}
}

// remainingUntil returns the whole seconds left until end, rounded up.
func remainingUntil(end, now time.Time) int {
	d := end.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
