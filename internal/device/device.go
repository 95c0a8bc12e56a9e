// Package device holds the ports to the host's playback, haptics, notification
// and keep-alive facilities. All of them are best effort: callers go through
// Call so a failing or panicking collaborator never aborts a state transition.
package device

import (
	"fmt"
	"log/slog"
	"time"
)

// Cue identifies a sound the rest timer asks the host to play.
type Cue string

const (
	CueCountdown Cue = "countdown"
	CueComplete  Cue = "complete"
)

// Notification is the content of a scheduled local notification.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Player plays short audio cues.
type Player interface {
	PlayCue(kind Cue, volume float64) error
}

// Haptics vibrates the device. Pattern alternates vibrate/pause durations.
type Haptics interface {
	Vibrate(pattern []time.Duration) error
}

// Notifier schedules a single pending local notification.
type Notifier interface {
	Schedule(delay time.Duration, n Notification) error
	Cancel() error
}

// KeepAlive keeps the host from starving the wake-up loop while a rest runs.
type KeepAlive interface {
	Start() error
	Stop() error
}

// Set bundles the collaborators used by the rest timer.
type Set struct {
	Player    Player
	Haptics   Haptics
	Notifier  Notifier
	KeepAlive KeepAlive
}

// Call runs fn, logging a returned error or a recovered panic at warn level.
func Call(log *slog.Logger, op string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("device call panicked", "op", op, "panic", fmt.Sprint(r))
		}
	}()
	if err := fn(); err != nil {
		log.Warn("device call failed", "op", op, "error", err)
	}
}
