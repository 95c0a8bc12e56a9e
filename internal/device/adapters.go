package device

import (
	"log/slog"
	"time"
)

// Logging returns a Set that records every request in the log. Used when the
// engine runs headless and the real cues are rendered by a remote client.
func Logging(log *slog.Logger) Set {
	l := logSink{log: log}
	return Set{Player: l, Haptics: l, Notifier: l, KeepAlive: l}
}

// Nop returns a Set whose collaborators do nothing.
func Nop() Set {
	var n nop
	return Set{Player: n, Haptics: n, Notifier: n, KeepAlive: n}
}

// WithDefaults fills unset collaborators with no-ops.
func (s Set) WithDefaults() Set {
	var n nop
	if s.Player == nil {
		s.Player = n
	}
	if s.Haptics == nil {
		s.Haptics = n
	}
	if s.Notifier == nil {
		s.Notifier = n
	}
	if s.KeepAlive == nil {
		s.KeepAlive = n
	}
	return s
}

type logSink struct {
	log *slog.Logger
}

func (l logSink) PlayCue(kind Cue, volume float64) error {
	l.log.Debug("cue", "kind", kind, "volume", volume)
	return nil
}

func (l logSink) Vibrate(pattern []time.Duration) error {
	l.log.Debug("vibrate", "pattern", pattern)
	return nil
}

func (l logSink) Schedule(delay time.Duration, n Notification) error {
	l.log.Debug("notification scheduled", "delay", delay.String(), "title", n.Title)
	return nil
}

func (l logSink) Cancel() error {
	l.log.Debug("notification cancelled")
	return nil
}

func (l logSink) Start() error {
	l.log.Debug("keep-alive started")
	return nil
}

func (l logSink) Stop() error {
	l.log.Debug("keep-alive stopped")
	return nil
}

type nop struct{}

func (nop) PlayCue(Cue, float64) error { return nil }
func (nop) Vibrate([]time.Duration) error { return nil }
func (nop) Schedule(time.Duration, Notification) error { return nil }
func (nop) Cancel() error { return nil }
func (nop) Start() error { return nil }
func (nop) Stop() error { return nil }
