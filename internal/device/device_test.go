package device

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func bufLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// TestCallSwallowsError verifies a failing collaborator is logged, not propagated.
func TestCallSwallowsError(t *testing.T) {
	var buf bytes.Buffer
	Call(bufLogger(&buf), "play", func() error { return errors.New("audio blocked") })

	if !strings.Contains(buf.String(), "audio blocked") {
		t.Errorf("log = %q, want error logged", buf.String())
	}
}

// TestCallRecoversPanic verifies a panicking collaborator cannot unwind the caller.
func TestCallRecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	Call(bufLogger(&buf), "vibrate", func() error { panic("no vibrator") })

	if !strings.Contains(buf.String(), "no vibrator") {
		t.Errorf("log = %q, want panic logged", buf.String())
	}
}

// TestWithDefaults verifies nil collaborators are replaced by no-ops.
func TestWithDefaults(t *testing.T) {
	s := Set{}.WithDefaults()
	if s.Player == nil || s.Haptics == nil || s.Notifier == nil || s.KeepAlive == nil {
		t.Fatalf("WithDefaults left a nil collaborator: %+v", s)
	}
	if err := s.Player.PlayCue(CueComplete, 1); err != nil {
		t.Errorf("nop PlayCue = %v", err)
	}
}

// TestLoggingSet verifies the logging adapter records cue requests.
func TestLoggingSet(t *testing.T) {
	var buf bytes.Buffer
	s := Logging(bufLogger(&buf))
	_ = s.Player.PlayCue(CueCountdown, 0.5)
	_ = s.KeepAlive.Start()

	out := buf.String()
	if !strings.Contains(out, "kind=countdown") {
		t.Errorf("log = %q, want countdown cue", out)
	}
	if !strings.Contains(out, "keep-alive started") {
		t.Errorf("log = %q, want keep-alive start", out)
	}
}
