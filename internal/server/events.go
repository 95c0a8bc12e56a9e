package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/claude/setlog/internal/metrics"
)

// Events fans session change notifications out to streaming clients.
// Notify never blocks, so it is safe to call from the session's change hook.
type Events struct {
	mu        sync.Mutex
	subs      map[chan struct{}]struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewEvents creates an empty Events.
func NewEvents() *Events {
	return &Events{
		subs: make(map[chan struct{}]struct{}),
		done: make(chan struct{}),
	}
}

// Close ends every open stream and makes new ones return immediately.
// Register it with http.Server.RegisterOnShutdown.
func (e *Events) Close() {
	e.closeOnce.Do(func() { close(e.done) })
}

// Notify wakes every subscriber. Subscribers that have not caught up yet
// keep their pending wake-up.
func (e *Events) Notify() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (e *Events) subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()
	return ch
}

func (e *Events) unsubscribe(ch chan struct{}) {
	e.mu.Lock()
	delete(e.subs, ch)
	e.mu.Unlock()
}

// handleSessionEvents streams the session view as server-sent events, once on
// connect and again after every change.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.events.subscribe()
	defer s.events.unsubscribe(ch)
	s.observe(func(m *metrics.Manager) { m.GaugeEventSubscribers.Inc() })
	defer s.observe(func(m *metrics.Manager) { m.GaugeEventSubscribers.Dec() })

	send := func() {
		fmt.Fprintf(w, "event: session\ndata: %s\n\n", mustJSON(s.session.View()))
		flusher.Flush()
	}
	send()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.events.done:
			return
		case <-ch:
			send()
		}
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}
