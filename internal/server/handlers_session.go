package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/claude/setlog/internal/metrics"
	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/resttimer"
)

type completeSetRequest struct {
	Reps     int     `json:"reps"`
	WeightKg float64 `json:"weight_kg"`
}

type restRequest struct {
	Seconds int `json:"seconds"`
}

type wakeRequest struct {
	Reason resttimer.WakeReason `json:"reason"`
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) writeView(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, s.session.View())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.writeView(w)
}

func (s *Server) handleStartWorkout(w http.ResponseWriter, r *http.Request) {
	var workout models.Workout
	if err := json.NewDecoder(r.Body).Decode(&workout); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if workout.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "workout name required"})
		return
	}
	s.session.StartWorkout(workout)
	s.writeView(w)
}

func (s *Server) handleCompleteSet(w http.ResponseWriter, r *http.Request) {
	var req completeSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Reps < 0 || req.WeightKg < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reps and weight_kg must not be negative"})
		return
	}
	s.session.CompleteSet(r.Context(), req.Reps, req.WeightKg)
	s.writeView(w)
}

func (s *Server) handleSkipSet(w http.ResponseWriter, r *http.Request) {
	s.session.SkipSet()
	s.writeView(w)
}

func (s *Server) handleSkipExercise(w http.ResponseWriter, r *http.Request) {
	s.session.SkipExercise()
	s.writeView(w)
}

func (s *Server) handleStartRest(w http.ResponseWriter, r *http.Request) {
	var req restRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.session.StartRest(req.Seconds)
	s.writeView(w)
}

func (s *Server) handleSkipRest(w http.ResponseWriter, r *http.Request) {
	s.session.SkipRest()
	s.writeView(w)
}

func (s *Server) handleAddRestTime(w http.ResponseWriter, r *http.Request) {
	var req restRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.session.AddRestTime(req.Seconds)
	s.writeView(w)
}

func (s *Server) handlePauseRest(w http.ResponseWriter, r *http.Request) {
	s.session.PauseRest()
	s.writeView(w)
}

func (s *Server) handleResumeRest(w http.ResponseWriter, r *http.Request) {
	s.session.ResumeRest()
	s.writeView(w)
}

func (s *Server) handleWake(w http.ResponseWriter, r *http.Request) {
	req := wakeRequest{Reason: resttimer.WakeVisible}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	switch req.Reason {
	case resttimer.WakeVisible, resttimer.WakeFocus, resttimer.WakePageShow:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown wake reason: " + string(req.Reason)})
		return
	}
	s.session.Wake(req.Reason)
	s.writeView(w)
}

// handleFinishWorkout closes the live session and stores its summary.
func (s *Server) handleFinishWorkout(w http.ResponseWriter, r *http.Request) {
	sum := s.session.FinishWorkout()
	if sum == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no workout in progress"})
		return
	}
	s.observe(func(m *metrics.Manager) { m.CounterWorkoutsFinished.Inc() })

	uid := userIDFromContext(r)
	id, err := s.db.SaveWorkout(r.Context(), uid, sum)
	if err != nil {
		s.log.Error("saving finished workout", "workout", sum.WorkoutName, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "saving workout failed: " + err.Error(),
			"summary": sum,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"summary": sum,
	})
}
