package session

import (
	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/resttimer"
)

// View is the read model rendered by clients.
type View struct {
	Status          models.Status           `json:"status"`
	WorkoutID       string                  `json:"workout_id,omitempty"`
	WorkoutName     string                  `json:"workout_name,omitempty"`
	CurrentExercise *models.WorkoutExercise `json:"current_exercise,omitempty"`
	CurrentSet      *models.ExerciseSet     `json:"current_set,omitempty"`
	ExerciseIndex   int                     `json:"exercise_index"`
	SetIndex        int                     `json:"set_index"`
	TotalSets       int                     `json:"total_sets"`
	CompletedCount  int                     `json:"completed_count"`
	Progress        float64                 `json:"progress"`
	IsLastSet       bool                    `json:"is_last_set"`
	IsLastExercise  bool                    `json:"is_last_exercise"`
	ElapsedSeconds  int                     `json:"elapsed_seconds"`
	Rest            *resttimer.State        `json:"rest,omitempty"`
	CompletedSets   []models.CompletedSet   `json:"completed_sets"`
	PersonalRecords []models.PersonalRecord `json:"personal_records"`
}

// View returns the derived read model of the current state.
func (s *Session) View() View {
	st := s.State()
	v := View{
		Status:          st.Status,
		ExerciseIndex:   st.ExerciseIndex,
		SetIndex:        st.SetIndex,
		TotalSets:       st.Workout.TotalSets(),
		CompletedCount:  len(st.CompletedSets),
		ElapsedSeconds:  st.ElapsedSeconds,
		CompletedSets:   st.CompletedSets,
		PersonalRecords: st.PersonalRecords,
	}
	if v.CompletedSets == nil {
		v.CompletedSets = []models.CompletedSet{}
	}
	if v.PersonalRecords == nil {
		v.PersonalRecords = []models.PersonalRecord{}
	}
	if v.TotalSets > 0 {
		v.Progress = float64(v.CompletedCount) / float64(v.TotalSets) * 100
	}
	if st.Workout != nil {
		v.WorkoutID = st.Workout.ID
		v.WorkoutName = st.Workout.Name
	}

	if ex := st.CurrentExercise(); ex != nil {
		v.CurrentExercise = ex
		v.CurrentSet = st.CurrentSet()
		v.IsLastSet = st.SetIndex == len(ex.Sets)-1
		v.IsLastExercise = nextExercise(st.Workout, st.ExerciseIndex+1) < 0
	}

	if st.Status == models.StatusResting {
		ts := s.timer.State()
		v.Rest = &ts
	}
	return v
}
