package alpha

import (
	"strings"
	"testing"
	"time"

	"github.com/claude/setlog/internal/models"
)

const sampleCSV = `
"Legs · Day 2 · Week 4 · Push-Pull-Legs";"2026-02-19 4:54 h";"1:02 hr"
"1. Hack Squats · Machine · 8 reps";"WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps"
#;KG;REPS;RIR
1;115;8;1
2;115;10;1
3;115;10;1
"2. Sumo Squats · Smith machine · 10 reps";"WU1 · 35 kg · 8 reps"
#;KG;REPS;RIR
1;70;8;1
2;70;12;1
"3. Hyperextensions on Roman Chair · Bodyweight · 10 reps";"WU1 · +0 kg · 8 reps"
#;KG;REPS;RIR
1;+35;10;0
2;+35;9;1
3;+35;10;0
"4. Reverse Lunges · Dumbbells · 10 reps"
#;KG;REPS;RIR
1;10;10;1
2;10;10;1
3;10;10;0
"5. Standing Calf Raises · Machine · 12 reps";"WU1 · 47,5 kg · 8 reps"
#;KG;REPS;RIR
1;157,5;11;1
2;157,5;11;0
3;157,5;10;0
"6. Hanging Leg Raises · Bodyweight · 12 reps · 2 dropsets"
#;KG;REPS;RIR
1;+0;12;1
2;+0;12;1
3;+0;12;0

"Push · Day 1 · Week 4 · Push-Pull-Legs";"2026-02-17 5:04 h";"1:12 hr"
"1. Bench Press · Barbell · 6 reps";"WU1 · 22,5 kg · 10 reps<br>WU2 · 47,5 kg · 8 reps<br>WU3 · 77,5 kg · 6 reps"
#;KG;REPS;RIR
1;102,5;6;0
2;102,5;6;0
3;100;6;0
`

func TestParseSessions(t *testing.T) {
	sessions, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}

	legs, push := sessions[0], sessions[1]
	if legs.Name != "Legs · Day 2 · Week 4 · Push-Pull-Legs" || legs.Duration != "1:02 hr" {
		t.Errorf("legs header = %q / %q", legs.Name, legs.Duration)
	}
	if want := time.Date(2026, 2, 19, 4, 54, 0, 0, time.UTC); !legs.Date.Equal(want) {
		t.Errorf("legs date = %v, want %v", legs.Date, want)
	}
	if push.Name != "Push · Day 1 · Week 4 · Push-Pull-Legs" || len(push.Exercises) != 1 {
		t.Errorf("push = %q with %d exercises", push.Name, len(push.Exercises))
	}

	tests := []struct {
		name       string
		equipment  string
		targetReps int
		warmups    int
		working    int
	}{
		{"Hack Squats", "Machine", 8, 2, 3},
		{"Sumo Squats", "Smith machine", 10, 1, 2},
		{"Hyperextensions on Roman Chair", "Bodyweight", 10, 1, 3},
		{"Reverse Lunges", "Dumbbells", 10, 0, 3},
		{"Standing Calf Raises", "Machine", 12, 1, 3},
		{"Hanging Leg Raises", "Bodyweight", 12, 0, 3}, // "· 2 dropsets" modifier
	}
	if len(legs.Exercises) != len(tests) {
		t.Fatalf("legs exercises = %d, want %d", len(legs.Exercises), len(tests))
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := legs.Exercises[i]
			if ex.Number != i+1 || ex.Name != tt.name || ex.Equipment != tt.equipment {
				t.Errorf("exercise = %d %q %q", ex.Number, ex.Name, ex.Equipment)
			}
			if ex.TargetReps != tt.targetReps {
				t.Errorf("target reps = %d, want %d", ex.TargetReps, tt.targetReps)
			}
			var warmups, working int
			for _, set := range ex.Sets {
				if set.IsWarmup {
					warmups++
				} else {
					working++
				}
			}
			if warmups != tt.warmups || working != tt.working {
				t.Errorf("warmups/working = %d/%d, want %d/%d", warmups, working, tt.warmups, tt.working)
			}
		})
	}

	calf := legs.Exercises[4].Sets
	if last := calf[len(calf)-1]; last.WeightKg != 157.5 || last.Reps != 10 || last.RIR != 0 {
		t.Errorf("last calf set = %+v", last)
	}
}

func TestParseWeight(t *testing.T) {
	tests := []struct {
		in     string
		weight float64
		isBW   bool
	}{
		{"102,5", 102.5, false},
		{"100", 100, false},
		{"+35", 35, true},
		{"+0", 0, true},
		{" 7,25 ", 7.25, false},
	}
	for _, tt := range tests {
		weight, isBW := parseWeight(tt.in)
		if weight != tt.weight || isBW != tt.isBW {
			t.Errorf("parseWeight(%q) = %v, %v; want %v, %v", tt.in, weight, isBW, tt.weight, tt.isBW)
		}
	}
}

// Alpha Progression writes half RIR values such as "0,5".
func TestFractionalRIR(t *testing.T) {
	if got := parseEuropeanFloat("0,5"); got != 0.5 {
		t.Errorf("parseEuropeanFloat(0,5) = %f, want 0.5", got)
	}
}

func TestParseWarmups(t *testing.T) {
	tests := []struct {
		in   string
		want []models.AlphaSet
	}{
		{
			in: "WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps",
			want: []models.AlphaSet{
				{Number: 1, WeightKg: 37.5, Reps: 9, IsWarmup: true},
				{Number: 2, WeightKg: 72.5, Reps: 7, IsWarmup: true},
			},
		},
		{
			in:   "WU1 · +0 kg · 8 reps",
			want: []models.AlphaSet{{Number: 1, IsBodyweightPlus: true, Reps: 8, IsWarmup: true}},
		},
		{in: "no warmups here", want: nil},
	}
	for _, tt := range tests {
		got := parseWarmups(tt.in)
		if len(got) != len(tt.want) {
			t.Fatalf("parseWarmups(%q) = %d sets, want %d", tt.in, len(got), len(tt.want))
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseWarmups(%q)[%d] = %+v, want %+v", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestEmptyInput(t *testing.T) {
	sessions, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %d, want 0", len(sessions))
	}
}

func TestOrphanRowsRejected(t *testing.T) {
	tests := map[string]string{
		"set without exercise":     "\"Push\";\"2026-02-17 5:04 h\";\"1:12 hr\"\n1;100;5;1\n",
		"exercise without session": "\"1. Bench Press · Barbell · 6 reps\"\n",
	}
	for name, csv := range tests {
		if _, err := Parse(strings.NewReader(csv)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestSessionDate(t *testing.T) {
	for _, in := range []string{"2026-02-19 4:54", "2026-02-19 16:54"} {
		if _, err := parseSessionDate(in); err != nil {
			t.Errorf("parseSessionDate(%q): %v", in, err)
		}
	}
	if _, err := parseSessionDate("19.02.2026"); err == nil {
		t.Error("expected error for unsupported date format")
	}
}
