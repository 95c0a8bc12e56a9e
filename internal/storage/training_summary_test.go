package storage

import "testing"

func TestTruncInterval(t *testing.T) {
	tests := map[string]string{
		"1 day":   "day",
		"1 week":  "week",
		"1 month": "month",
		"":        "month",
		"bogus":   "month",
	}
	for in, want := range tests {
		if got := truncInterval(in); got != want {
			t.Errorf("truncInterval(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUserContext(t *testing.T) {
	ctx := ContextWithUser(t.Context(), 42)
	if id, ok := UserFromContext(ctx); !ok || id != 42 {
		t.Errorf("UserFromContext = %d, %v", id, ok)
	}
	if _, ok := UserFromContext(t.Context()); ok {
		t.Error("empty context reported a user")
	}
}

func TestRecordLookupWithoutUser(t *testing.T) {
	var db DB
	if _, err := db.Records().BestRecord(t.Context(), "bench"); err == nil {
		t.Error("expected error without a user in context")
	}
}
