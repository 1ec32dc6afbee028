package domain

import (
	"time"

	"github.com/google/uuid"
)

// MealWindow is the expected-normal logging window for one meal type, as
// "HH:MM" strings in the user's local time.
type MealWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// RoutineBaseline is the rolling statistical summary of a user's normal day.
// Rebuilt wholesale from history on a periodic trigger; read-only between
// rebuilds. One row per user.
type RoutineBaseline struct {
	ID                uuid.UUID               `json:"id"`
	UserID            uuid.UUID               `json:"user_id"`
	MealWindows       map[MealType]MealWindow `json:"meal_windows"`
	AdherenceRate     float32                 `json:"adherence_rate"`
	ActivityFrequency map[string]int          `json:"activity_frequency"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// Window returns the baseline window for a meal type, if one was learned.
// A missing window means not enough history: callers must treat that as
// neutral, never as a deviation.
func (b *RoutineBaseline) Window(t MealType) (MealWindow, bool) {
	if b == nil || b.MealWindows == nil {
		return MealWindow{}, false
	}
	w, ok := b.MealWindows[t]
	return w, ok
}

// MinutesSinceMidnight converts "HH:MM" to minutes past midnight. Malformed
// input returns -1.
func MinutesSinceMidnight(hhmm string) int {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return -1
	}
	return t.Hour()*60 + t.Minute()
}

// ClockString converts minutes past midnight back to "HH:MM", clamping into
// the 24h range.
func ClockString(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes > 23*60+59 {
		minutes = 23*60 + 59
	}
	return time.Date(0, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC).Format("15:04")
}
