package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the account owning every record in the system. One user, one
// conversation, one baseline.
type User struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	APIKeyHash        string    `json:"-"`
	PreferredLanguage string    `json:"preferred_language"`
	Timezone          string    `json:"timezone"`
	City              string    `json:"city,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Location returns the user's IANA timezone, defaulting to UTC when unset or
// unparseable.
func (u *User) Location() *time.Location {
	if u.Timezone != "" {
		if loc, err := time.LoadLocation(u.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

type Medication struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Dosage    string    `json:"dosage,omitempty"`
	WithFood  bool      `json:"with_food"`
	CreatedAt time.Time `json:"created_at"`
}

// ScheduleEntry is one expected dose on one day.
type ScheduleEntry struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	MedicationID   uuid.UUID  `json:"medication_id"`
	MedicationName string     `json:"medication_name"`
	WithFood       bool       `json:"with_food"`
	Date           time.Time  `json:"date"`
	TimeOfDay      string     `json:"time_of_day"` // "HH:MM", user-local
	Taken          bool       `json:"taken"`
	TakenAt        *time.Time `json:"taken_at,omitempty"`
}

// DueBy reports whether the entry's scheduled time has already passed at the
// given local time on the same day.
func (e *ScheduleEntry) DueBy(now time.Time) bool {
	return e.TimeOfDay <= now.Format("15:04")
}

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

func ValidMealType(t string) bool {
	switch MealType(t) {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return true
	}
	return false
}

type MealLog struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	MealType    MealType  `json:"meal_type"`
	Description string    `json:"description,omitempty"`
	LoggedAt    time.Time `json:"logged_at"`
}

// SymptomLog records one reported symptom. Severity runs 1 (mild) to 5
// (severe); an unstated severity defaults to 3.
type SymptomLog struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	Severity int       `json:"severity"`
	LoggedAt time.Time `json:"logged_at"`
}

type ActivityLog struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Name      string     `json:"name"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

type Sender string

const (
	SenderUser   Sender = "user"
	SenderSystem Sender = "system"
)

// ConversationTurn is one transcript entry. Immutable once written.
type ConversationTurn struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	Sender    Sender            `json:"sender"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Alias is a learned per-user shorthand ("it" → "Metformin"). Created only by
// the resolver, read by the parser on every turn.
type Alias struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Alias      string    `json:"alias"`
	Target     string    `json:"target"`
	Kind       AliasKind `json:"kind"`
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// VectorMemoryKind tags stored context passages for retrieval.
type VectorMemoryKind string

const (
	MemoryKindHealthEvent VectorMemoryKind = "health_event"
	MemoryKindPreference  VectorMemoryKind = "preference"
	MemoryKindGeneral     VectorMemoryKind = "general"
)

// VectorMemory is an embedded context passage used to ground question
// answering.
type VectorMemory struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Kind      VectorMemoryKind `json:"kind"`
	Content   string           `json:"content"`
	Embedding []float32        `json:"-"`
	CreatedAt time.Time        `json:"created_at"`
}

// RiskAlert is the persisted form of a risk assessment whose ShouldAlert was
// true.
type RiskAlert struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Level          RiskLevel `json:"level"`
	Title          string    `json:"title"`
	Unusual        string    `json:"unusual"`
	WhyItMatters   string    `json:"why_it_matters"`
	Action         string    `json:"action"`
	Triggers       []string  `json:"triggers"`
	AlertCaregiver bool      `json:"alert_caregiver"`
	Dismissed      bool      `json:"dismissed"`
	CreatedAt      time.Time `json:"created_at"`
}
