package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type UserStore interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*User, error)
	UpdateCity(ctx context.Context, id uuid.UUID, city string) error
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

type MedicationStore interface {
	Create(ctx context.Context, m *Medication) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Medication, error)
	GetByName(ctx context.Context, userID uuid.UUID, name string) (*Medication, error)
	ScheduleForDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]ScheduleEntry, error)
	ScheduleSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]ScheduleEntry, error)
	MarkTaken(ctx context.Context, userID uuid.UUID, medicationID uuid.UUID, day time.Time, takenAt time.Time) error
}

type MealStore interface {
	Create(ctx context.Context, m *MealLog) error
	ListForDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]MealLog, error)
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]MealLog, error)
}

type SymptomStore interface {
	Create(ctx context.Context, s *SymptomLog) error
	ListForDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]SymptomLog, error)
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]SymptomLog, error)
}

type ActivityStore interface {
	Create(ctx context.Context, a *ActivityLog) error
	End(ctx context.Context, userID uuid.UUID, name string, endedAt time.Time) error
	ListForDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]ActivityLog, error)
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]ActivityLog, error)
}

type BaselineStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*RoutineBaseline, error)
	Upsert(ctx context.Context, b *RoutineBaseline) error
}

type AliasStore interface {
	// Upsert is idempotent on (user_id, alias): a duplicate concurrent
	// resolution updates the target instead of erroring.
	Upsert(ctx context.Context, a *Alias) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Alias, error)
	IncrementUsage(ctx context.Context, userID uuid.UUID, alias string) error
}

type AlertStore interface {
	Create(ctx context.Context, a *RiskAlert) error
	ListActive(ctx context.Context, userID uuid.UUID) ([]RiskAlert, error)
	Dismiss(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
}

type ConversationStore interface {
	Append(ctx context.Context, t *ConversationTurn) error
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]ConversationTurn, error)
	LatestSystemTurn(ctx context.Context, userID uuid.UUID) (*ConversationTurn, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type MemoryWithScore struct {
	VectorMemory
	Score float32 `json:"score"`
}

type VectorMemoryStore interface {
	Create(ctx context.Context, m *VectorMemory) error
	ListByKind(ctx context.Context, userID uuid.UUID, kind VectorMemoryKind, limit int) ([]VectorMemory, error)
	FindSimilar(ctx context.Context, userID uuid.UUID, embedding []float32, topK int) ([]MemoryWithScore, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ParseContext is the read-only user context handed to the parser and
// resolver: known names constrain what the model may return.
type ParseContext struct {
	MedicationNames []string
	Aliases         []Alias
	ActivityNames   []string
}

// ContextSnapshot is the user's live data for one day, gathered before
// answering a question.
type ContextSnapshot struct {
	Medications []ScheduleEntry
	Meals       []MealLog
	Symptoms    []SymptomLog
	Activities  []ActivityLog
	Baseline    *RoutineBaseline
	Passages    []string
}

// RiskSummary carries the trigger context handed to the narration call.
type RiskSummary struct {
	Triggers      []string
	SymptomCount  int
	MissedDoses   int
	MealsLogged   int
	AdherenceRate float32
}

// RiskNarrative is the model-authored explanation of an already-computed
// assessment. Prose only: it carries no level and cannot change one.
type RiskNarrative struct {
	Title        string `json:"title"`
	Unusual      string `json:"unusual"`
	WhyItMatters string `json:"why_it_matters"`
	Action       string `json:"action"`
}

// LLMClient is the text-completion boundary. Every method validates and
// parses the returned text defensively; callers additionally degrade to
// typed fallbacks on error.
type LLMClient interface {
	ParseIntent(ctx context.Context, utterance string, pctx ParseContext) (*Intent, error)
	ResolveIntent(ctx context.Context, original Intent, followUp string, pctx ParseContext) (*Resolution, error)
	ClassifyHealthTopic(ctx context.Context, utterance string) (bool, error)
	Translate(ctx context.Context, text, language string) (string, error)
	Answer(ctx context.Context, question string, snapshot ContextSnapshot, language string) (string, error)
	ExplainRisk(ctx context.Context, level RiskLevel, summary RiskSummary) (*RiskNarrative, error)
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// WeatherClient reports current ambient temperature in °C for a city.
type WeatherClient interface {
	CurrentTemperature(ctx context.Context, city string) (float64, error)
}

// AlertSink delivers a persisted risk alert out of band. The core does not
// know or care whether this is email, push, or SMS.
type AlertSink interface {
	Deliver(ctx context.Context, user *User, alert *RiskAlert) error
}
