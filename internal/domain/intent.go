package domain

// IntentType is the closed set of interpretations the parser may produce.
// Routing switches over this type exhaustively; adding a member means every
// switch stops compiling until it is handled.
type IntentType string

const (
	IntentMedicationTaken  IntentType = "medication_taken"
	IntentMedicationMissed IntentType = "medication_missed"
	IntentMealLogged       IntentType = "meal_logged"
	IntentSymptomReported  IntentType = "symptom_reported"
	IntentActivityStarted  IntentType = "activity_started"
	IntentActivityEnded    IntentType = "activity_ended"
	IntentLocationUpdate   IntentType = "location_update"
	IntentQuestion         IntentType = "question"
	IntentUnknown          IntentType = "unknown"
)

func ValidIntentType(t string) bool {
	switch IntentType(t) {
	case IntentMedicationTaken, IntentMedicationMissed, IntentMealLogged,
		IntentSymptomReported, IntentActivityStarted, IntentActivityEnded,
		IntentLocationUpdate, IntentQuestion, IntentUnknown:
		return true
	}
	return false
}

// Mutating reports whether acting on the intent writes a domain record.
// Only mutating intents are ever routed through disambiguation; questions are
// always answered directly.
func (t IntentType) Mutating() bool {
	switch t {
	case IntentMedicationTaken, IntentMedicationMissed, IntentMealLogged,
		IntentSymptomReported, IntentActivityStarted, IntentActivityEnded,
		IntentLocationUpdate:
		return true
	case IntentQuestion, IntentUnknown:
		return false
	}
	return false
}

// Intent is the typed interpretation of one utterance. It is a transient
// decision artifact: consumed the same turn it is produced, never persisted.
type Intent struct {
	Type            IntentType        `json:"type"`
	Entities        map[string]string `json:"entities,omitempty"`
	Confidence      float32           `json:"confidence"`
	Ambiguous       bool              `json:"ambiguous"`
	AmbiguityReason string            `json:"ambiguity_reason,omitempty"`
}

// UnknownIntent is the degraded result for unparseable input or a malformed
// model response. Confidence zero, never ambiguous: there is nothing to
// clarify, the fallback reply path handles it.
func UnknownIntent() Intent {
	return Intent{Type: IntentUnknown, Confidence: 0}
}

// followUpQuestions maps an ambiguous intent type to the clarifying question
// asked before any record is written. Fixed text, not model-generated, so the
// question itself is stable across runs.
var followUpQuestions = map[IntentType]string{
	IntentMedicationTaken:  "Which medication did you take?",
	IntentMedicationMissed: "Which medication did you miss?",
	IntentMealLogged:       "Was that a meal or a snack?",
	IntentSymptomReported:  "Can you tell me a bit more about how you're feeling?",
	IntentActivityStarted:  "What activity are you starting?",
	IntentActivityEnded:    "Which activity did you finish?",
	IntentLocationUpdate:   "Where are you right now?",
}

// FollowUpQuestion returns the clarifying question for an ambiguous intent of
// the given type, or false when the type has no disambiguation path.
func FollowUpQuestion(t IntentType) (string, bool) {
	q, ok := followUpQuestions[t]
	return q, ok
}

// AliasKind classifies what an alias resolves to.
type AliasKind string

const (
	AliasKindMedication AliasKind = "medication"
	AliasKindMeal       AliasKind = "meal"
	AliasKindActivity   AliasKind = "activity"
)

func ValidAliasKind(k string) bool {
	switch AliasKind(k) {
	case AliasKindMedication, AliasKindMeal, AliasKindActivity:
		return true
	}
	return false
}

// AliasMapping is a proposed shorthand → entity mapping produced by the
// resolver when a clarification is judged reusable.
type AliasMapping struct {
	Alias  string    `json:"alias"`
	Target string    `json:"target"`
	Kind   AliasKind `json:"kind"`
}

// Resolution is the outcome of resolving an ambiguous intent against the
// user's follow-up answer.
type Resolution struct {
	Intent            Intent        `json:"intent"`
	ShouldCreateAlias bool          `json:"should_create_alias"`
	AliasMapping      *AliasMapping `json:"alias_mapping,omitempty"`
}
