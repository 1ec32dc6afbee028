package domain

import "testing"

func TestIntentType_Mutating(t *testing.T) {
	mutating := []IntentType{
		IntentMedicationTaken, IntentMedicationMissed, IntentMealLogged,
		IntentSymptomReported, IntentActivityStarted, IntentActivityEnded,
		IntentLocationUpdate,
	}
	for _, it := range mutating {
		if !it.Mutating() {
			t.Errorf("expected %s to be mutating", it)
		}
	}

	if IntentQuestion.Mutating() {
		t.Error("questions must never be mutating")
	}
	if IntentUnknown.Mutating() {
		t.Error("unknown must never be mutating")
	}
}

func TestFollowUpQuestion_CoversAllMutatingTypes(t *testing.T) {
	// Every mutating type must have a deterministic clarifying question, or
	// an ambiguous parse of it would have nothing to ask.
	for _, it := range []IntentType{
		IntentMedicationTaken, IntentMedicationMissed, IntentMealLogged,
		IntentSymptomReported, IntentActivityStarted, IntentActivityEnded,
		IntentLocationUpdate,
	} {
		if _, ok := FollowUpQuestion(it); !ok {
			t.Errorf("no follow-up question for %s", it)
		}
	}

	if _, ok := FollowUpQuestion(IntentQuestion); ok {
		t.Error("questions have no disambiguation path")
	}
}

func TestFollowUpQuestion_MealWording(t *testing.T) {
	q, _ := FollowUpQuestion(IntentMealLogged)
	if q != "Was that a meal or a snack?" {
		t.Errorf("unexpected meal follow-up: %q", q)
	}
}

func TestUnknownIntent(t *testing.T) {
	intent := UnknownIntent()
	if intent.Type != IntentUnknown {
		t.Errorf("expected unknown type, got %s", intent.Type)
	}
	if intent.Ambiguous {
		t.Error("unknown intent must not be ambiguous")
	}
	if intent.Confidence != 0 {
		t.Errorf("expected zero confidence, got %f", intent.Confidence)
	}
}

func TestMinutesSinceMidnight(t *testing.T) {
	if got := MinutesSinceMidnight("08:30"); got != 510 {
		t.Errorf("expected 510, got %d", got)
	}
	if got := MinutesSinceMidnight("bogus"); got != -1 {
		t.Errorf("expected -1 for malformed input, got %d", got)
	}
}

func TestClockString_Clamps(t *testing.T) {
	if got := ClockString(-20); got != "00:00" {
		t.Errorf("expected 00:00, got %s", got)
	}
	if got := ClockString(25 * 60); got != "23:59" {
		t.Errorf("expected 23:59, got %s", got)
	}
	if got := ClockString(510); got != "08:30" {
		t.Errorf("expected 08:30, got %s", got)
	}
}
