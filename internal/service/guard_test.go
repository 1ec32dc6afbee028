package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hearthside/companion/internal/domain"
	"github.com/hearthside/companion/internal/llm"
)

func newGuard(mock *llm.MockClient, alerts *fakeAlertStore, sink *fakeSink) *GuardService {
	return NewGuardService(
		newFakeUserStore(), &fakeMedStore{}, &fakeMealStore{}, &fakeSymptomStore{},
		newFakeBaselineStore(), alerts, sink, mock, nil, zap.NewNop(),
	)
}

func guardNow() time.Time {
	return time.Date(2026, 8, 27, 15, 0, 0, 0, time.UTC)
}

func TestGuard_TwoSevereSymptomsIsCritical(t *testing.T) {
	mock := llm.NewMockClient()
	g := newGuard(mock, &fakeAlertStore{}, &fakeSink{})

	inputs := GuardInputs{
		Now: guardNow(),
		TodaySymptoms: []domain.SymptomLog{
			{Name: "chest pain", Severity: 4},
			{Name: "dizziness", Severity: 5},
		},
	}

	a := g.Assess(context.Background(), inputs)

	if a.Level != domain.RiskHigh {
		t.Fatalf("expected high, got %s", a.Level)
	}
	if !a.ShouldAlert || !a.AlertCaregiver {
		t.Fatal("critical assessment must alert the caregiver")
	}
	// Critical rules are deterministic: no narration call.
	if mock.CompletionCalls() != 0 {
		t.Fatalf("expected zero completion calls, got %d", mock.CompletionCalls())
	}
}

func TestGuard_OneSevereSymptomIsNotCritical(t *testing.T) {
	mock := llm.NewMockClient()
	g := newGuard(mock, &fakeAlertStore{}, &fakeSink{})

	inputs := GuardInputs{
		Now:           guardNow(),
		TodaySymptoms: []domain.SymptomLog{{Name: "headache", Severity: 4}},
	}

	a := g.Assess(context.Background(), inputs)
	if a.Level == domain.RiskHigh {
		t.Fatal("a single severe symptom must not short-circuit to high")
	}
}

func TestGuard_MissedInsulinIsCritical(t *testing.T) {
	mock := llm.NewMockClient()
	g := newGuard(mock, &fakeAlertStore{}, &fakeSink{})

	inputs := GuardInputs{
		Now: guardNow(),
		Schedule: []domain.ScheduleEntry{
			{MedicationName: "Insulin Glargine", TimeOfDay: "08:00", Taken: false},
		},
	}

	a := g.Assess(context.Background(), inputs)

	if a.Level != domain.RiskHigh || !a.AlertCaregiver {
		t.Fatalf("expected critical high, got %s caregiver=%v", a.Level, a.AlertCaregiver)
	}
	if mock.CompletionCalls() != 0 {
		t.Fatalf("expected zero completion calls, got %d", mock.CompletionCalls())
	}
}

func TestGuard_TakenInsulinIsNotCritical(t *testing.T) {
	mock := llm.NewMockClient()
	g := newGuard(mock, &fakeAlertStore{}, &fakeSink{})

	inputs := GuardInputs{
		Now: guardNow(),
		Schedule: []domain.ScheduleEntry{
			{MedicationName: "Insulin Glargine", TimeOfDay: "08:00", Taken: true},
		},
	}

	if a := g.Assess(context.Background(), inputs); a.Level != domain.RiskLow {
		t.Fatalf("expected low, got %s", a.Level)
	}
}

func TestGuard_AllClearMakesNoModelCall(t *testing.T) {
	mock := llm.NewMockClient()
	g := newGuard(mock, &fakeAlertStore{}, &fakeSink{})

	a := g.Assess(context.Background(), GuardInputs{Now: guardNow()})

	if a.Level != domain.RiskLow {
		t.Fatalf("expected low, got %s", a.Level)
	}
	if a.ShouldAlert {
		t.Fatal("all clear must not alert")
	}
	if a.Title == "" {
		t.Fatal("all-clear still carries canned narration")
	}
	if mock.CompletionCalls() != 0 {
		t.Fatalf("quiet day must cost zero completion calls, got %d", mock.CompletionCalls())
	}
}

func TestGuard_MealGapTrigger(t *testing.T) {
	mock := llm.NewMockClient()
	g := newGuard(mock, &fakeAlertStore{}, &fakeSink{})

	inputs := GuardInputs{
		Now: guardNow(),
		Schedule: []domain.ScheduleEntry{
			{MedicationName: "Metformin", TimeOfDay: "13:00", WithFood: true, Taken: false},
		},
		// Breakfast at 08:00 is 7 hours before Now.
		Meals: []domain.MealLog{{MealType: domain.MealBreakfast, LoggedAt: guardNow().Add(-7 * time.Hour)}},
	}

	a := g.Assess(context.Background(), inputs)

	if a.Level != domain.RiskMedium {
		t.Fatalf("expected medium, got %s", a.Level)
	}
	if !a.ShouldAlert || a.AlertCaregiver {
		t.Fatalf("medium risk alerts but not the caregiver: %+v", a)
	}
	if len(mock.ExplainRiskCalls) != 1 {
		t.Fatalf("expected exactly one narration call, got %d", len(mock.ExplainRiskCalls))
	}
}

func TestGuard_MealGapUsesLocalDayStart(t *testing.T) {
	mock := llm.NewMockClient()
	g := newGuard(mock, &fakeAlertStore{}, &fakeSink{})

	// 13:00 local in UTC+10 is 03:00 UTC. With no meals logged, the gap must
	// measure from the local midnight 13 hours back, not the UTC one.
	east := time.FixedZone("UTC+10", 10*60*60)
	inputs := GuardInputs{
		Now: time.Date(2026, 8, 27, 13, 0, 0, 0, east),
		Schedule: []domain.ScheduleEntry{
			{MedicationName: "Metformin", TimeOfDay: "08:00", WithFood: true, Taken: false},
		},
	}

	a := g.Assess(context.Background(), inputs)
	if a.Level != domain.RiskMedium {
		t.Fatalf("expected medium for a mealless local day, got %s", a.Level)
	}
}

func TestGuard_RecentMealClearsMealGap(t *testing.T) {
	mock := llm.NewMockClient()
	g := newGuard(mock, &fakeAlertStore{}, &fakeSink{})

	inputs := GuardInputs{
		Now: guardNow(),
		Schedule: []domain.ScheduleEntry{
			{MedicationName: "Metformin", TimeOfDay: "13:00", WithFood: true, Taken: false},
		},
		Meals: []domain.MealLog{{MealType: domain.MealLunch, LoggedAt: guardNow().Add(-2 * time.Hour)}},
	}

	if a := g.Assess(context.Background(), inputs); a.Level != domain.RiskLow {
		t.Fatalf("expected low, got %s", a.Level)
	}
}

func TestGuard_WeeklySymptomPattern(t *testing.T) {
	mock := llm.NewMockClient()
	g := newGuard(mock, &fakeAlertStore{}, &fakeSink{})

	inputs := GuardInputs{
		Now: guardNow(),
		RecentSymptoms: []domain.SymptomLog{
			{Name: "Dizziness"}, {Name: "dizziness"}, {Name: "dizziness"},
		},
	}

	a := g.Assess(context.Background(), inputs)
	if a.Level != domain.RiskMedium {
		t.Fatalf("expected medium, got %s", a.Level)
	}
}

func TestGuard_HeatWithSensitiveMedication(t *testing.T) {
	mock := llm.NewMockClient()
	g := newGuard(mock, &fakeAlertStore{}, &fakeSink{})

	temp := 32.0
	inputs := GuardInputs{
		Now:         guardNow(),
		Temperature: &temp,
		Schedule: []domain.ScheduleEntry{
			{MedicationName: "Furosemide diuretic", TimeOfDay: "08:00", Taken: true},
		},
	}

	a := g.Assess(context.Background(), inputs)
	if a.Level != domain.RiskMedium {
		t.Fatalf("expected medium, got %s", a.Level)
	}
}

func TestGuard_NoTemperatureSkipsWeatherCheck(t *testing.T) {
	mock := llm.NewMockClient()
	g := newGuard(mock, &fakeAlertStore{}, &fakeSink{})

	inputs := GuardInputs{
		Now: guardNow(),
		Schedule: []domain.ScheduleEntry{
			{MedicationName: "Furosemide diuretic", TimeOfDay: "08:00", Taken: true},
		},
	}

	if a := g.Assess(context.Background(), inputs); a.Level != domain.RiskLow {
		t.Fatalf("weather failure must skip the check, got %s", a.Level)
	}
}

func TestGuard_NarrationFailureKeepsComputedLevel(t *testing.T) {
	mock := llm.NewMockClient()
	mock.ExplainRiskError = errors.New("model unavailable")
	g := newGuard(mock, &fakeAlertStore{}, &fakeSink{})

	inputs := GuardInputs{
		Now: guardNow(),
		RecentSymptoms: []domain.SymptomLog{
			{Name: "dizziness"}, {Name: "dizziness"}, {Name: "dizziness"},
		},
	}

	a := g.Assess(context.Background(), inputs)

	if a.Level != domain.RiskMedium {
		t.Fatalf("narration failure must not change the level, got %s", a.Level)
	}
	if a.Title == "" || a.Action == "" {
		t.Fatal("expected canned narration on model failure")
	}
}

func TestGuard_CheckPersistsAndDeliversAlert(t *testing.T) {
	users := newFakeUserStore()
	user := users.add(&domain.User{Name: "Margaret", Timezone: "UTC"})

	symptoms := &fakeSymptomStore{}
	now := time.Now().UTC()
	for i := 0; i < 2; i++ {
		symptoms.symptoms = append(symptoms.symptoms, domain.SymptomLog{
			UserID: user.ID, Name: "chest pain", Severity: 5, LoggedAt: now,
		})
	}

	alerts := &fakeAlertStore{}
	sink := &fakeSink{}
	g := NewGuardService(
		users, &fakeMedStore{}, &fakeMealStore{}, symptoms,
		newFakeBaselineStore(), alerts, sink, llm.NewMockClient(), nil, zap.NewNop(),
	)

	a, err := g.Check(context.Background(), user)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if a.Level != domain.RiskHigh {
		t.Fatalf("expected high, got %s", a.Level)
	}
	if len(alerts.alerts) != 1 {
		t.Fatalf("expected one persisted alert, got %d", len(alerts.alerts))
	}
	if len(sink.delivered) != 1 {
		t.Fatalf("expected one delivered alert, got %d", len(sink.delivered))
	}
}
