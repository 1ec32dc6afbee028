package service

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hearthside/companion/internal/domain"
)

func testBaseline() *domain.RoutineBaseline {
	return &domain.RoutineBaseline{
		UserID: uuid.New(),
		MealWindows: map[domain.MealType]domain.MealWindow{
			domain.MealBreakfast: {Start: "07:30", End: "08:30"},
			domain.MealLunch:     {Start: "12:00", End: "13:00"},
		},
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 8, 27, hour, minute, 0, 0, time.UTC)
}

func TestCollectFindings_NilBaselineIsNeutral(t *testing.T) {
	// No baseline means no meal expectations: absence of data must never
	// read as concerning.
	findings := CollectFindings(nil, nil, nil, nil, at(15, 0))
	if len(findings) != 0 {
		t.Fatalf("expected no findings, got %+v", findings)
	}

	state := BuildTwinState(findings)
	if state.Status != domain.TwinRoutine || state.Score != 100 {
		t.Fatalf("expected routine/100, got %s/%d", state.Status, state.Score)
	}
}

func TestCollectFindings_MissedBreakfastPastGrace(t *testing.T) {
	// 10:00 is past the 08:30 window end plus the one-hour grace.
	findings := CollectFindings(testBaseline(), nil, nil, nil, at(10, 0))

	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %+v", findings)
	}
	if findings[0].Category != domain.DriftMealTiming {
		t.Fatalf("expected meal_timing, got %s", findings[0].Category)
	}
	if findings[0].Severity != domain.DriftMedium {
		t.Fatalf("expected medium severity, got %s", findings[0].Severity)
	}
}

func TestCollectFindings_MealInsideGraceIsFine(t *testing.T) {
	// 09:00 is within the grace hour after the 08:30 window end.
	findings := CollectFindings(testBaseline(), nil, nil, nil, at(9, 0))
	if len(findings) != 0 {
		t.Fatalf("expected no findings, got %+v", findings)
	}
}

func TestCollectFindings_LoggedMealClearsTheCheck(t *testing.T) {
	meals := []domain.MealLog{{MealType: domain.MealBreakfast, LoggedAt: at(8, 15)}}
	findings := CollectFindings(testBaseline(), meals, nil, nil, at(10, 0))
	if len(findings) != 0 {
		t.Fatalf("expected no findings, got %+v", findings)
	}
}

func TestCollectFindings_AdherenceSeverityBands(t *testing.T) {
	// 1 of 2 due doses taken: 50%, below 80% but not below 50% → medium.
	schedule := []domain.ScheduleEntry{
		{TimeOfDay: "08:00", Taken: true},
		{TimeOfDay: "12:00", Taken: false},
	}
	findings := CollectFindings(nil, nil, schedule, nil, at(15, 0))
	if len(findings) != 1 || findings[0].Severity != domain.DriftMedium {
		t.Fatalf("expected one medium finding, got %+v", findings)
	}

	// 0 of 2 due doses taken → high.
	schedule[0].Taken = false
	findings = CollectFindings(nil, nil, schedule, nil, at(15, 0))
	if len(findings) != 1 || findings[0].Severity != domain.DriftHigh {
		t.Fatalf("expected one high finding, got %+v", findings)
	}
}

func TestCollectFindings_FutureDosesNotCounted(t *testing.T) {
	schedule := []domain.ScheduleEntry{
		{TimeOfDay: "08:00", Taken: true},
		{TimeOfDay: "20:00", Taken: false}, // not due yet at 15:00
	}
	findings := CollectFindings(nil, nil, schedule, nil, at(15, 0))
	if len(findings) != 0 {
		t.Fatalf("a dose not yet due must not count against adherence: %+v", findings)
	}
}

func TestCollectFindings_SymptomRecurrence(t *testing.T) {
	symptoms := []domain.SymptomLog{
		{Name: "dizziness", Severity: 2},
		{Name: "dizziness", Severity: 3},
		{Name: "headache", Severity: 2},
	}
	findings := CollectFindings(nil, nil, nil, symptoms, at(15, 0))
	if len(findings) != 1 {
		t.Fatalf("expected one recurrence finding, got %+v", findings)
	}
	if findings[0].Category != domain.DriftSymptomPattern {
		t.Fatalf("expected symptom_recurrence, got %s", findings[0].Category)
	}
}

func TestBuildTwinState_HighFindingIsConcern(t *testing.T) {
	state := BuildTwinState([]domain.DriftFinding{
		{Category: domain.DriftMedAdherence, Severity: domain.DriftHigh},
	})
	if state.Status != domain.TwinConcern {
		t.Fatalf("expected concern, got %s", state.Status)
	}
	if state.Score != 80 {
		t.Fatalf("expected score 80, got %d", state.Score)
	}
	if state.Headline == "" {
		t.Fatal("expected a headline")
	}
}

func TestBuildTwinState_SortsReasonsMostSevereFirst(t *testing.T) {
	state := BuildTwinState([]domain.DriftFinding{
		{Severity: domain.DriftLow},
		{Severity: domain.DriftHigh},
	})
	if state.Reasons[0].Severity != domain.DriftHigh {
		t.Fatalf("expected most severe first, got %+v", state.Reasons)
	}
}
