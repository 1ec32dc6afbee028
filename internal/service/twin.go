package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hearthside/companion/internal/domain"
	"github.com/hearthside/companion/internal/store"
)

const (
	// A meal counts as late once the window end is this far behind.
	mealGraceMinutes = 60
	// Below this fraction of due doses taken, adherence drifted.
	adherenceDriftThreshold = 0.8
	// Below this it is a high-severity finding.
	adherenceHighThreshold = 0.5
	// Same symptom this many times today is recurrence.
	symptomRepeatThreshold = 2
)

// TwinService compares today's events against the learned baseline. Every
// evaluation recomputes from scratch; there is no stored previous state.
type TwinService struct {
	userStore     domain.UserStore
	baselineStore domain.BaselineStore
	medStore      domain.MedicationStore
	mealStore     domain.MealStore
	symptomStore  domain.SymptomStore
	logger        *zap.Logger
}

func NewTwinService(us domain.UserStore, bs domain.BaselineStore, ms domain.MedicationStore, meals domain.MealStore, ss domain.SymptomStore, logger *zap.Logger) *TwinService {
	return &TwinService{
		userStore:     us,
		baselineStore: bs,
		medStore:      ms,
		mealStore:     meals,
		symptomStore:  ss,
		logger:        logger,
	}
}

func (s *TwinService) Evaluate(ctx context.Context, user *domain.User) (*domain.TwinState, error) {
	loc := user.Location()
	now := time.Now().In(loc)

	baseline, err := s.baselineStore.Get(ctx, user.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load baseline: %w", err)
	}

	meals, err := s.mealStore.ListForDay(ctx, user.ID, now)
	if err != nil {
		return nil, fmt.Errorf("load meals: %w", err)
	}
	schedule, err := s.medStore.ScheduleForDay(ctx, user.ID, now)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	symptoms, err := s.symptomStore.ListForDay(ctx, user.ID, now)
	if err != nil {
		return nil, fmt.Errorf("load symptoms: %w", err)
	}

	findings := CollectFindings(baseline, meals, schedule, symptoms, now)
	state := BuildTwinState(findings)

	s.logger.Debug("twin evaluated",
		zap.String("user_id", user.ID.String()),
		zap.String("status", string(state.Status)),
		zap.Int("score", state.Score),
		zap.Int("findings", len(findings)),
	)
	return state, nil
}

// CollectFindings runs the independent drift checks. Pure. A nil baseline
// yields no findings: absence of data must never read as concerning.
func CollectFindings(baseline *domain.RoutineBaseline, meals []domain.MealLog, schedule []domain.ScheduleEntry, symptoms []domain.SymptomLog, now time.Time) []domain.DriftFinding {
	var findings []domain.DriftFinding
	findings = append(findings, mealTimingFindings(baseline, meals, now)...)
	findings = append(findings, adherenceFindings(schedule, now)...)
	findings = append(findings, symptomRecurrenceFindings(symptoms)...)
	return findings
}

func mealTimingFindings(baseline *domain.RoutineBaseline, meals []domain.MealLog, now time.Time) []domain.DriftFinding {
	if baseline == nil {
		return nil
	}

	logged := make(map[domain.MealType]bool)
	for _, m := range meals {
		logged[m.MealType] = true
	}

	nowMin := now.Hour()*60 + now.Minute()

	var findings []domain.DriftFinding
	for _, mealType := range []domain.MealType{domain.MealBreakfast, domain.MealLunch, domain.MealDinner, domain.MealSnack} {
		window, ok := baseline.Window(mealType)
		if !ok || logged[mealType] {
			continue
		}
		end := domain.MinutesSinceMidnight(window.End)
		if end < 0 {
			continue
		}
		if nowMin > end+mealGraceMinutes {
			findings = append(findings, domain.DriftFinding{
				Category:      domain.DriftMealTiming,
				Severity:      domain.DriftMedium,
				Description:   fmt.Sprintf("%s not logged; usually logged by %s", mealType, window.End),
				BaselineValue: fmt.Sprintf("%s-%s", window.Start, window.End),
				ObservedValue: "not logged",
			})
		}
	}
	return findings
}

func adherenceFindings(schedule []domain.ScheduleEntry, now time.Time) []domain.DriftFinding {
	due, taken := 0, 0
	for _, e := range schedule {
		if !e.DueBy(now) {
			continue
		}
		due++
		if e.Taken {
			taken++
		}
	}
	if due == 0 {
		return nil
	}

	fraction := float64(taken) / float64(due)
	if fraction >= adherenceDriftThreshold {
		return nil
	}

	severity := domain.DriftMedium
	if fraction < adherenceHighThreshold {
		severity = domain.DriftHigh
	}
	return []domain.DriftFinding{{
		Category:      domain.DriftMedAdherence,
		Severity:      severity,
		Description:   fmt.Sprintf("%d of %d due doses taken", taken, due),
		BaselineValue: "all due doses taken",
		ObservedValue: fmt.Sprintf("%.0f%%", fraction*100),
	}}
}

func symptomRecurrenceFindings(symptoms []domain.SymptomLog) []domain.DriftFinding {
	counts := make(map[string]int)
	order := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		if counts[s.Name] == 0 {
			order = append(order, s.Name)
		}
		counts[s.Name]++
	}

	var findings []domain.DriftFinding
	for _, name := range order {
		if counts[name] >= symptomRepeatThreshold {
			findings = append(findings, domain.DriftFinding{
				Category:      domain.DriftSymptomPattern,
				Severity:      domain.DriftMedium,
				Description:   fmt.Sprintf("%s reported %d times today", name, counts[name]),
				BaselineValue: "no repeated symptoms",
				ObservedValue: fmt.Sprintf("%d reports", counts[name]),
			})
		}
	}
	return findings
}

// BuildTwinState is the pure findings → state step, separate from the
// findings collection so each is testable alone.
func BuildTwinState(findings []domain.DriftFinding) *domain.TwinState {
	score := domain.ScoreFindings(findings)
	status := domain.ClassifyFindings(findings)

	reasons := make([]domain.DriftFinding, len(findings))
	copy(reasons, findings)
	domain.SortFindings(reasons)

	return &domain.TwinState{
		Status:   status,
		Score:    score,
		Headline: twinHeadline(status),
		Reasons:  reasons,
	}
}

func twinHeadline(status domain.TwinStatus) string {
	switch status {
	case domain.TwinRoutine:
		return "Everything looks like a normal day."
	case domain.TwinDrift:
		return "Today is a little different from usual."
	case domain.TwinConcern:
		return "Today looks quite different from usual - worth a check-in."
	}
	return ""
}
