package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hearthside/companion/internal/domain"
	"github.com/hearthside/companion/internal/store"
)

const (
	// Two or more same-day symptoms at or above this severity is critical.
	criticalSymptomSeverity = 4
	criticalSymptomCount    = 2
	// An after-food medication overdue with no meal for this long triggers.
	mealGapHours = 4
	// Same symptom this often across a week triggers.
	weeklySymptomThreshold = 3
	// Above this ambient °C, heat-sensitive medications trigger.
	heatThresholdCelsius = 30
	symptomLookbackDays  = 7
)

// criticalMedClasses short-circuit a missed dose straight to high risk.
var criticalMedClasses = []string{"insulin", "blood pressure", "heart"}

// heatSensitiveClasses interact with high ambient temperature.
var heatSensitiveClasses = []string{"diuretic", "blood pressure", "beta-blocker", "beta blocker"}

// GuardService is the two-phase risk engine: deterministic critical rules
// first, heuristic triggers second. The model is only ever asked to phrase an
// explanation; it never sets or changes a level.
type GuardService struct {
	userStore     domain.UserStore
	medStore      domain.MedicationStore
	mealStore     domain.MealStore
	symptomStore  domain.SymptomStore
	baselineStore domain.BaselineStore
	alertStore    domain.AlertStore
	sink          domain.AlertSink
	llm           domain.LLMClient
	weather       domain.WeatherClient
	logger        *zap.Logger
}

func NewGuardService(
	us domain.UserStore,
	ms domain.MedicationStore,
	meals domain.MealStore,
	ss domain.SymptomStore,
	bs domain.BaselineStore,
	as domain.AlertStore,
	sink domain.AlertSink,
	llm domain.LLMClient,
	weather domain.WeatherClient,
	logger *zap.Logger,
) *GuardService {
	return &GuardService{
		userStore:     us,
		medStore:      ms,
		mealStore:     meals,
		symptomStore:  ss,
		baselineStore: bs,
		alertStore:    as,
		sink:          sink,
		llm:           llm,
		weather:       weather,
		logger:        logger,
	}
}

// GuardInputs is everything one assessment pass looks at.
type GuardInputs struct {
	Schedule       []domain.ScheduleEntry
	Meals          []domain.MealLog
	TodaySymptoms  []domain.SymptomLog
	RecentSymptoms []domain.SymptomLog
	Baseline       *domain.RoutineBaseline
	Temperature    *float64
	Now            time.Time
}

// Check runs a full assessment for the user and, when it warrants alerting,
// persists the alert and hands it to the delivery sink.
func (s *GuardService) Check(ctx context.Context, user *domain.User) (*domain.RiskAssessment, error) {
	inputs, err := s.gather(ctx, user)
	if err != nil {
		return nil, err
	}

	assessment := s.Assess(ctx, inputs)

	if assessment.ShouldAlert {
		alert := &domain.RiskAlert{
			UserID:         user.ID,
			Level:          assessment.Level,
			Title:          assessment.Title,
			Unusual:        assessment.Unusual,
			WhyItMatters:   assessment.WhyItMatters,
			Action:         assessment.Action,
			Triggers:       assessment.Triggers,
			AlertCaregiver: assessment.AlertCaregiver,
		}
		if err := s.alertStore.Create(ctx, alert); err != nil {
			return assessment, fmt.Errorf("persist alert: %w", err)
		}
		if err := s.sink.Deliver(ctx, user, alert); err != nil {
			// Delivery is out of band; the persisted alert is the record.
			s.logger.Error("alert delivery failed",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
		}
	}

	return assessment, nil
}

func (s *GuardService) gather(ctx context.Context, user *domain.User) (GuardInputs, error) {
	loc := user.Location()
	now := time.Now().In(loc)
	inputs := GuardInputs{Now: now}

	var err error
	if inputs.Schedule, err = s.medStore.ScheduleForDay(ctx, user.ID, now); err != nil {
		return inputs, fmt.Errorf("load schedule: %w", err)
	}
	if inputs.Meals, err = s.mealStore.ListForDay(ctx, user.ID, now); err != nil {
		return inputs, fmt.Errorf("load meals: %w", err)
	}
	if inputs.TodaySymptoms, err = s.symptomStore.ListForDay(ctx, user.ID, now); err != nil {
		return inputs, fmt.Errorf("load symptoms: %w", err)
	}
	if inputs.RecentSymptoms, err = s.symptomStore.ListSince(ctx, user.ID, now.AddDate(0, 0, -symptomLookbackDays)); err != nil {
		return inputs, fmt.Errorf("load recent symptoms: %w", err)
	}

	inputs.Baseline, err = s.baselineStore.Get(ctx, user.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return inputs, fmt.Errorf("load baseline: %w", err)
	}

	// Weather is an enrichment: its failure drops one heuristic check, not
	// the assessment.
	if user.City != "" && s.weather != nil {
		if temp, err := s.weather.CurrentTemperature(ctx, user.City); err != nil {
			s.logger.Warn("weather lookup failed", zap.String("city", user.City), zap.Error(err))
		} else {
			inputs.Temperature = &temp
		}
	}

	return inputs, nil
}

// Assess runs both phases. Phase 1 is deterministic and reproducible: any
// critical hit short-circuits to a canned high assessment with no model call.
func (s *GuardService) Assess(ctx context.Context, inputs GuardInputs) *domain.RiskAssessment {
	if critical := CriticalCheck(inputs); critical != nil {
		return critical
	}

	triggers, level := CollectTriggers(inputs)
	if len(triggers) == 0 {
		return allClearAssessment()
	}

	assessment := &domain.RiskAssessment{
		Level:          level,
		Triggers:       triggers,
		ShouldAlert:    level != domain.RiskLow,
		AlertCaregiver: level == domain.RiskHigh,
	}

	// Exactly one narration call, and only because there is something to
	// explain. The computed level stands regardless of what comes back.
	summary := buildSummary(inputs, triggers)
	narrative, err := s.llm.ExplainRisk(ctx, level, summary)
	if err != nil {
		s.logger.Warn("risk narration failed, using canned text", zap.Error(err))
		narrative = cannedNarrative(triggers)
	}
	assessment.Title = narrative.Title
	assessment.Unusual = narrative.Unusual
	assessment.WhyItMatters = narrative.WhyItMatters
	assessment.Action = narrative.Action

	return assessment
}

// CriticalCheck is phase 1. Pure and model-free so it is reproducible and
// test-fixed.
func CriticalCheck(inputs GuardInputs) *domain.RiskAssessment {
	severe := 0
	for _, sym := range inputs.TodaySymptoms {
		if sym.Severity >= criticalSymptomSeverity {
			severe++
		}
	}
	if severe >= criticalSymptomCount {
		return &domain.RiskAssessment{
			Level:          domain.RiskHigh,
			Title:          "Multiple severe symptoms today",
			Unusual:        fmt.Sprintf("%d severe symptoms were reported today", severe),
			WhyItMatters:   "Several strong symptoms in one day can mean something needs medical attention.",
			Action:         "Contact the doctor or caregiver now.",
			Triggers:       []string{fmt.Sprintf("%d symptoms at severity %d or higher today", severe, criticalSymptomSeverity)},
			ShouldAlert:    true,
			AlertCaregiver: true,
		}
	}

	for _, e := range inputs.Schedule {
		if e.Taken || !e.DueBy(inputs.Now) {
			continue
		}
		if class := matchClass(e.MedicationName, criticalMedClasses); class != "" {
			return &domain.RiskAssessment{
				Level:          domain.RiskHigh,
				Title:          "Critical medication missed",
				Unusual:        fmt.Sprintf("%s (%s medication) was due at %s and has not been taken", e.MedicationName, class, e.TimeOfDay),
				WhyItMatters:   "Missing this kind of medication can be dangerous even for one dose.",
				Action:         "Take the dose if it is still safe to, and tell the caregiver.",
				Triggers:       []string{fmt.Sprintf("missed dose of %s medication %s", class, e.MedicationName)},
				ShouldAlert:    true,
				AlertCaregiver: true,
			}
		}
	}

	return nil
}

// CollectTriggers is phase 2: three independent heuristic checks, each adding
// at most one trigger. The level is a monotone max across whatever fires.
func CollectTriggers(inputs GuardInputs) ([]string, domain.RiskLevel) {
	var triggers []string
	level := domain.RiskLow

	if t := mealGapTrigger(inputs); t != "" {
		triggers = append(triggers, t)
		level = level.Escalate(domain.RiskMedium)
	}
	if t := symptomPatternTrigger(inputs.RecentSymptoms); t != "" {
		triggers = append(triggers, t)
		level = level.Escalate(domain.RiskMedium)
	}
	if t := weatherTrigger(inputs); t != "" {
		triggers = append(triggers, t)
		level = level.Escalate(domain.RiskMedium)
	}

	return triggers, level
}

func mealGapTrigger(inputs GuardInputs) string {
	var overdue *domain.ScheduleEntry
	for i, e := range inputs.Schedule {
		if e.WithFood && !e.Taken && e.DueBy(inputs.Now) {
			overdue = &inputs.Schedule[i]
			break
		}
	}
	if overdue == nil {
		return ""
	}

	// A day with no logged meal measures the gap from the user's local
	// midnight, not the UTC one.
	year, month, day := inputs.Now.Date()
	lastMeal := time.Date(year, month, day, 0, 0, 0, 0, inputs.Now.Location())
	for _, m := range inputs.Meals {
		if m.LoggedAt.After(lastMeal) {
			lastMeal = m.LoggedAt
		}
	}
	if inputs.Now.Sub(lastMeal) <= mealGapHours*time.Hour {
		return ""
	}
	return fmt.Sprintf("%s should be taken with food but no meal was logged in over %d hours", overdue.MedicationName, mealGapHours)
}

func symptomPatternTrigger(recent []domain.SymptomLog) string {
	counts := make(map[string]int)
	for _, s := range recent {
		counts[strings.ToLower(s.Name)]++
	}
	for name, count := range counts {
		if count >= weeklySymptomThreshold {
			return fmt.Sprintf("%s reported %d times in the last %d days", name, count, symptomLookbackDays)
		}
	}
	return ""
}

func weatherTrigger(inputs GuardInputs) string {
	if inputs.Temperature == nil || *inputs.Temperature <= heatThresholdCelsius {
		return ""
	}
	for _, e := range inputs.Schedule {
		if class := matchClass(e.MedicationName, heatSensitiveClasses); class != "" {
			return fmt.Sprintf("%.0f° heat with a %s medication (%s) on today's schedule", *inputs.Temperature, class, e.MedicationName)
		}
	}
	return ""
}

func matchClass(medicationName string, classes []string) string {
	name := strings.ToLower(medicationName)
	for _, class := range classes {
		if strings.Contains(name, class) {
			return class
		}
	}
	return ""
}

func buildSummary(inputs GuardInputs, triggers []string) domain.RiskSummary {
	missed := 0
	for _, e := range inputs.Schedule {
		if !e.Taken && e.DueBy(inputs.Now) {
			missed++
		}
	}

	summary := domain.RiskSummary{
		Triggers:     triggers,
		SymptomCount: len(inputs.TodaySymptoms),
		MissedDoses:  missed,
		MealsLogged:  len(inputs.Meals),
	}
	if inputs.Baseline != nil {
		summary.AdherenceRate = inputs.Baseline.AdherenceRate
	}
	return summary
}

func allClearAssessment() *domain.RiskAssessment {
	return &domain.RiskAssessment{
		Level:        domain.RiskLow,
		Title:        "All clear",
		Unusual:      "Nothing unusual today.",
		WhyItMatters: "Routine looks normal.",
		Action:       "Keep going as usual.",
	}
}

func cannedNarrative(triggers []string) *domain.RiskNarrative {
	return &domain.RiskNarrative{
		Title:        "Something is a little off today",
		Unusual:      strings.Join(triggers, "; "),
		WhyItMatters: "These patterns are sometimes early signs that the day needs attention.",
		Action:       "Check in and mention this to the caregiver if it continues.",
	}
}
