package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hearthside/companion/internal/domain"
)

const (
	baselineLookbackDays = 30
	// A window is ±30 minutes around the median logging time.
	windowHalfWidth = 30
	// Fewer logs than this and no window is learned for the meal type.
	minLogsPerWindow = 3
)

// BaselineService rebuilds a user's routine baseline from 30 days of history.
// A rebuild is a wholesale replacement, triggered on demand (nightly), not on
// every event.
type BaselineService struct {
	userStore     domain.UserStore
	mealStore     domain.MealStore
	medStore      domain.MedicationStore
	activityStore domain.ActivityStore
	baselineStore domain.BaselineStore
	logger        *zap.Logger
}

func NewBaselineService(us domain.UserStore, ms domain.MealStore, meds domain.MedicationStore, as domain.ActivityStore, bs domain.BaselineStore, logger *zap.Logger) *BaselineService {
	return &BaselineService{
		userStore:     us,
		mealStore:     ms,
		medStore:      meds,
		activityStore: as,
		baselineStore: bs,
		logger:        logger,
	}
}

func (s *BaselineService) Rebuild(ctx context.Context, userID uuid.UUID) error {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	loc := user.Location()
	since := time.Now().In(loc).AddDate(0, 0, -baselineLookbackDays)

	meals, err := s.mealStore.ListSince(ctx, userID, since)
	if err != nil {
		return fmt.Errorf("load meal history: %w", err)
	}
	schedule, err := s.medStore.ScheduleSince(ctx, userID, since)
	if err != nil {
		return fmt.Errorf("load schedule history: %w", err)
	}
	activities, err := s.activityStore.ListSince(ctx, userID, since)
	if err != nil {
		return fmt.Errorf("load activity history: %w", err)
	}

	baseline := ComputeBaseline(userID, meals, schedule, activities, loc)
	if err := s.baselineStore.Upsert(ctx, baseline); err != nil {
		return fmt.Errorf("store baseline: %w", err)
	}

	s.logger.Info("baseline rebuilt",
		zap.String("user_id", userID.String()),
		zap.Int("meal_windows", len(baseline.MealWindows)),
		zap.Float64("adherence_rate", float64(baseline.AdherenceRate)),
	)
	return nil
}

// ComputeBaseline derives the baseline from raw history. Pure.
func ComputeBaseline(userID uuid.UUID, meals []domain.MealLog, schedule []domain.ScheduleEntry, activities []domain.ActivityLog, loc *time.Location) *domain.RoutineBaseline {
	b := &domain.RoutineBaseline{
		UserID:            userID,
		MealWindows:       make(map[domain.MealType]domain.MealWindow),
		ActivityFrequency: make(map[string]int),
	}

	byType := make(map[domain.MealType][]int)
	for _, m := range meals {
		local := m.LoggedAt.In(loc)
		byType[m.MealType] = append(byType[m.MealType], local.Hour()*60+local.Minute())
	}
	for mealType, minutes := range byType {
		if len(minutes) < minLogsPerWindow {
			continue
		}
		med := medianMinutes(minutes)
		b.MealWindows[mealType] = domain.MealWindow{
			Start: domain.ClockString(med - windowHalfWidth),
			End:   domain.ClockString(med + windowHalfWidth),
		}
	}

	if len(schedule) > 0 {
		taken := 0
		for _, e := range schedule {
			if e.Taken {
				taken++
			}
		}
		b.AdherenceRate = float32(taken) / float32(len(schedule))
	}

	for _, a := range activities {
		b.ActivityFrequency[a.Name]++
	}

	return b
}

// medianMinutes returns the median of minutes-since-midnight values. The
// median, not the mean: one 3am snack must not drag the breakfast window.
func medianMinutes(minutes []int) int {
	sorted := make([]int, len(minutes))
	copy(sorted, minutes)
	sort.Ints(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
