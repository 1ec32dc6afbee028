package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearthside/companion/internal/domain"
)

type BaselineStore struct {
	db *pgxpool.Pool
}

func NewBaselineStore(db *pgxpool.Pool) *BaselineStore {
	return &BaselineStore{db: db}
}

func (s *BaselineStore) Get(ctx context.Context, userID uuid.UUID) (*domain.RoutineBaseline, error) {
	b := &domain.RoutineBaseline{}
	var windows, activities []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, meal_windows, adherence_rate, activity_frequency, updated_at
		 FROM routine_baselines WHERE user_id = $1`,
		userID,
	).Scan(&b.ID, &b.UserID, &windows, &b.AdherenceRate, &activities, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(windows, &b.MealWindows); err != nil {
		return nil, fmt.Errorf("decode meal windows: %w", err)
	}
	if err := json.Unmarshal(activities, &b.ActivityFrequency); err != nil {
		return nil, fmt.Errorf("decode activity frequency: %w", err)
	}
	return b, nil
}

// Upsert fully replaces the baseline row for the user. A rebuild is a wholesale
// derivation, not an incremental merge.
func (s *BaselineStore) Upsert(ctx context.Context, b *domain.RoutineBaseline) error {
	windows, err := json.Marshal(b.MealWindows)
	if err != nil {
		return fmt.Errorf("encode meal windows: %w", err)
	}
	activities, err := json.Marshal(b.ActivityFrequency)
	if err != nil {
		return fmt.Errorf("encode activity frequency: %w", err)
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO routine_baselines (user_id, meal_windows, adherence_rate, activity_frequency, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
		   meal_windows = EXCLUDED.meal_windows,
		   adherence_rate = EXCLUDED.adherence_rate,
		   activity_frequency = EXCLUDED.activity_frequency,
		   updated_at = NOW()
		 RETURNING id, updated_at`,
		b.UserID, windows, b.AdherenceRate, activities,
	).Scan(&b.ID, &b.UpdatedAt)
}
