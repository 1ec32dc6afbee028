package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearthside/companion/internal/domain"
)

type MealStore struct {
	db *pgxpool.Pool
}

func NewMealStore(db *pgxpool.Pool) *MealStore {
	return &MealStore{db: db}
}

func (s *MealStore) Create(ctx context.Context, m *domain.MealLog) error {
	if m.LoggedAt.IsZero() {
		m.LoggedAt = time.Now()
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO meal_logs (user_id, meal_type, description, logged_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		m.UserID, m.MealType, m.Description, m.LoggedAt,
	).Scan(&m.ID)
}

func (s *MealStore) ListForDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]domain.MealLog, error) {
	return s.list(ctx,
		`SELECT id, user_id, meal_type, description, logged_at
		 FROM meal_logs WHERE user_id = $1 AND logged_at::date = $2::date
		 ORDER BY logged_at`,
		userID, day,
	)
}

func (s *MealStore) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.MealLog, error) {
	return s.list(ctx,
		`SELECT id, user_id, meal_type, description, logged_at
		 FROM meal_logs WHERE user_id = $1 AND logged_at >= $2
		 ORDER BY logged_at`,
		userID, since,
	)
}

func (s *MealStore) list(ctx context.Context, query string, args ...any) ([]domain.MealLog, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meals []domain.MealLog
	for rows.Next() {
		var m domain.MealLog
		if err := rows.Scan(&m.ID, &m.UserID, &m.MealType, &m.Description, &m.LoggedAt); err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}
