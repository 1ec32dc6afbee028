package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearthside/companion/internal/domain"
)

type SymptomStore struct {
	db *pgxpool.Pool
}

func NewSymptomStore(db *pgxpool.Pool) *SymptomStore {
	return &SymptomStore{db: db}
}

func (s *SymptomStore) Create(ctx context.Context, sl *domain.SymptomLog) error {
	if sl.LoggedAt.IsZero() {
		sl.LoggedAt = time.Now()
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO symptom_logs (user_id, name, severity, logged_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		sl.UserID, sl.Name, sl.Severity, sl.LoggedAt,
	).Scan(&sl.ID)
}

func (s *SymptomStore) ListForDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]domain.SymptomLog, error) {
	return s.list(ctx,
		`SELECT id, user_id, name, severity, logged_at
		 FROM symptom_logs WHERE user_id = $1 AND logged_at::date = $2::date
		 ORDER BY logged_at`,
		userID, day,
	)
}

func (s *SymptomStore) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.SymptomLog, error) {
	return s.list(ctx,
		`SELECT id, user_id, name, severity, logged_at
		 FROM symptom_logs WHERE user_id = $1 AND logged_at >= $2
		 ORDER BY logged_at`,
		userID, since,
	)
}

func (s *SymptomStore) list(ctx context.Context, query string, args ...any) ([]domain.SymptomLog, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symptoms []domain.SymptomLog
	for rows.Next() {
		var sl domain.SymptomLog
		if err := rows.Scan(&sl.ID, &sl.UserID, &sl.Name, &sl.Severity, &sl.LoggedAt); err != nil {
			return nil, err
		}
		symptoms = append(symptoms, sl)
	}
	return symptoms, rows.Err()
}
