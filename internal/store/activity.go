package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearthside/companion/internal/domain"
)

type ActivityStore struct {
	db *pgxpool.Pool
}

func NewActivityStore(db *pgxpool.Pool) *ActivityStore {
	return &ActivityStore{db: db}
}

func (s *ActivityStore) Create(ctx context.Context, a *domain.ActivityLog) error {
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now()
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO activity_logs (user_id, name, started_at, ended_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		a.UserID, a.Name, a.StartedAt, a.EndedAt,
	).Scan(&a.ID)
}

// End closes the most recent open activity with the given name.
func (s *ActivityStore) End(ctx context.Context, userID uuid.UUID, name string, endedAt time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE activity_logs SET ended_at = $3
		 WHERE id = (SELECT id FROM activity_logs
		             WHERE user_id = $1 AND LOWER(name) = LOWER($2) AND ended_at IS NULL
		             ORDER BY started_at DESC LIMIT 1)`,
		userID, name, endedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ActivityStore) ListForDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]domain.ActivityLog, error) {
	return s.list(ctx,
		`SELECT id, user_id, name, started_at, ended_at
		 FROM activity_logs WHERE user_id = $1 AND started_at::date = $2::date
		 ORDER BY started_at`,
		userID, day,
	)
}

func (s *ActivityStore) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.ActivityLog, error) {
	return s.list(ctx,
		`SELECT id, user_id, name, started_at, ended_at
		 FROM activity_logs WHERE user_id = $1 AND started_at >= $2
		 ORDER BY started_at`,
		userID, since,
	)
}

func (s *ActivityStore) list(ctx context.Context, query string, args ...any) ([]domain.ActivityLog, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []domain.ActivityLog
	for rows.Next() {
		var a domain.ActivityLog
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.StartedAt, &a.EndedAt); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
