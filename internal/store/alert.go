package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearthside/companion/internal/domain"
)

type AlertStore struct {
	db *pgxpool.Pool
}

func NewAlertStore(db *pgxpool.Pool) *AlertStore {
	return &AlertStore{db: db}
}

func (s *AlertStore) Create(ctx context.Context, a *domain.RiskAlert) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO risk_alerts (user_id, level, title, unusual, why_it_matters, action, triggers, alert_caregiver, dismissed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)
		 RETURNING id, created_at`,
		a.UserID, a.Level, a.Title, a.Unusual, a.WhyItMatters, a.Action, a.Triggers, a.AlertCaregiver,
	).Scan(&a.ID, &a.CreatedAt)
}

func (s *AlertStore) ListActive(ctx context.Context, userID uuid.UUID) ([]domain.RiskAlert, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, level, title, unusual, why_it_matters, action, triggers, alert_caregiver, dismissed, created_at
		 FROM risk_alerts WHERE user_id = $1 AND dismissed = FALSE
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []domain.RiskAlert
	for rows.Next() {
		var a domain.RiskAlert
		if err := rows.Scan(&a.ID, &a.UserID, &a.Level, &a.Title, &a.Unusual, &a.WhyItMatters, &a.Action, &a.Triggers, &a.AlertCaregiver, &a.Dismissed, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *AlertStore) Dismiss(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE risk_alerts SET dismissed = TRUE WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
