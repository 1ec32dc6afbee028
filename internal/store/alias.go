package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearthside/companion/internal/domain"
)

type AliasStore struct {
	db *pgxpool.Pool
}

func NewAliasStore(db *pgxpool.Pool) *AliasStore {
	return &AliasStore{db: db}
}

// Upsert is idempotent on (user_id, alias): concurrent duplicate resolutions
// converge on the latest target instead of failing.
func (s *AliasStore) Upsert(ctx context.Context, a *domain.Alias) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO aliases (user_id, alias, target, kind, usage_count)
		 VALUES ($1, LOWER($2), $3, $4, 1)
		 ON CONFLICT (user_id, alias) DO UPDATE SET
		   target = EXCLUDED.target,
		   kind = EXCLUDED.kind
		 RETURNING id, usage_count, created_at`,
		a.UserID, a.Alias, a.Target, a.Kind,
	).Scan(&a.ID, &a.UsageCount, &a.CreatedAt)
}

func (s *AliasStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Alias, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, alias, target, kind, usage_count, created_at
		 FROM aliases WHERE user_id = $1 ORDER BY usage_count DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aliases []domain.Alias
	for rows.Next() {
		var a domain.Alias
		if err := rows.Scan(&a.ID, &a.UserID, &a.Alias, &a.Target, &a.Kind, &a.UsageCount, &a.CreatedAt); err != nil {
			return nil, err
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

func (s *AliasStore) IncrementUsage(ctx context.Context, userID uuid.UUID, alias string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE aliases SET usage_count = usage_count + 1
		 WHERE user_id = $1 AND alias = LOWER($2)`,
		userID, alias,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
