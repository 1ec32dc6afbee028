package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearthside/companion/internal/domain"
)

type ConversationStore struct {
	db *pgxpool.Pool
}

func NewConversationStore(db *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{db: db}
}

func (s *ConversationStore) Append(ctx context.Context, t *domain.ConversationTurn) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO conversation_turns (user_id, sender, text, metadata)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		t.UserID, t.Sender, t.Text, t.Metadata,
	).Scan(&t.ID, &t.CreatedAt)
}

func (s *ConversationStore) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ConversationTurn, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, sender, text, metadata, created_at
		 FROM conversation_turns WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []domain.ConversationTurn
	for rows.Next() {
		var t domain.ConversationTurn
		if err := rows.Scan(&t.ID, &t.UserID, &t.Sender, &t.Text, &t.Metadata, &t.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Oldest first for display
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *ConversationStore) LatestSystemTurn(ctx context.Context, userID uuid.UUID) (*domain.ConversationTurn, error) {
	t := &domain.ConversationTurn{}
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, sender, text, metadata, created_at
		 FROM conversation_turns WHERE user_id = $1 AND sender = 'system'
		 ORDER BY created_at DESC LIMIT 1`,
		userID,
	).Scan(&t.ID, &t.UserID, &t.Sender, &t.Text, &t.Metadata, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *ConversationStore) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM conversation_turns WHERE user_id = $1`,
		userID,
	)
	return err
}
