package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/hearthside/companion/internal/domain"
)

// VectorMemoryStore persists embedded context passages and serves
// cosine-similarity recall for question answering.
type VectorMemoryStore struct {
	db *pgxpool.Pool
}

func NewVectorMemoryStore(db *pgxpool.Pool) *VectorMemoryStore {
	return &VectorMemoryStore{db: db}
}

func (s *VectorMemoryStore) Create(ctx context.Context, m *domain.VectorMemory) error {
	var embedding *pgvector.Vector
	if len(m.Embedding) > 0 {
		v := pgvector.NewVector(m.Embedding)
		embedding = &v
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO vector_memories (user_id, kind, content, embedding)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		m.UserID, m.Kind, m.Content, embedding,
	).Scan(&m.ID, &m.CreatedAt)
}

func (s *VectorMemoryStore) ListByKind(ctx context.Context, userID uuid.UUID, kind domain.VectorMemoryKind, limit int) ([]domain.VectorMemory, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, kind, content, created_at
		 FROM vector_memories WHERE user_id = $1 AND kind = $2
		 ORDER BY created_at DESC LIMIT $3`,
		userID, kind, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []domain.VectorMemory
	for rows.Next() {
		var m domain.VectorMemory
		if err := rows.Scan(&m.ID, &m.UserID, &m.Kind, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func (s *VectorMemoryStore) FindSimilar(ctx context.Context, userID uuid.UUID, embedding []float32, topK int) ([]domain.MemoryWithScore, error) {
	if topK <= 0 {
		topK = 5
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, kind, content, created_at,
		        1 - (embedding <=> $2) AS score
		 FROM vector_memories
		 WHERE user_id = $1 AND embedding IS NOT NULL
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		userID, vec, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("find similar query: %w", err)
	}
	defer rows.Close()

	var results []domain.MemoryWithScore
	for rows.Next() {
		var ms domain.MemoryWithScore
		if err := rows.Scan(&ms.ID, &ms.UserID, &ms.Kind, &ms.Content, &ms.CreatedAt, &ms.Score); err != nil {
			return nil, fmt.Errorf("scan find similar row: %w", err)
		}
		results = append(results, ms)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find similar rows: %w", err)
	}
	return results, nil
}
