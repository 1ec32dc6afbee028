package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearthside/companion/internal/domain"
)

type MedicationStore struct {
	db *pgxpool.Pool
}

func NewMedicationStore(db *pgxpool.Pool) *MedicationStore {
	return &MedicationStore{db: db}
}

func (s *MedicationStore) Create(ctx context.Context, m *domain.Medication) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO medications (user_id, name, dosage, with_food)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		m.UserID, m.Name, m.Dosage, m.WithFood,
	).Scan(&m.ID, &m.CreatedAt)
}

func (s *MedicationStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Medication, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, name, dosage, with_food, created_at
		 FROM medications WHERE user_id = $1 ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meds []domain.Medication
	for rows.Next() {
		var m domain.Medication
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &m.Dosage, &m.WithFood, &m.CreatedAt); err != nil {
			return nil, err
		}
		meds = append(meds, m)
	}
	return meds, rows.Err()
}

func (s *MedicationStore) GetByName(ctx context.Context, userID uuid.UUID, name string) (*domain.Medication, error) {
	m := &domain.Medication{}
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, name, dosage, with_food, created_at
		 FROM medications WHERE user_id = $1 AND LOWER(name) = LOWER($2)`,
		userID, name,
	).Scan(&m.ID, &m.UserID, &m.Name, &m.Dosage, &m.WithFood, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *MedicationStore) ScheduleForDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]domain.ScheduleEntry, error) {
	return s.scheduleWhere(ctx,
		`WHERE se.user_id = $1 AND se.date = $2::date`,
		userID, day,
	)
}

func (s *MedicationStore) ScheduleSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.ScheduleEntry, error) {
	return s.scheduleWhere(ctx,
		`WHERE se.user_id = $1 AND se.date >= $2::date`,
		userID, since,
	)
}

func (s *MedicationStore) scheduleWhere(ctx context.Context, where string, args ...any) ([]domain.ScheduleEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT se.id, se.user_id, se.medication_id, m.name, m.with_food, se.date, se.time_of_day, se.taken, se.taken_at
		 FROM schedule_entries se
		 JOIN medications m ON m.id = se.medication_id `+where+
			` ORDER BY se.date, se.time_of_day`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ScheduleEntry
	for rows.Next() {
		var e domain.ScheduleEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.MedicationID, &e.MedicationName, &e.WithFood, &e.Date, &e.TimeOfDay, &e.Taken, &e.TakenAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *MedicationStore) MarkTaken(ctx context.Context, userID uuid.UUID, medicationID uuid.UUID, day time.Time, takenAt time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE schedule_entries SET taken = TRUE, taken_at = $4
		 WHERE user_id = $1 AND medication_id = $2 AND date = $3::date AND taken = FALSE`,
		userID, medicationID, day, takenAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
