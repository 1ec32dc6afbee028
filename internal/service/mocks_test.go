package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hearthside/companion/internal/domain"
	"github.com/hearthside/companion/internal/embedding"
	"github.com/hearthside/companion/internal/store"
)

// In-memory store fakes shared by the service tests.

type fakeUserStore struct {
	users map[uuid.UUID]*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*domain.User)}
}

func (f *fakeUserStore) add(u *domain.User) *domain.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeUserStore) Create(ctx context.Context, u *domain.User) error {
	f.add(u)
	return nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetByAPIKeyHash(ctx context.Context, hash string) (*domain.User, error) {
	for _, u := range f.users {
		if u.APIKeyHash == hash {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) UpdateCity(ctx context.Context, id uuid.UUID, city string) error {
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.City = city
	return nil
}

func (f *fakeUserStore) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeMedStore struct {
	meds         []domain.Medication
	schedule     []domain.ScheduleEntry
	taken        []uuid.UUID // medication IDs marked taken
	markTakenErr error
}

func (f *fakeMedStore) Create(ctx context.Context, m *domain.Medication) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	f.meds = append(f.meds, *m)
	return nil
}

func (f *fakeMedStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Medication, error) {
	var out []domain.Medication
	for _, m := range f.meds {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMedStore) GetByName(ctx context.Context, userID uuid.UUID, name string) (*domain.Medication, error) {
	for i, m := range f.meds {
		if m.UserID == userID && strings.EqualFold(m.Name, name) {
			return &f.meds[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeMedStore) ScheduleForDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]domain.ScheduleEntry, error) {
	return f.schedule, nil
}

func (f *fakeMedStore) ScheduleSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.ScheduleEntry, error) {
	return f.schedule, nil
}

func (f *fakeMedStore) MarkTaken(ctx context.Context, userID, medicationID uuid.UUID, day, takenAt time.Time) error {
	if f.markTakenErr != nil {
		return f.markTakenErr
	}
	f.taken = append(f.taken, medicationID)
	for i := range f.schedule {
		if f.schedule[i].MedicationID == medicationID {
			f.schedule[i].Taken = true
		}
	}
	return nil
}

type fakeMealStore struct {
	meals []domain.MealLog
}

func (f *fakeMealStore) Create(ctx context.Context, m *domain.MealLog) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	f.meals = append(f.meals, *m)
	return nil
}

func (f *fakeMealStore) ListForDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]domain.MealLog, error) {
	return f.meals, nil
}

func (f *fakeMealStore) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.MealLog, error) {
	var out []domain.MealLog
	for _, m := range f.meals {
		if !m.LoggedAt.Before(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeSymptomStore struct {
	symptoms []domain.SymptomLog
}

func (f *fakeSymptomStore) Create(ctx context.Context, s *domain.SymptomLog) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	f.symptoms = append(f.symptoms, *s)
	return nil
}

func (f *fakeSymptomStore) ListForDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]domain.SymptomLog, error) {
	var out []domain.SymptomLog
	for _, s := range f.symptoms {
		if sameDay(s.LoggedAt, day) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSymptomStore) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.SymptomLog, error) {
	var out []domain.SymptomLog
	for _, s := range f.symptoms {
		if !s.LoggedAt.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeActivityStore struct {
	activities []domain.ActivityLog
}

func (f *fakeActivityStore) Create(ctx context.Context, a *domain.ActivityLog) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.activities = append(f.activities, *a)
	return nil
}

func (f *fakeActivityStore) End(ctx context.Context, userID uuid.UUID, name string, endedAt time.Time) error {
	for i := range f.activities {
		a := &f.activities[i]
		if a.UserID == userID && strings.EqualFold(a.Name, name) && a.EndedAt == nil {
			a.EndedAt = &endedAt
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeActivityStore) ListForDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]domain.ActivityLog, error) {
	return f.activities, nil
}

func (f *fakeActivityStore) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.ActivityLog, error) {
	return f.activities, nil
}

type fakeBaselineStore struct {
	baselines map[uuid.UUID]*domain.RoutineBaseline
}

func newFakeBaselineStore() *fakeBaselineStore {
	return &fakeBaselineStore{baselines: make(map[uuid.UUID]*domain.RoutineBaseline)}
}

func (f *fakeBaselineStore) Get(ctx context.Context, userID uuid.UUID) (*domain.RoutineBaseline, error) {
	b, ok := f.baselines[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return b, nil
}

func (f *fakeBaselineStore) Upsert(ctx context.Context, b *domain.RoutineBaseline) error {
	f.baselines[b.UserID] = b
	return nil
}

type fakeAliasStore struct {
	aliases []domain.Alias
	usage   map[string]int
}

func newFakeAliasStore() *fakeAliasStore {
	return &fakeAliasStore{usage: make(map[string]int)}
}

func (f *fakeAliasStore) Upsert(ctx context.Context, a *domain.Alias) error {
	for i := range f.aliases {
		if f.aliases[i].UserID == a.UserID && f.aliases[i].Alias == a.Alias {
			f.aliases[i].Target = a.Target
			f.aliases[i].Kind = a.Kind
			return nil
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.aliases = append(f.aliases, *a)
	return nil
}

func (f *fakeAliasStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Alias, error) {
	var out []domain.Alias
	for _, a := range f.aliases {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAliasStore) IncrementUsage(ctx context.Context, userID uuid.UUID, alias string) error {
	f.usage[alias]++
	return nil
}

type fakeAlertStore struct {
	alerts []domain.RiskAlert
}

func (f *fakeAlertStore) Create(ctx context.Context, a *domain.RiskAlert) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.alerts = append(f.alerts, *a)
	return nil
}

func (f *fakeAlertStore) ListActive(ctx context.Context, userID uuid.UUID) ([]domain.RiskAlert, error) {
	var out []domain.RiskAlert
	for _, a := range f.alerts {
		if a.UserID == userID && !a.Dismissed {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAlertStore) Dismiss(ctx context.Context, id, userID uuid.UUID) error {
	for i := range f.alerts {
		if f.alerts[i].ID == id && f.alerts[i].UserID == userID {
			f.alerts[i].Dismissed = true
			return nil
		}
	}
	return store.ErrNotFound
}

type fakeConvStore struct {
	turns     []domain.ConversationTurn
	appendErr error
}

func (f *fakeConvStore) Append(ctx context.Context, t *domain.ConversationTurn) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	f.turns = append(f.turns, *t)
	return nil
}

func (f *fakeConvStore) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ConversationTurn, error) {
	out := f.turns
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeConvStore) LatestSystemTurn(ctx context.Context, userID uuid.UUID) (*domain.ConversationTurn, error) {
	for i := len(f.turns) - 1; i >= 0; i-- {
		if f.turns[i].Sender == domain.SenderSystem {
			return &f.turns[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeConvStore) Clear(ctx context.Context, userID uuid.UUID) error {
	f.turns = nil
	return nil
}

type fakeMemoryStore struct {
	memories []domain.VectorMemory
}

func (f *fakeMemoryStore) Create(ctx context.Context, m *domain.VectorMemory) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	f.memories = append(f.memories, *m)
	return nil
}

func (f *fakeMemoryStore) ListByKind(ctx context.Context, userID uuid.UUID, kind domain.VectorMemoryKind, limit int) ([]domain.VectorMemory, error) {
	var out []domain.VectorMemory
	for _, m := range f.memories {
		if m.UserID == userID && m.Kind == kind {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMemoryStore) FindSimilar(ctx context.Context, userID uuid.UUID, query []float32, topK int) ([]domain.MemoryWithScore, error) {
	var out []domain.MemoryWithScore
	for _, m := range f.memories {
		if m.UserID == userID {
			out = append(out, domain.MemoryWithScore{
				VectorMemory: m,
				Score:        embedding.Cosine(query, m.Embedding),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

type fakeSink struct {
	delivered []*domain.RiskAlert
}

func (f *fakeSink) Deliver(ctx context.Context, user *domain.User, a *domain.RiskAlert) error {
	f.delivered = append(f.delivered, a)
	return nil
}

type fakeQueue struct {
	enqueued []uuid.UUID
}

func (f *fakeQueue) Enqueue(userID uuid.UUID) bool {
	f.enqueued = append(f.enqueued, userID)
	return true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
