package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/hearthside/companion/internal/domain"
	"github.com/hearthside/companion/internal/llm"
)

func ambiguousIntent(t domain.IntentType) domain.Intent {
	return domain.Intent{
		Type:            t,
		Confidence:      0.6,
		Ambiguous:       true,
		AmbiguityReason: "clarification needed",
	}
}

func TestResolver_RejectsNonAmbiguous(t *testing.T) {
	r := NewResolverService(&fakeMedStore{}, newFakeAliasStore(), llm.NewMockClient(), zap.NewNop())

	_, err := r.Resolve(context.Background(), newTestUser(), domain.Intent{Type: domain.IntentMealLogged}, "lunch")
	if !errors.Is(err, ErrNotAmbiguous) {
		t.Fatalf("expected ErrNotAmbiguous, got %v", err)
	}
}

func TestResolver_PronounAnswerMintsAlias(t *testing.T) {
	user := newTestUser()
	meds := &fakeMedStore{}
	_ = meds.Create(context.Background(), &domain.Medication{UserID: user.ID, Name: "Metformin"})
	aliases := newFakeAliasStore()

	mock := llm.NewMockClient()
	mock.ResolveIntentResponse = &domain.Resolution{
		Intent: domain.Intent{
			Type:       domain.IntentMedicationTaken,
			Entities:   map[string]string{"medication": "Metformin"},
			Confidence: 0.9,
		},
		ShouldCreateAlias: true,
		AliasMapping: &domain.AliasMapping{
			Alias:  "the morning one",
			Target: "Metformin",
			Kind:   domain.AliasKindMedication,
		},
	}
	r := NewResolverService(meds, aliases, mock, zap.NewNop())

	res, err := r.Resolve(context.Background(), user, ambiguousIntent(domain.IntentMedicationTaken), "The morning one")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !res.ShouldCreateAlias {
		t.Fatal("expected alias decision to survive")
	}
	if len(aliases.aliases) != 1 || aliases.aliases[0].Target != "Metformin" {
		t.Fatalf("expected stored alias for Metformin, got %+v", aliases.aliases)
	}
}

func TestResolver_MealTypeAnswerNeverMintsAlias(t *testing.T) {
	user := newTestUser()
	aliases := newFakeAliasStore()

	mock := llm.NewMockClient()
	mock.ResolveIntentResponse = &domain.Resolution{
		Intent: domain.Intent{
			Type:       domain.IntentMealLogged,
			Entities:   map[string]string{"meal_type": "lunch"},
			Confidence: 0.9,
		},
		// The model proposing an alias here is a policy violation; the
		// resolver must discard it.
		ShouldCreateAlias: true,
		AliasMapping: &domain.AliasMapping{
			Alias:  "lunch",
			Target: "lunch",
			Kind:   domain.AliasKindMeal,
		},
	}
	r := NewResolverService(&fakeMedStore{}, aliases, mock, zap.NewNop())

	res, err := r.Resolve(context.Background(), user, ambiguousIntent(domain.IntentMealLogged), "Lunch")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.ShouldCreateAlias {
		t.Fatal("meal-type answers must never mint aliases")
	}
	if len(aliases.aliases) != 0 {
		t.Fatalf("expected no stored aliases, got %+v", aliases.aliases)
	}
}

func TestResolver_SelfReferentialAliasRejected(t *testing.T) {
	user := newTestUser()
	meds := &fakeMedStore{}
	_ = meds.Create(context.Background(), &domain.Medication{UserID: user.ID, Name: "Metformin"})
	aliases := newFakeAliasStore()

	mock := llm.NewMockClient()
	mock.ResolveIntentResponse = &domain.Resolution{
		Intent: domain.Intent{
			Type:       domain.IntentMedicationTaken,
			Entities:   map[string]string{"medication": "Metformin"},
			Confidence: 0.9,
		},
		ShouldCreateAlias: true,
		AliasMapping: &domain.AliasMapping{
			Alias:  "metformin",
			Target: "Metformin",
			Kind:   domain.AliasKindMedication,
		},
	}
	r := NewResolverService(meds, aliases, mock, zap.NewNop())

	res, err := r.Resolve(context.Background(), user, ambiguousIntent(domain.IntentMedicationTaken), "Metformin")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.ShouldCreateAlias {
		t.Fatal("an alias equal to its target teaches nothing and must be rejected")
	}
}

func TestResolver_UnknownMedication(t *testing.T) {
	mock := llm.NewMockClient()
	mock.ResolveIntentResponse = &domain.Resolution{
		Intent: domain.Intent{
			Type:       domain.IntentMedicationTaken,
			Entities:   map[string]string{"medication": "Imaginarium"},
			Confidence: 0.9,
		},
	}
	r := NewResolverService(&fakeMedStore{}, newFakeAliasStore(), mock, zap.NewNop())

	_, err := r.Resolve(context.Background(), newTestUser(), ambiguousIntent(domain.IntentMedicationTaken), "the imaginarium")
	if !errors.Is(err, ErrUnknownMedication) {
		t.Fatalf("expected ErrUnknownMedication, got %v", err)
	}
}

func TestResolver_ModelFailure(t *testing.T) {
	mock := llm.NewMockClient()
	mock.ResolveIntentError = errors.New("model unavailable")
	r := NewResolverService(&fakeMedStore{}, newFakeAliasStore(), mock, zap.NewNop())

	_, err := r.Resolve(context.Background(), newTestUser(), ambiguousIntent(domain.IntentMealLogged), "lunch")
	if !errors.Is(err, ErrResolutionFailed) {
		t.Fatalf("expected ErrResolutionFailed, got %v", err)
	}
}
