package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hearthside/companion/internal/domain"
	"github.com/hearthside/companion/internal/store"
)

var (
	ErrNotAmbiguous      = errors.New("intent is not ambiguous")
	ErrUnknownMedication = errors.New("medication not found for user")
	ErrResolutionFailed  = errors.New("could not resolve intent")
)

// ResolverService turns an ambiguous intent plus the user's clarifying answer
// into a fully resolved intent, and is the only component allowed to mint
// aliases.
type ResolverService struct {
	medStore   domain.MedicationStore
	aliasStore domain.AliasStore
	llm        domain.LLMClient
	logger     *zap.Logger
}

func NewResolverService(ms domain.MedicationStore, as domain.AliasStore, llm domain.LLMClient, logger *zap.Logger) *ResolverService {
	return &ResolverService{medStore: ms, aliasStore: as, llm: llm, logger: logger}
}

func (s *ResolverService) Resolve(ctx context.Context, user *domain.User, original domain.Intent, followUp string) (*domain.Resolution, error) {
	if !original.Ambiguous {
		return nil, ErrNotAmbiguous
	}

	pctx := domain.ParseContext{}
	meds, err := s.medStore.ListByUser(ctx, user.ID)
	if err != nil {
		s.logger.Warn("resolver: list medications failed", zap.Error(err))
	}
	for _, m := range meds {
		pctx.MedicationNames = append(pctx.MedicationNames, m.Name)
	}
	aliases, err := s.aliasStore.ListByUser(ctx, user.ID)
	if err != nil {
		s.logger.Warn("resolver: list aliases failed", zap.Error(err))
	}
	pctx.Aliases = aliases

	res, err := s.llm.ResolveIntent(ctx, original, followUp, pctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrResolutionFailed, err)
	}

	out := *res
	s.enforceAliasPolicy(&out, original, followUp)

	// A resolved medication must actually exist for the user; a made-up name
	// becomes a clarifying response upstream, not a silent write.
	if name, ok := out.Intent.Entities["medication"]; ok && name != "" {
		if _, err := s.medStore.GetByName(ctx, user.ID, name); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrUnknownMedication, name)
			}
			return nil, err
		}
	}

	if out.ShouldCreateAlias && out.AliasMapping != nil {
		alias := &domain.Alias{
			UserID: user.ID,
			Alias:  out.AliasMapping.Alias,
			Target: out.AliasMapping.Target,
			Kind:   out.AliasMapping.Kind,
		}
		if err := s.aliasStore.Upsert(ctx, alias); err != nil {
			// Losing an alias is not worth failing the resolution.
			s.logger.Warn("resolver: alias upsert failed", zap.Error(err))
			out.ShouldCreateAlias = false
			out.AliasMapping = nil
		}
	}

	return &out, nil
}

// enforceAliasPolicy overrides the model's alias decision where the policy is
// firm: a plain category answer (a meal type, a bare severity) is a one-off,
// never a learnable shorthand. Only an original pronoun or category phrase
// resolving to a concrete named entity qualifies.
func (s *ResolverService) enforceAliasPolicy(res *domain.Resolution, original domain.Intent, followUp string) {
	if !res.ShouldCreateAlias || res.AliasMapping == nil {
		res.ShouldCreateAlias = false
		res.AliasMapping = nil
		return
	}

	answer := strings.ToLower(strings.TrimSpace(followUp))

	// Meal-type clarifications never mint aliases.
	if original.Type == domain.IntentMealLogged || domain.ValidMealType(answer) {
		res.ShouldCreateAlias = false
		res.AliasMapping = nil
		return
	}

	// The shorthand must differ from the thing it names, otherwise nothing
	// was learned.
	if strings.EqualFold(res.AliasMapping.Alias, res.AliasMapping.Target) {
		res.ShouldCreateAlias = false
		res.AliasMapping = nil
	}
}
