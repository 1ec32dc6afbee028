package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hearthside/companion/internal/domain"
	"github.com/hearthside/companion/internal/store"
)

// ParserService maps one free-text utterance to a typed intent. It never
// fails upward: any model or storage problem degrades to an unknown intent so
// the fallback reply path still has something to work with.
type ParserService struct {
	medStore      domain.MedicationStore
	aliasStore    domain.AliasStore
	baselineStore domain.BaselineStore
	llm           domain.LLMClient
	logger        *zap.Logger
}

func NewParserService(ms domain.MedicationStore, as domain.AliasStore, bs domain.BaselineStore, llm domain.LLMClient, logger *zap.Logger) *ParserService {
	return &ParserService{
		medStore:      ms,
		aliasStore:    as,
		baselineStore: bs,
		llm:           llm,
		logger:        logger,
	}
}

// buildContext gathers the read-only user context the model is constrained
// by. Partial failures leave gaps rather than aborting the parse.
func (s *ParserService) buildContext(ctx context.Context, userID uuid.UUID) domain.ParseContext {
	var pctx domain.ParseContext

	meds, err := s.medStore.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Warn("parser: list medications failed", zap.Error(err))
	}
	for _, m := range meds {
		pctx.MedicationNames = append(pctx.MedicationNames, m.Name)
	}

	aliases, err := s.aliasStore.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Warn("parser: list aliases failed", zap.Error(err))
	}
	pctx.Aliases = aliases

	baseline, err := s.baselineStore.Get(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("parser: load baseline failed", zap.Error(err))
	}
	if baseline != nil {
		for name := range baseline.ActivityFrequency {
			pctx.ActivityNames = append(pctx.ActivityNames, name)
		}
	}

	return pctx
}

// Parse interprets the utterance. The returned intent always satisfies the
// ambiguity invariants: a non-mutating intent is never ambiguous, and an
// ambiguous one always carries a reason and has a follow-up question.
func (s *ParserService) Parse(ctx context.Context, user *domain.User, utterance string) domain.Intent {
	pctx := s.buildContext(ctx, user.ID)

	intent, err := s.llm.ParseIntent(ctx, utterance, pctx)
	if err != nil {
		s.logger.Warn("parser: model parse failed, degrading to unknown",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return domain.UnknownIntent()
	}

	out := *intent
	s.enforceAmbiguityPolicy(&out)
	s.trackAliasUsage(ctx, user.ID, utterance, &out, pctx.Aliases)
	return out
}

// enforceAmbiguityPolicy applies the rules the model is not trusted with:
// disambiguation is reserved for mutating intents, and an ambiguous intent
// must have a deterministic follow-up question to ask.
func (s *ParserService) enforceAmbiguityPolicy(intent *domain.Intent) {
	if !intent.Type.Mutating() {
		intent.Ambiguous = false
		intent.AmbiguityReason = ""
		return
	}
	if intent.Ambiguous {
		if _, ok := domain.FollowUpQuestion(intent.Type); !ok {
			intent.Ambiguous = false
			intent.AmbiguityReason = ""
		}
	}
}

// trackAliasUsage bumps the usage count of any learned shorthand the
// utterance leaned on. Best effort.
func (s *ParserService) trackAliasUsage(ctx context.Context, userID uuid.UUID, utterance string, intent *domain.Intent, aliases []domain.Alias) {
	if intent.Ambiguous || len(aliases) == 0 {
		return
	}
	lower := strings.ToLower(utterance)
	for _, a := range aliases {
		if !strings.Contains(lower, a.Alias) {
			continue
		}
		for _, v := range intent.Entities {
			if strings.EqualFold(v, a.Target) {
				if err := s.aliasStore.IncrementUsage(ctx, userID, a.Alias); err != nil && !errors.Is(err, store.ErrNotFound) {
					s.logger.Warn("parser: increment alias usage failed", zap.Error(err))
				}
				return
			}
		}
	}
}
