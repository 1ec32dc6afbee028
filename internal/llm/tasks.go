package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hearthside/companion/internal/domain"
)

type completeOpts struct {
	temperature float32
	jsonMode    bool
}

// completer is the single low-level operation each provider implements.
type completer interface {
	complete(ctx context.Context, prompt string, opts completeOpts) (string, error)
}

// tasks implements domain.LLMClient on top of a completer, so every provider
// shares one set of prompts and decoders.
type tasks struct {
	c completer
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

func aliasLines(aliases []domain.Alias) string {
	if len(aliases) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for i, a := range aliases {
		if i > 0 {
			sb.WriteString("; ")
		}
		fmt.Fprintf(&sb, "%s = %s", a.Alias, a.Target)
	}
	return sb.String()
}

func (t tasks) ParseIntent(ctx context.Context, utterance string, pctx domain.ParseContext) (*domain.Intent, error) {
	prompt := fmt.Sprintf(parseIntentPrompt,
		joinOrNone(pctx.MedicationNames),
		aliasLines(pctx.Aliases),
		joinOrNone(pctx.ActivityNames),
		utterance,
	)

	raw, err := t.c.complete(ctx, prompt, completeOpts{temperature: 0.1, jsonMode: true})
	if err != nil {
		return nil, fmt.Errorf("parse intent: %w", err)
	}
	return decodeIntent(raw)
}

func (t tasks) ResolveIntent(ctx context.Context, original domain.Intent, followUp string, pctx domain.ParseContext) (*domain.Resolution, error) {
	origJSON, err := json.Marshal(original)
	if err != nil {
		return nil, fmt.Errorf("encode original intent: %w", err)
	}

	prompt := fmt.Sprintf(resolveIntentPrompt,
		string(origJSON),
		followUp,
		joinOrNone(pctx.MedicationNames),
		aliasLines(pctx.Aliases),
	)

	raw, err := t.c.complete(ctx, prompt, completeOpts{temperature: 0.1, jsonMode: true})
	if err != nil {
		return nil, fmt.Errorf("resolve intent: %w", err)
	}
	return decodeResolution(raw)
}

func (t tasks) ClassifyHealthTopic(ctx context.Context, utterance string) (bool, error) {
	raw, err := t.c.complete(ctx, fmt.Sprintf(topicGatePrompt, utterance), completeOpts{temperature: 0})
	if err != nil {
		return false, fmt.Errorf("classify topic: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(raw)) == "true", nil
}

func (t tasks) Translate(ctx context.Context, text, language string) (string, error) {
	raw, err := t.c.complete(ctx, fmt.Sprintf(translatePrompt, language, text), completeOpts{temperature: 0.2})
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

func (t tasks) Answer(ctx context.Context, question string, snapshot domain.ContextSnapshot, language string) (string, error) {
	var meds []string
	for _, e := range snapshot.Medications {
		status := "not yet taken"
		if e.Taken {
			status = "taken"
		}
		meds = append(meds, fmt.Sprintf("%s at %s (%s)", e.MedicationName, e.TimeOfDay, status))
	}

	var meals []string
	for _, m := range snapshot.Meals {
		meals = append(meals, fmt.Sprintf("%s at %s", m.MealType, m.LoggedAt.Format("15:04")))
	}

	var symptoms []string
	for _, s := range snapshot.Symptoms {
		symptoms = append(symptoms, fmt.Sprintf("%s (severity %d)", s.Name, s.Severity))
	}

	var activities []string
	for _, a := range snapshot.Activities {
		activities = append(activities, a.Name)
	}

	baseline := "(not learned yet)"
	if snapshot.Baseline != nil {
		if b, err := json.Marshal(snapshot.Baseline.MealWindows); err == nil {
			baseline = fmt.Sprintf("meal windows %s, adherence %.0f%%", b, snapshot.Baseline.AdherenceRate*100)
		}
	}

	pin := ""
	if language != "" {
		pin = fmt.Sprintf(languagePin, language)
	}

	prompt := fmt.Sprintf(answerPrompt,
		joinOrNone(meds),
		joinOrNone(meals),
		joinOrNone(symptoms),
		joinOrNone(activities),
		baseline,
		joinOrNone(snapshot.Passages),
		pin,
		question,
	)

	raw, err := t.c.complete(ctx, prompt, completeOpts{temperature: 0.6})
	if err != nil {
		return "", fmt.Errorf("answer: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

func (t tasks) ExplainRisk(ctx context.Context, level domain.RiskLevel, summary domain.RiskSummary) (*domain.RiskNarrative, error) {
	prompt := fmt.Sprintf(riskExplainPrompt,
		level,
		"- "+strings.Join(summary.Triggers, "\n- "),
		summary.SymptomCount,
		summary.MissedDoses,
		summary.MealsLogged,
		summary.AdherenceRate*100,
	)

	raw, err := t.c.complete(ctx, prompt, completeOpts{temperature: 0.3, jsonMode: true})
	if err != nil {
		return nil, fmt.Errorf("explain risk: %w", err)
	}
	return decodeNarrative(raw)
}
