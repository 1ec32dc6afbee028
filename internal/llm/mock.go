package llm

import (
	"context"

	"github.com/hearthside/companion/internal/domain"
)

// MockClient is a configurable LLM client for tests and keyless development.
// Set the response fields to control what each method returns.
type MockClient struct {
	ParseIntentResponse   *domain.Intent
	ParseIntentError      error
	ResolveIntentResponse *domain.Resolution
	ResolveIntentError    error
	ClassifyTopicResponse bool
	ClassifyTopicError    error
	TranslateResponse     string
	TranslateError        error
	AnswerResponse        string
	AnswerError           error
	ExplainRiskResponse   *domain.RiskNarrative
	ExplainRiskError      error

	// Call tracking for assertions
	ParseIntentCalls   []string
	ResolveIntentCalls []string
	ClassifyTopicCalls []string
	TranslateCalls     []string
	AnswerCalls        []string
	ExplainRiskCalls   []domain.RiskLevel
}

func NewMockClient() *MockClient {
	return &MockClient{
		ParseIntentResponse: &domain.Intent{
			Type:       domain.IntentQuestion,
			Confidence: 0.9,
		},
		ResolveIntentResponse: &domain.Resolution{
			Intent: domain.Intent{Type: domain.IntentUnknown},
		},
		ClassifyTopicResponse: true,
		TranslateResponse:     "mock translation",
		AnswerResponse:        "Here to help.",
		ExplainRiskResponse: &domain.RiskNarrative{
			Title:        "Something looks different today",
			Unusual:      "Mock unusual",
			WhyItMatters: "Mock why",
			Action:       "Mock action",
		},
	}
}

// CompletionCalls counts every method invocation that would have cost a real
// completion.
func (m *MockClient) CompletionCalls() int {
	return len(m.ParseIntentCalls) + len(m.ResolveIntentCalls) +
		len(m.ClassifyTopicCalls) + len(m.TranslateCalls) +
		len(m.AnswerCalls) + len(m.ExplainRiskCalls)
}

func (m *MockClient) ParseIntent(ctx context.Context, utterance string, pctx domain.ParseContext) (*domain.Intent, error) {
	m.ParseIntentCalls = append(m.ParseIntentCalls, utterance)
	if m.ParseIntentError != nil {
		return nil, m.ParseIntentError
	}
	out := *m.ParseIntentResponse
	return &out, nil
}

func (m *MockClient) ResolveIntent(ctx context.Context, original domain.Intent, followUp string, pctx domain.ParseContext) (*domain.Resolution, error) {
	m.ResolveIntentCalls = append(m.ResolveIntentCalls, followUp)
	if m.ResolveIntentError != nil {
		return nil, m.ResolveIntentError
	}
	out := *m.ResolveIntentResponse
	return &out, nil
}

func (m *MockClient) ClassifyHealthTopic(ctx context.Context, utterance string) (bool, error) {
	m.ClassifyTopicCalls = append(m.ClassifyTopicCalls, utterance)
	if m.ClassifyTopicError != nil {
		return false, m.ClassifyTopicError
	}
	return m.ClassifyTopicResponse, nil
}

func (m *MockClient) Translate(ctx context.Context, text, language string) (string, error) {
	m.TranslateCalls = append(m.TranslateCalls, text)
	if m.TranslateError != nil {
		return "", m.TranslateError
	}
	return m.TranslateResponse, nil
}

func (m *MockClient) Answer(ctx context.Context, question string, snapshot domain.ContextSnapshot, language string) (string, error) {
	m.AnswerCalls = append(m.AnswerCalls, question)
	if m.AnswerError != nil {
		return "", m.AnswerError
	}
	return m.AnswerResponse, nil
}

func (m *MockClient) ExplainRisk(ctx context.Context, level domain.RiskLevel, summary domain.RiskSummary) (*domain.RiskNarrative, error) {
	m.ExplainRiskCalls = append(m.ExplainRiskCalls, level)
	if m.ExplainRiskError != nil {
		return nil, m.ExplainRiskError
	}
	out := *m.ExplainRiskResponse
	return &out, nil
}
