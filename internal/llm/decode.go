package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hearthside/companion/internal/domain"
)

// stripFences removes markdown code fences models sometimes wrap around JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

type intentPayload struct {
	Type            string            `json:"type"`
	Entities        map[string]string `json:"entities"`
	Confidence      float64           `json:"confidence"`
	Ambiguous       bool              `json:"ambiguous"`
	AmbiguityReason string            `json:"ambiguity_reason"`
}

type resolutionPayload struct {
	Intent            intentPayload `json:"intent"`
	ShouldCreateAlias bool          `json:"should_create_alias"`
	AliasMapping      *struct {
		Alias  string `json:"alias"`
		Target string `json:"target"`
		Kind   string `json:"kind"`
	} `json:"alias_mapping"`
}

func (p *intentPayload) toIntent() (*domain.Intent, error) {
	if !domain.ValidIntentType(p.Type) {
		return nil, fmt.Errorf("invalid intent type %q", p.Type)
	}

	conf := p.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	reason := strings.TrimSpace(p.AmbiguityReason)
	if p.Ambiguous && reason == "" {
		reason = "clarification needed"
	}
	if !p.Ambiguous {
		reason = ""
	}

	return &domain.Intent{
		Type:            domain.IntentType(p.Type),
		Entities:        p.Entities,
		Confidence:      float32(conf),
		Ambiguous:       p.Ambiguous,
		AmbiguityReason: reason,
	}, nil
}

// decodeIntent is the schema-validated decode of a parse response. It returns
// an error for anything off-shape; callers map that to an unknown intent.
func decodeIntent(raw string) (*domain.Intent, error) {
	var p intentPayload
	if err := json.Unmarshal([]byte(stripFences(raw)), &p); err != nil {
		return nil, fmt.Errorf("parse intent payload: %w (raw: %s)", err, raw)
	}
	return p.toIntent()
}

func decodeResolution(raw string) (*domain.Resolution, error) {
	var p resolutionPayload
	if err := json.Unmarshal([]byte(stripFences(raw)), &p); err != nil {
		return nil, fmt.Errorf("parse resolution payload: %w (raw: %s)", err, raw)
	}

	intent, err := p.Intent.toIntent()
	if err != nil {
		return nil, err
	}

	res := &domain.Resolution{Intent: *intent}

	// An alias decision without a usable mapping is discarded rather than
	// trusted.
	if p.ShouldCreateAlias && p.AliasMapping != nil {
		alias := strings.TrimSpace(strings.ToLower(p.AliasMapping.Alias))
		target := strings.TrimSpace(p.AliasMapping.Target)
		if alias != "" && target != "" && domain.ValidAliasKind(p.AliasMapping.Kind) {
			res.ShouldCreateAlias = true
			res.AliasMapping = &domain.AliasMapping{
				Alias:  alias,
				Target: target,
				Kind:   domain.AliasKind(p.AliasMapping.Kind),
			}
		}
	}

	return res, nil
}

func decodeNarrative(raw string) (*domain.RiskNarrative, error) {
	var n domain.RiskNarrative
	if err := json.Unmarshal([]byte(stripFences(raw)), &n); err != nil {
		return nil, fmt.Errorf("parse risk narrative: %w (raw: %s)", err, raw)
	}
	if strings.TrimSpace(n.Title) == "" {
		return nil, fmt.Errorf("risk narrative missing title (raw: %s)", raw)
	}
	return &n, nil
}
