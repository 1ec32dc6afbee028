package llm

import (
	"testing"

	"github.com/hearthside/companion/internal/domain"
)

func TestDecodeIntent_PlainJSON(t *testing.T) {
	raw := `{"type":"medication_taken","entities":{"medication":"Metformin"},"confidence":0.92,"ambiguous":false}`

	intent, err := decodeIntent(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if intent.Type != domain.IntentMedicationTaken {
		t.Fatalf("expected medication_taken, got %s", intent.Type)
	}
	if intent.Entities["medication"] != "Metformin" {
		t.Fatalf("expected Metformin entity, got %+v", intent.Entities)
	}
}

func TestDecodeIntent_StripsFences(t *testing.T) {
	raw := "```json\n{\"type\":\"question\",\"confidence\":0.8,\"ambiguous\":false}\n```"

	intent, err := decodeIntent(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if intent.Type != domain.IntentQuestion {
		t.Fatalf("expected question, got %s", intent.Type)
	}
}

func TestDecodeIntent_InvalidTypeRejected(t *testing.T) {
	raw := `{"type":"made_up_intent","confidence":0.9,"ambiguous":false}`
	if _, err := decodeIntent(raw); err == nil {
		t.Fatal("expected an error for an invented intent type")
	}
}

func TestDecodeIntent_ConfidenceClamped(t *testing.T) {
	intent, err := decodeIntent(`{"type":"question","confidence":3.5,"ambiguous":false}`)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if intent.Confidence != 1 {
		t.Fatalf("expected clamped confidence 1, got %f", intent.Confidence)
	}
}

func TestDecodeIntent_AmbiguousAlwaysHasReason(t *testing.T) {
	intent, err := decodeIntent(`{"type":"meal_logged","confidence":0.7,"ambiguous":true}`)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if intent.AmbiguityReason == "" {
		t.Fatal("ambiguous intent must carry a reason even when the model omits one")
	}
}

func TestDecodeIntent_Garbage(t *testing.T) {
	if _, err := decodeIntent("I think they took their medication"); err == nil {
		t.Fatal("expected an error for prose output")
	}
}

func TestDecodeResolution_DiscardsBadAliasDecision(t *testing.T) {
	raw := `{
		"intent": {"type":"medication_taken","entities":{"medication":"Metformin"},"confidence":0.9,"ambiguous":false},
		"should_create_alias": true,
		"alias_mapping": {"alias":"","target":"Metformin","kind":"medication"}
	}`

	res, err := decodeResolution(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.ShouldCreateAlias {
		t.Fatal("an alias decision without a usable mapping must be discarded")
	}
}

func TestDecodeResolution_NormalizesAlias(t *testing.T) {
	raw := `{
		"intent": {"type":"medication_taken","entities":{"medication":"Metformin"},"confidence":0.9,"ambiguous":false},
		"should_create_alias": true,
		"alias_mapping": {"alias":"  The Morning One ","target":"Metformin","kind":"medication"}
	}`

	res, err := decodeResolution(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !res.ShouldCreateAlias {
		t.Fatal("expected the alias decision to survive")
	}
	if res.AliasMapping.Alias != "the morning one" {
		t.Fatalf("expected lowercased trimmed alias, got %q", res.AliasMapping.Alias)
	}
}

func TestDecodeNarrative_RequiresTitle(t *testing.T) {
	if _, err := decodeNarrative(`{"unusual":"x","why_it_matters":"y","action":"z"}`); err == nil {
		t.Fatal("expected an error for a titleless narrative")
	}

	n, err := decodeNarrative(`{"title":"Heads up","unusual":"x","why_it_matters":"y","action":"z"}`)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n.Title != "Heads up" {
		t.Fatalf("unexpected title %q", n.Title)
	}
}
