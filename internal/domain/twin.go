package domain

import "sort"

type DriftCategory string

const (
	DriftMealTiming     DriftCategory = "meal_timing"
	DriftMedAdherence   DriftCategory = "medication_adherence"
	DriftSymptomPattern DriftCategory = "symptom_recurrence"
)

type DriftSeverity string

const (
	DriftLow    DriftSeverity = "low"
	DriftMedium DriftSeverity = "medium"
	DriftHigh   DriftSeverity = "high"
)

// ScorePenalty is the routine-score deduction one finding of this severity
// costs.
func (s DriftSeverity) ScorePenalty() int {
	switch s {
	case DriftHigh:
		return 20
	case DriftMedium:
		return 10
	case DriftLow:
		return 5
	}
	return 0
}

func (s DriftSeverity) rank() int {
	switch s {
	case DriftHigh:
		return 3
	case DriftMedium:
		return 2
	case DriftLow:
		return 1
	}
	return 0
}

// DriftFinding is one detected deviation from baseline. Recomputed fresh on
// every check, never persisted.
type DriftFinding struct {
	Category      DriftCategory `json:"category"`
	Severity      DriftSeverity `json:"severity"`
	Description   string        `json:"description"`
	BaselineValue string        `json:"baseline_value,omitempty"`
	ObservedValue string        `json:"observed_value,omitempty"`
}

type TwinStatus string

const (
	TwinRoutine TwinStatus = "routine"
	TwinDrift   TwinStatus = "drift"
	TwinConcern TwinStatus = "concern"
)

// TwinState is the aggregate routine assessment: a derived value, ephemeral
// unless the caller chooses to log it.
type TwinState struct {
	Status   TwinStatus     `json:"status"`
	Score    int            `json:"score"`
	Headline string         `json:"headline"`
	Reasons  []DriftFinding `json:"reasons"`
}

// ScoreFindings deducts each finding's penalty from 100, flooring at 0.
func ScoreFindings(findings []DriftFinding) int {
	score := 100
	for _, f := range findings {
		score -= f.Severity.ScorePenalty()
	}
	if score < 0 {
		score = 0
	}
	return score
}

// ClassifyFindings is the pure findings → state function. Thresholds are
// strictly ordered: any high-severity finding or a score under 60 is concern,
// a score under 85 (or any finding at all) is drift, otherwise routine.
// The result does not depend on finding order.
func ClassifyFindings(findings []DriftFinding) TwinStatus {
	score := ScoreFindings(findings)
	for _, f := range findings {
		if f.Severity == DriftHigh {
			return TwinConcern
		}
	}
	if score < 60 {
		return TwinConcern
	}
	if score < 85 || len(findings) > 0 {
		return TwinDrift
	}
	return TwinRoutine
}

// SortFindings orders findings most-severe-first for display. Classification
// never depends on this ordering.
func SortFindings(findings []DriftFinding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.rank() > findings[j].Severity.rank()
	})
}
