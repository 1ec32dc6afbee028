package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func finding(severity DriftSeverity) DriftFinding {
	return DriftFinding{
		Category:    DriftMealTiming,
		Severity:    severity,
		Description: "test finding",
	}
}

func TestScoreFindings(t *testing.T) {
	tests := []struct {
		name     string
		findings []DriftFinding
		want     int
	}{
		{"no findings", nil, 100},
		{"one low", []DriftFinding{finding(DriftLow)}, 95},
		{"one medium", []DriftFinding{finding(DriftMedium)}, 90},
		{"one high", []DriftFinding{finding(DriftHigh)}, 80},
		{"three medium", []DriftFinding{finding(DriftMedium), finding(DriftMedium), finding(DriftMedium)}, 70},
		{"mixed", []DriftFinding{finding(DriftHigh), finding(DriftMedium), finding(DriftLow)}, 65},
		{"floors at zero", []DriftFinding{
			finding(DriftHigh), finding(DriftHigh), finding(DriftHigh),
			finding(DriftHigh), finding(DriftHigh), finding(DriftHigh),
		}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreFindings(tt.findings))
		})
	}
}

func TestClassifyFindings(t *testing.T) {
	tests := []struct {
		name     string
		findings []DriftFinding
		want     TwinStatus
	}{
		{"no findings is routine", nil, TwinRoutine},
		{"one low finding is drift", []DriftFinding{finding(DriftLow)}, TwinDrift},
		{"any high finding is concern", []DriftFinding{finding(DriftHigh)}, TwinConcern},
		// Three mediums score 70: in the drift band, not concern.
		{"three medium is drift", []DriftFinding{finding(DriftMedium), finding(DriftMedium), finding(DriftMedium)}, TwinDrift},
		// Score below 60 forces concern even with no single high finding.
		{"many mediums is concern", []DriftFinding{
			finding(DriftMedium), finding(DriftMedium), finding(DriftMedium),
			finding(DriftMedium), finding(DriftMedium),
		}, TwinConcern},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFindings(tt.findings))
		})
	}
}

func TestSortFindings_SeverityFirst(t *testing.T) {
	findings := []DriftFinding{finding(DriftLow), finding(DriftHigh), finding(DriftMedium)}
	SortFindings(findings)

	assert.Equal(t, DriftHigh, findings[0].Severity)
	assert.Equal(t, DriftMedium, findings[1].Severity)
	assert.Equal(t, DriftLow, findings[2].Severity)
}

func TestRiskLevel_Escalate(t *testing.T) {
	assert.Equal(t, RiskMedium, RiskLow.Escalate(RiskMedium))
	assert.Equal(t, RiskHigh, RiskMedium.Escalate(RiskHigh))
	// Never de-escalates.
	assert.Equal(t, RiskHigh, RiskHigh.Escalate(RiskLow))
	assert.Equal(t, RiskMedium, RiskMedium.Escalate(RiskLow))
}
