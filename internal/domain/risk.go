package domain

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (l RiskLevel) rank() int {
	switch l {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	}
	return 0
}

// Escalate returns the higher of the two levels. Risk level is a monotone max
// across checks within one assessment: it can rise, never fall.
func (l RiskLevel) Escalate(other RiskLevel) RiskLevel {
	if other.rank() > l.rank() {
		return other
	}
	return l
}

func ValidRiskLevel(l string) bool {
	switch RiskLevel(l) {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// RiskAssessment is the aggregate safety assessment for one evaluation pass.
// The numeric fields (Level, ShouldAlert, AlertCaregiver) are computed by the
// rule phases and are authoritative; the prose fields are display-only
// narration and never override them.
type RiskAssessment struct {
	Level          RiskLevel `json:"level"`
	Title          string    `json:"title"`
	Unusual        string    `json:"unusual"`
	WhyItMatters   string    `json:"why_it_matters"`
	Action         string    `json:"action"`
	Triggers       []string  `json:"triggers"`
	ShouldAlert    bool      `json:"should_alert"`
	AlertCaregiver bool      `json:"alert_caregiver"`
}
