package plan

import "fmt"

// DayCount is the fixed plan horizon.
const DayCount = 7

// Action is a single advisory step with its justification.
type Action struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// Plan is the 7-day energy saving plan. Day labels run "Day 1".."Day 7",
// each carrying at least one action. Produced exactly once per analysis and
// immutable afterwards.
type Plan struct {
	Summary                 string              `json:"summary"`
	EstimatedSavingsPercent float64             `json:"estimated_savings_percent"`
	ComfortImpact           string              `json:"comfort_impact"`
	DailyPlan               map[string][]Action `json:"daily_plan"`
	Degraded                bool                `json:"degraded"`
	DegradedReason          string              `json:"degraded_reason,omitempty"`
}

// DayLabel returns the canonical label for day n (1-based).
func DayLabel(n int) string {
	return fmt.Sprintf("Day %d", n)
}

// Valid reports whether the plan satisfies its structural invariants.
func (p *Plan) Valid() bool {
	if p.EstimatedSavingsPercent < 0 || p.EstimatedSavingsPercent > 100 {
		return false
	}
	switch p.ComfortImpact {
	case "low", "medium", "high":
	default:
		return false
	}
	if len(p.DailyPlan) != DayCount {
		return false
	}
	for day := 1; day <= DayCount; day++ {
		actions, ok := p.DailyPlan[DayLabel(day)]
		if !ok || len(actions) == 0 {
			return false
		}
	}
	return true
}
