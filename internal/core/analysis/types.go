package analysis

import (
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/forecast"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/insights"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/plan"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/profile"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/risk"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/timeseries"
)

// State is the lifecycle of one analysis run. Transitions are strictly
// forward; Failed and Cancelled are terminal.
type State string

const (
	StatePending      State = "pending"
	StateFanningOut   State = "fanning_out"
	StateAggregating  State = "aggregating"
	StateSynthesizing State = "synthesizing"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
	StateCancelled    State = "cancelled"
)

// Stage names reported over progress notifications, matching the
// engine's fan-out graph.
const (
	StageNormalize       = "normalize"
	StageUserContext     = "user_context"
	StageMergeWeather    = "merge_csv_weather"
	StageForecastWeather = "weather_forecasted"
	StageInsights        = "consumption_insight"
	StageForecast        = "model_forecasted"
	StageForecastInsight = "forecast_insight"
	StageRisk            = "energy_risk"
	StageAdvisor         = "energy_advisor"
)

// Request is one analysis submission: the raw dataset rows plus the
// six-question lifestyle questionnaire. AnalysisID is optional; the engine
// generates one when callers have not already allocated an identifier.
type Request struct {
	AnalysisID string
	SessionID  string
	Rows       []timeseries.RawRow
	Answers    profile.Answers
}

// Result is the complete immutable output of a finished analysis.
type Result struct {
	AnalysisID          string                  `json:"analysis_id"`
	SessionID           string                  `json:"session_id"`
	CreatedAt           time.Time               `json:"created_at"`
	UserProfile         profile.Profile         `json:"user_profile"`
	ConsumptionInsights insights.Insights       `json:"consumption_insights"`
	RiskReport          risk.Report             `json:"risk_report"`
	ForecastAnalysis    forecast.Analysis       `json:"forecast_analysis"`
	SevenDayEnergyPlan  plan.Plan               `json:"seven_day_energy_plan"`
	ForecastData        []forecast.Point        `json:"forecast_data"`
	DegradedSections    []string                `json:"degraded_sections,omitempty"`
	Diagnostics         timeseries.Diagnostics  `json:"diagnostics"`
}

// Degraded reports whether any section was produced by a fallback path.
func (r *Result) Degraded() bool {
	return len(r.DegradedSections) > 0
}

// Notifier receives progress events during a run. Implementations must be
// non-blocking; the orchestrator calls them inline.
type Notifier interface {
	StateChanged(analysisID string, state State)
	StageStarted(analysisID, stage string)
	StageCompleted(analysisID, stage string, degraded bool)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) StateChanged(string, State)          {}
func (NopNotifier) StageStarted(string, string)         {}
func (NopNotifier) StageCompleted(string, string, bool) {}
