package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/forecast"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/insights"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/profile"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/risk"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/llm"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Synthesizer combines the four fan-in artifacts into the 7-day plan,
// consulting the language service with bounded retries and degrading to a
// deterministic template on persistent failure. It never blocks
// indefinitely: each attempt runs under the configured timeout.
type Synthesizer struct {
	client     llm.Client
	maxRetries int
	timeout    time.Duration
	backoff    time.Duration
	logger     *logrus.Logger
}

// NewSynthesizer creates a plan synthesizer.
func NewSynthesizer(client llm.Client, maxRetries int, timeout time.Duration, logger *logrus.Logger) *Synthesizer {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Synthesizer{
		client:     client,
		maxRetries: maxRetries,
		timeout:    timeout,
		backoff:    2 * time.Second,
		logger:     logger,
	}
}

// Synthesize produces the plan from the barrier artifacts.
func (s *Synthesizer) Synthesize(ctx context.Context, prof profile.Profile, ins insights.Insights, report risk.Report, analysis forecast.Analysis) (*Plan, error) {
	prompt := buildPrompt(prof, ins, report, analysis)

	var lastErr error
	attempts := 1 + s.maxRetries
	for attempt := 0; attempt < attempts && s.client != nil; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				attempt = attempts
				continue
			case <-time.After(s.backoff << (attempt - 1)):
			}
		}

		p, err := s.requestPlan(ctx, prompt)
		if err == nil {
			return p, nil
		}
		lastErr = err
		s.logger.WithError(err).WithField("attempt", attempt+1).Warn("Plan generation attempt failed")

		if ctx.Err() != nil || !llm.IsRetryable(err) {
			break
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if lastErr != nil {
		s.logger.WithError(lastErr).Warn("Language service exhausted, falling back to rule-based plan")
	}
	fallback := s.fallbackPlan(prof, report)
	return fallback, nil
}

func (s *Synthesizer) requestPlan(ctx context.Context, prompt string) (*Plan, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.client.Complete(callCtx, prompt, llm.CompletionOptions{
		SystemPrompt: "You are an AI Energy Advisor. Always respond with valid JSON only.",
		Temperature:  0.7,
	})
	if err != nil {
		return nil, err
	}

	return parsePlan(text)
}

// rawPlan tolerates the legacy "7_day_plan" key some model checkpoints
// still emit; the engine standardizes on daily_plan.
type rawPlan struct {
	Summary                 string              `json:"summary"`
	EstimatedSavingsPercent float64             `json:"estimated_savings_percent"`
	ComfortImpact           string              `json:"comfort_impact"`
	DailyPlan               map[string][]Action `json:"daily_plan"`
	LegacyDailyPlan         map[string][]Action `json:"7_day_plan"`
}

func parsePlan(text string) (*Plan, error) {
	var raw rawPlan
	if err := json.Unmarshal([]byte(llm.StripJSONFences(text)), &raw); err != nil {
		return nil, &llm.ProviderError{Provider: "openai-compat", Type: "parse_error", Message: "plan response was not valid JSON", Underlying: err, Retryable: true}
	}

	daily := raw.DailyPlan
	if len(daily) == 0 {
		daily = raw.LegacyDailyPlan
	}

	p := &Plan{
		Summary:                 raw.Summary,
		EstimatedSavingsPercent: clamp(raw.EstimatedSavingsPercent, 0, 100),
		ComfortImpact:           normalizeComfort(raw.ComfortImpact),
		DailyPlan:               daily,
	}

	// Structurally broken plans violate the stage's output invariant but are
	// still worth re-prompting for.
	if !p.Valid() {
		return nil, &llm.ProviderError{
			Provider: "openai-compat", Type: "schema", Message: "plan response missing required days or actions", Retryable: true,
			Underlying: &errors.ValidationError{
				Stage:   "energy_advisor",
				Message: "daily plan must cover all seven days with at least one action each",
			},
		}
	}
	return p, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func normalizeComfort(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "low":
		return "low"
	case "medium", "moderate":
		return "medium"
	case "high":
		return "high"
	default:
		return "medium"
	}
}

func buildPrompt(prof profile.Profile, ins insights.Insights, report risk.Report, analysis forecast.Analysis) string {
	profileJSON, _ := json.MarshalIndent(prof, "", "  ")
	insightsJSON, _ := json.MarshalIndent(ins, "", "  ")
	riskJSON, _ := json.MarshalIndent(report, "", "  ")

	var sb strings.Builder
	sb.WriteString(`You are an AI Energy Advisor.

Your role:
Provide a polite, supportive, and advisory 7-day energy-saving plan
that helps the user reduce electricity costs while maintaining comfort.

Tone & Style Guidelines:
- Be respectful and encouraging
- Use advisory language (e.g., "it is recommended", "you may consider")
- Clearly explain the benefit of each action
- Do NOT suggest extreme or uncomfortable changes

---

### User Lifestyle Profile
`)
	sb.Write(profileJSON)
	sb.WriteString("\n\n---\n\n### Electricity Consumption Insights\n")
	sb.Write(insightsJSON)
	sb.WriteString("\n\n---\n\n### Energy Risk Report\n")
	sb.Write(riskJSON)

	if analysis.ForecastSummary != "" {
		sb.WriteString("\n\n---\n\n### 7-Day Forecast Analysis\n**Summary:** ")
		sb.WriteString(analysis.ForecastSummary)
		sb.WriteString("\n\n**Key Patterns Identified:**\n")
		for _, insight := range analysis.ForecastInsights {
			fmt.Fprintf(&sb, "  - %s\n", insight)
		}
		fmt.Fprintf(&sb, "\n**Daily Pattern:**\n- Highest usage day: %s\n- Lowest usage day: %s\n- Pattern type: %s\n",
			analysis.DailyBreakdown.HighestDay, analysis.DailyBreakdown.LowestDay, analysis.DailyBreakdown.PatternType)
	}

	sb.WriteString(`

---

### Output Format (STRICT JSON)
Return ONLY valid JSON in this format:

{
  "summary": "Brief, friendly explanation of the user's energy usage patterns and risk considerations",
  "estimated_savings_percent": number,
  "comfort_impact": "low | medium | high",
  "daily_plan": {
    "Day 1": [{"action": "...", "reason": "..."}],
    "Day 2": [{"action": "...", "reason": "..."}],
    "Day 3": [{"action": "...", "reason": "..."}],
    "Day 4": [{"action": "...", "reason": "..."}],
    "Day 5": [{"action": "...", "reason": "..."}],
    "Day 6": [{"action": "...", "reason": "..."}],
    "Day 7": [{"action": "...", "reason": "..."}]
  }
}

Do NOT include markdown.
Do NOT include explanations outside JSON.`)

	return sb.String()
}
