package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/weather"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/llm"
	"github.com/sirupsen/logrus"
)

// Analysis is the explainable companion of the raw forecast, displayed
// under the forecast graph and fed into the plan synthesizer.
type Analysis struct {
	ForecastSummary  string         `json:"forecast_summary"`
	ForecastInsights []string       `json:"forecast_insights"`
	DailyBreakdown   DailyBreakdown `json:"daily_breakdown"`
	Degraded         bool           `json:"degraded"`
	DegradedReason   string         `json:"degraded_reason,omitempty"`
}

// InsightGenerator turns the 168-point forecast into a narrative analysis,
// consulting the language service and degrading to a deterministic summary
// when it is unavailable.
type InsightGenerator struct {
	client llm.Client
	logger *logrus.Logger
}

// NewInsightGenerator creates an insight generator.
func NewInsightGenerator(client llm.Client, logger *logrus.Logger) *InsightGenerator {
	return &InsightGenerator{client: client, logger: logger}
}

// Generate produces the forecast analysis. Never fails: language-service
// errors degrade to the deterministic template.
func (g *InsightGenerator) Generate(ctx context.Context, result *Result, forecastWeather weather.Series) Analysis {
	stats := summarize(result)

	if g.client != nil {
		analysis, err := g.generateWithLLM(ctx, result, forecastWeather, stats)
		if err == nil {
			analysis.DailyBreakdown = result.DailyBreakdown
			return analysis
		}
		g.logger.WithError(err).Warn("LLM forecast analysis failed, using deterministic summary")
	}

	return g.deterministic(result, stats)
}

type horizonStats struct {
	totalKWH  float64
	avgHourly float64
	maxHourly float64
	minHourly float64
	peakHours []int
	lowHours  []int
}

func summarize(result *Result) horizonStats {
	stats := horizonStats{minHourly: -1}
	var hourSums [24]float64
	var hourCounts [24]int

	for _, p := range result.Points {
		stats.totalKWH += p.PredictedKW
		if p.PredictedKW > stats.maxHourly {
			stats.maxHourly = p.PredictedKW
		}
		if stats.minHourly < 0 || p.PredictedKW < stats.minHourly {
			stats.minHourly = p.PredictedKW
		}
		h := p.Datetime.Hour()
		hourSums[h] += p.PredictedKW
		hourCounts[h]++
	}
	if len(result.Points) > 0 {
		stats.avgHourly = stats.totalKWH / float64(len(result.Points))
	}

	type hourMean struct {
		hour int
		mean float64
	}
	means := make([]hourMean, 0, 24)
	for h := 0; h < 24; h++ {
		if hourCounts[h] > 0 {
			means = append(means, hourMean{hour: h, mean: hourSums[h] / float64(hourCounts[h])})
		}
	}
	sort.Slice(means, func(i, j int) bool { return means[i].mean > means[j].mean })
	for i := 0; i < len(means) && i < 3; i++ {
		stats.peakHours = append(stats.peakHours, means[i].hour)
	}
	for i := len(means) - 1; i >= 0 && len(stats.lowHours) < 3; i-- {
		stats.lowHours = append(stats.lowHours, means[i].hour)
	}

	return stats
}

func (g *InsightGenerator) generateWithLLM(ctx context.Context, result *Result, forecastWeather weather.Series, stats horizonStats) (Analysis, error) {
	var sb strings.Builder
	sb.WriteString("You are an energy consumption analyst. Analyze this 7-day hourly energy forecast for a residential user.\n\n")

	sb.WriteString("DAILY SUMMARY:\n")
	for _, d := range result.Days() {
		fmt.Fprintf(&sb, "- %s (%s): total %.2f kWh, peak %.3f kW\n",
			d.Date.Format("2006-01-02"), d.Date.Weekday(), d.TotalKWH, d.PeakKW)
	}

	sb.WriteString("\nSTATISTICS:\n")
	fmt.Fprintf(&sb, "- Total predicted usage (7 days): %.2f kWh\n", stats.totalKWH)
	fmt.Fprintf(&sb, "- Average hourly usage: %.3f kW\n", stats.avgHourly)
	fmt.Fprintf(&sb, "- Peak hourly usage: %.3f kW\n", stats.maxHourly)
	fmt.Fprintf(&sb, "- Peak hours (avg): %v\n", stats.peakHours)
	fmt.Fprintf(&sb, "- Low usage hours (avg): %v\n", stats.lowHours)

	if !forecastWeather.Empty() {
		fmt.Fprintf(&sb, "\nWeather context: average temperature %.1f°C over the horizon\n", forecastWeather.MeanTemperature())
	}

	sb.WriteString(`
Generate a JSON response with EXACTLY this structure:
{
  "forecast_summary": "A clear 2-3 sentence summary explaining the forecast for the user.",
  "forecast_insights": ["Insight 1", "Insight 2", "Insight 3", "Insight 4", "Insight 5"]
}
Return ONLY valid JSON, no markdown or extra text.`)

	text, err := g.client.Complete(ctx, sb.String(), llm.CompletionOptions{
		SystemPrompt: "You are an energy consumption analyst. Always respond with valid JSON only.",
		Temperature:  0.7,
		MaxTokens:    2048,
	})
	if err != nil {
		return Analysis{}, err
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(llm.StripJSONFences(text)), &analysis); err != nil {
		return Analysis{}, &llm.ProviderError{Provider: "openai-compat", Type: "parse_error", Message: "forecast analysis was not valid JSON", Underlying: err}
	}
	if analysis.ForecastSummary == "" || len(analysis.ForecastInsights) == 0 {
		return Analysis{}, &llm.ProviderError{Provider: "openai-compat", Type: "schema", Message: "forecast analysis missing required fields"}
	}

	return analysis, nil
}

// deterministic builds the fallback narrative from the horizon statistics.
func (g *InsightGenerator) deterministic(result *Result, stats horizonStats) Analysis {
	return Analysis{
		ForecastSummary: fmt.Sprintf(
			"Your predicted energy consumption for the next 7 days is %.1f kWh total, averaging %.2f kW per hour. Peak usage is expected around hours %v.",
			stats.totalKWH, stats.avgHourly, stats.peakHours),
		ForecastInsights: []string{
			fmt.Sprintf("Peak consumption hours are typically around %v", stats.peakHours),
			fmt.Sprintf("Lowest usage expected during hours %v", stats.lowHours),
			fmt.Sprintf("Maximum hourly consumption predicted: %.2f kW", stats.maxHourly),
			fmt.Sprintf("Daily average consumption: %.1f kWh", stats.totalKWH/7),
			"Consider shifting high-power activities to low-usage hours",
		},
		DailyBreakdown: result.DailyBreakdown,
		Degraded:       true,
		DegradedReason: "language service unavailable; analysis generated from forecast statistics",
	}
}
