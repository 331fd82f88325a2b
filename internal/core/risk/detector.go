package risk

import (
	"fmt"
	"math"
	"sort"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/forecast"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/insights"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/timeseries"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/weather"
)

// Fixed rule labels reported in RiskDay reasons.
const (
	ReasonHighTemperature = "High temperature"
	ReasonWeekendUsage    = "Weekend usage"
	ReasonSpikePattern    = "Usage spike pattern"
)

// Day is one flagged forecast day.
type Day struct {
	Date         string   `json:"date"`
	TotalUsageKW float64  `json:"total_usage_kw"`
	Reasons      []string `json:"reasons"`
	Severity     string   `json:"severity"`
}

// Report is the overconsumption risk assessment for the forecast horizon.
// Invariant: TotalRiskDays == len(RiskDetails); RiskDetails sorted by date.
type Report struct {
	TotalRiskDays int    `json:"total_risk_days"`
	RiskDetails   []Day  `json:"risk_details"`
	Summary       string `json:"summary"`
}

// Thresholds are the historical baselines the rules compare against.
type Thresholds struct {
	TempP90          float64 // 90th percentile of historical hourly temperature
	HistDailyMeanKWH float64 // mean historical daily consumption
	HasWeather       bool
}

// DeriveThresholds computes rule baselines from history. The temperature
// baseline is only meaningful when historical weather was available.
func DeriveThresholds(series *timeseries.Series, hist weather.Series) Thresholds {
	t := Thresholds{}

	totals := series.DailyTotals()
	if len(totals) > 0 {
		var sum float64
		for _, d := range totals {
			sum += d.TotalKWH
		}
		t.HistDailyMeanKWH = sum / float64(len(totals))
	}

	if !hist.Empty() {
		t.TempP90 = hist.TemperaturePercentile(90)
		t.HasWeather = true
	}

	return t
}

// Detect scores each forecast day against the fixed rule set. Rules are
// evaluated independently and unioned; a day is a risk day iff it collects
// at least one reason.
func Detect(fc *forecast.Result, ins insights.Insights, forecastWeather weather.Series, thresholds Thresholds) Report {
	dailyTemp := forecastWeather.DailyMeanTemperature()

	var riskDays []Day
	reasonCounts := make(map[string]int)
	reasonFirstSeen := make(map[string]int)

	for i, day := range fc.Days() {
		var reasons []string

		if thresholds.HasWeather {
			if meanTemp, ok := dailyTemp[day.Date]; ok && meanTemp > thresholds.TempP90 {
				reasons = append(reasons, ReasonHighTemperature)
			}
		}

		if timeseries.IsWeekend(day.Date) && ins.WeekendIncreasePercent > 10 {
			reasons = append(reasons, ReasonWeekendUsage)
		}

		if ins.SpikeProfile.AvgSpikeKW > 0 && day.PeakKW > ins.SpikeProfile.AvgSpikeKW {
			reasons = append(reasons, ReasonSpikePattern)
		}

		if len(reasons) == 0 {
			continue
		}

		for _, r := range reasons {
			reasonCounts[r]++
			if _, seen := reasonFirstSeen[r]; !seen {
				reasonFirstSeen[r] = i
			}
		}

		riskDays = append(riskDays, Day{
			Date:         day.Date.Format("2006-01-02"),
			TotalUsageKW: math.Round(day.TotalKWH*100) / 100,
			Reasons:      reasons,
			Severity:     severity(reasons, day.TotalKWH, thresholds.HistDailyMeanKWH),
		})
	}

	sort.Slice(riskDays, func(i, j int) bool { return riskDays[i].Date < riskDays[j].Date })

	return Report{
		TotalRiskDays: len(riskDays),
		RiskDetails:   riskDays,
		Summary:       buildSummary(riskDays, reasonCounts, reasonFirstSeen),
	}
}

// severity: high on ≥2 reasons or usage >50% above the historical daily
// mean; medium on a single reason with usage 20–50% above; otherwise low.
func severity(reasons []string, totalKWH, histMean float64) string {
	overshoot := 0.0
	if histMean > 0 {
		overshoot = (totalKWH - histMean) / histMean * 100
	}

	switch {
	case len(reasons) >= 2 || overshoot > 50:
		return "high"
	case len(reasons) == 1 && overshoot >= 20:
		return "medium"
	default:
		return "low"
	}
}

func buildSummary(riskDays []Day, counts map[string]int, firstSeen map[string]int) string {
	if len(riskDays) == 0 {
		return "No days with elevated overconsumption risk identified in the next 7 days."
	}

	dominant := ""
	for reason, count := range counts {
		if dominant == "" || count > counts[dominant] ||
			(count == counts[dominant] && firstSeen[reason] < firstSeen[dominant]) {
			dominant = reason
		}
	}

	noun := "days"
	if len(riskDays) == 1 {
		noun = "day"
	}
	return fmt.Sprintf("Identified %d %s with potential energy overconsumption; the dominant driver is: %s.",
		len(riskDays), noun, dominant)
}
