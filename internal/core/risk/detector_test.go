package risk

import (
	"sort"
	"testing"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/forecast"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/insights"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/timeseries"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forecastWith(start time.Time, usage func(day, hour int) float64) *forecast.Result {
	points := make([]forecast.Point, forecast.HorizonHours)
	for i := range points {
		points[i] = forecast.Point{
			Datetime:    start.Add(time.Duration(i) * time.Hour),
			PredictedKW: usage(i/24, i%24),
		}
	}
	return &forecast.Result{Points: points}
}

func historySeries(start time.Time, days int, usage float64) *timeseries.Series {
	points := make([]timeseries.Point, days*24)
	for i := range points {
		points[i] = timeseries.Point{Timestamp: start.Add(time.Duration(i) * time.Hour), UsageKW: usage}
	}
	return &timeseries.Series{Points: points}
}

func TestDetect_NoRiskOnFlatForecast(t *testing.T) {
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	fc := forecastWith(monday, func(day, hour int) float64 { return 1.0 })
	hist := historySeries(monday.AddDate(0, 0, -30), 30, 1.0)

	report := Detect(fc, insights.Insights{}, weather.Series{}, DeriveThresholds(hist, weather.Series{}))

	assert.Zero(t, report.TotalRiskDays)
	assert.Empty(t, report.RiskDetails)
	assert.Contains(t, report.Summary, "No days")
}

func TestDetect_WeekendRule(t *testing.T) {
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	fc := forecastWith(monday, func(day, hour int) float64 { return 1.0 })
	hist := historySeries(monday.AddDate(0, 0, -30), 30, 1.0)

	ins := insights.Insights{WeekendIncreasePercent: 25}
	report := Detect(fc, ins, weather.Series{}, DeriveThresholds(hist, weather.Series{}))

	require.Equal(t, 2, report.TotalRiskDays, "Saturday and Sunday flagged")
	for _, day := range report.RiskDetails {
		assert.Equal(t, []string{ReasonWeekendUsage}, day.Reasons)
	}
	assert.Contains(t, report.Summary, ReasonWeekendUsage)
}

func TestDetect_SpikeRuleAndSeverity(t *testing.T) {
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	// Day 2 carries a big evening peak and well over 50% daily overshoot
	fc := forecastWith(monday, func(day, hour int) float64 {
		if day == 2 {
			if hour >= 18 && hour <= 21 {
				return 6.0
			}
			return 2.0
		}
		return 1.0
	})
	hist := historySeries(monday.AddDate(0, 0, -30), 30, 1.0)

	ins := insights.Insights{SpikeProfile: insights.SpikeProfile{AvgSpikeKW: 3.0}}
	report := Detect(fc, ins, weather.Series{}, DeriveThresholds(hist, weather.Series{}))

	require.Equal(t, 1, report.TotalRiskDays)
	day := report.RiskDetails[0]
	assert.Equal(t, []string{ReasonSpikePattern}, day.Reasons)
	assert.Equal(t, "high", day.Severity, "over 50%% above historical daily mean")
}

func TestDetect_HighTemperatureRule(t *testing.T) {
	monday := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	fc := forecastWith(monday, func(day, hour int) float64 { return 1.0 })
	hist := historySeries(monday.AddDate(0, 0, -30), 30, 1.0)

	histWeather := weather.Series{Points: make([]weather.Point, 30*24)}
	for i := range histWeather.Points {
		histWeather.Points[i] = weather.Point{
			Timestamp:    monday.AddDate(0, 0, -30).Add(time.Duration(i) * time.Hour),
			TemperatureC: 30,
		}
	}

	// Forecast weather: day 3 far above the historical p90
	fcWeather := weather.Series{Points: make([]weather.Point, forecast.HorizonHours)}
	for i := range fcWeather.Points {
		temp := 28.0
		if i/24 == 3 {
			temp = 41.0
		}
		fcWeather.Points[i] = weather.Point{Timestamp: monday.Add(time.Duration(i) * time.Hour), TemperatureC: temp}
	}

	thresholds := DeriveThresholds(hist, histWeather)
	require.True(t, thresholds.HasWeather)

	report := Detect(fc, insights.Insights{}, fcWeather, thresholds)

	require.Equal(t, 1, report.TotalRiskDays)
	assert.Equal(t, monday.AddDate(0, 0, 3).Format("2006-01-02"), report.RiskDetails[0].Date)
	assert.Equal(t, []string{ReasonHighTemperature}, report.RiskDetails[0].Reasons)
	assert.Equal(t, "low", report.RiskDetails[0].Severity, "single reason with no overshoot")
}

func TestDetect_SortedAndCountInvariant(t *testing.T) {
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	fc := forecastWith(monday, func(day, hour int) float64 {
		if hour == 20 {
			return 5.0
		}
		return 1.0
	})
	hist := historySeries(monday.AddDate(0, 0, -30), 30, 1.0)

	ins := insights.Insights{
		WeekendIncreasePercent: 30,
		SpikeProfile:           insights.SpikeProfile{AvgSpikeKW: 3.0},
	}
	report := Detect(fc, ins, weather.Series{}, DeriveThresholds(hist, weather.Series{}))

	assert.Equal(t, len(report.RiskDetails), report.TotalRiskDays)
	assert.True(t, sort.SliceIsSorted(report.RiskDetails, func(i, j int) bool {
		return report.RiskDetails[i].Date < report.RiskDetails[j].Date
	}))

	// Weekend days collect two reasons and become high severity
	for _, day := range report.RiskDetails {
		date, err := time.Parse("2006-01-02", day.Date)
		require.NoError(t, err)
		if timeseries.IsWeekend(date) {
			assert.Len(t, day.Reasons, 2)
			assert.Equal(t, "high", day.Severity)
		}
	}
}
