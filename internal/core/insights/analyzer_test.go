package insights

import (
	"testing"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/timeseries"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatSeries(start time.Time, hours int, usage float64) *timeseries.Series {
	points := make([]timeseries.Point, hours)
	for i := range points {
		points[i] = timeseries.Point{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			UsageKW:   usage,
		}
	}
	return &timeseries.Series{Points: points}
}

func TestAnalyze_FlatSeriesWithoutWeather(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series := flatSeries(start, 30*24, 1.0)

	ins := NewAnalyzer(30).Analyze(series, weather.Series{})

	assert.Equal(t, "weather-neutral", ins.WeatherDriver)
	assert.Nil(t, ins.WeatherContext, "weather context omitted without history")
	assert.Equal(t, "similar", ins.WeekendBehavior)
	assert.Zero(t, ins.SpikeProfile.SpikeRatePercent, "flat series has no spikes")
	assert.Empty(t, ins.SpikeProfile.SpikePeakHours)
	assert.Len(t, ins.PeakHours, 7)
}

func TestAnalyze_PeakHoursRankedWithTieBreak(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series := flatSeries(start, 30*24, 1.0)

	// Evening hours 18-20 carry extra load every day
	for i, p := range series.Points {
		switch p.Timestamp.Hour() {
		case 18, 19, 20:
			series.Points[i].UsageKW = 3.0
		}
	}

	ins := NewAnalyzer(30).Analyze(series, weather.Series{})

	require.Len(t, ins.PeakHours, 7)
	assert.Equal(t, []int{18, 19, 20}, ins.PeakHours[:3])
	// Remaining slots tie at 1.0 and resolve to the lowest hours
	assert.Equal(t, []int{0, 1, 2, 3}, ins.PeakHours[3:])
}

func TestAnalyze_DetectsInjectedSpikes(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series := flatSeries(start, 30*24, 1.0)

	// Mild daily variation so the rolling stddev is non-degenerate, plus a
	// handful of large excursions at hour 21.
	for i := range series.Points {
		if i%2 == 0 {
			series.Points[i].UsageKW = 1.2
		}
	}
	for i := range series.Points {
		if series.Points[i].Timestamp.Hour() == 21 && i > 48 && (i/24)%3 == 0 {
			series.Points[i].UsageKW = 8.0
		}
	}

	ins := NewAnalyzer(30).Analyze(series, weather.Series{})

	assert.Greater(t, ins.SpikeProfile.SpikeRatePercent, 0.0)
	assert.Greater(t, ins.SpikeProfile.AvgSpikeKW, 1.0)
	assert.Equal(t, 8.0, ins.SpikeProfile.MaxSpikeKW)
}

func TestAnalyze_WeekendBehavior(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) // a Friday
	series := flatSeries(start, 28*24, 1.0)
	for i, p := range series.Points {
		if timeseries.IsWeekend(p.Timestamp) {
			series.Points[i].UsageKW = 1.5
		}
	}

	ins := NewAnalyzer(30).Analyze(series, weather.Series{})

	assert.Equal(t, "higher", ins.WeekendBehavior)
	assert.InDelta(t, 50.0, ins.WeekendIncreasePercent, 1.0)
}

func TestAnalyze_WeatherDominantCorrelation(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	hours := 21 * 24

	usage := make([]timeseries.Point, hours)
	wx := make([]weather.Point, hours)
	for i := 0; i < hours; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		temp := 28.0 + 6.0*float64(i%24)/24.0
		usage[i] = timeseries.Point{Timestamp: ts, UsageKW: 0.5 + 0.2*temp}
		wx[i] = weather.Point{Timestamp: ts, TemperatureC: temp, HumidityPercent: 60, WindSpeedKPH: 8}
	}

	ins := NewAnalyzer(30).Analyze(&timeseries.Series{Points: usage}, weather.Series{Points: wx})

	require.NotNil(t, ins.WeatherContext)
	assert.Equal(t, "weather-dominant", ins.WeatherDriver)
	assert.Greater(t, ins.WeatherContext.TempUsageCorrelation, 0.5)
	assert.Equal(t, "hot", ins.WeatherContext.ThermalCondition)
	assert.Equal(t, "moderate", ins.WeatherContext.HumidityLevel)
	assert.Equal(t, "moderate", ins.WeatherContext.WindCoolingEffect)
}
