package forecast

import (
	"context"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/profile"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/timeseries"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/weather"
)

// HorizonHours is the fixed 7-day hourly forecast horizon.
const HorizonHours = 7 * 24

// Point is one hourly prediction.
type Point struct {
	Datetime    time.Time `json:"datetime"`
	PredictedKW float64   `json:"predicted_usage"`
}

// DailyBreakdown labels the forecast's weekly shape.
type DailyBreakdown struct {
	HighestDay  string `json:"highest_day"`
	LowestDay   string `json:"lowest_day"`
	PatternType string `json:"pattern_type"`
}

// Result is the 168-point forecast plus its derived breakdown.
// Never mutated after creation.
type Result struct {
	Points         []Point        `json:"points"`
	DailyBreakdown DailyBreakdown `json:"daily_breakdown"`
	Degraded       bool           `json:"degraded"`
	DegradedReason string         `json:"degraded_reason,omitempty"`
}

// TotalKWH sums predicted consumption across the horizon.
func (r *Result) TotalKWH() float64 {
	var total float64
	for _, p := range r.Points {
		total += p.PredictedKW
	}
	return total
}

// Days groups the horizon into consecutive forecast days.
func (r *Result) Days() []Day {
	var days []Day
	var current time.Time
	for _, p := range r.Points {
		day := p.Datetime.Truncate(24 * time.Hour)
		if len(days) == 0 || !day.Equal(current) {
			days = append(days, Day{Date: day})
			current = day
		}
		d := &days[len(days)-1]
		d.TotalKWH += p.PredictedKW
		if p.PredictedKW > d.PeakKW {
			d.PeakKW = p.PredictedKW
		}
	}
	return days
}

// Day is one forecast day's aggregate.
type Day struct {
	Date     time.Time
	TotalKWH float64
	PeakKW   float64
}

// Predictor is the external trained-model boundary. The adapter owns
// timeouts, retry and fallback around it.
type Predictor interface {
	Predict(ctx context.Context, series *timeseries.Series, prof profile.Profile, forecastWeather weather.Series) ([]Point, error)
}
