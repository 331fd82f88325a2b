package weather

import (
	"context"
	"math"
	"sort"
	"time"
)

// Point is one hourly weather observation or forecast value.
type Point struct {
	Timestamp       time.Time `json:"timestamp"`
	TemperatureC    float64   `json:"temperature_c"`
	HumidityPercent float64   `json:"humidity_percent"`
	WindSpeedKPH    float64   `json:"wind_speed_kph"`
}

// Series is an ordered hourly weather sequence. Read-shared across
// concurrent analysis stages, never mutated after population.
type Series struct {
	Points []Point
}

// Empty reports whether the series carries no data.
func (s Series) Empty() bool {
	return len(s.Points) == 0
}

// At returns the point whose hour matches ts, joining by nearest hour.
func (s Series) At(ts time.Time) (Point, bool) {
	hour := ts.Truncate(time.Hour)
	// Series are contiguous hourly sequences; index arithmetic beats search.
	if len(s.Points) == 0 {
		return Point{}, false
	}
	idx := int(hour.Sub(s.Points[0].Timestamp.Truncate(time.Hour)).Hours())
	if idx >= 0 && idx < len(s.Points) {
		return s.Points[idx], true
	}
	return Point{}, false
}

// MeanTemperature returns the mean temperature across the series.
func (s Series) MeanTemperature() float64 {
	if len(s.Points) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, p := range s.Points {
		sum += p.TemperatureC
	}
	return sum / float64(len(s.Points))
}

// TemperaturePercentile returns the p-th percentile (0..100) of hourly
// temperatures using nearest-rank on the sorted values.
func (s Series) TemperaturePercentile(p float64) float64 {
	if len(s.Points) == 0 {
		return math.NaN()
	}
	temps := make([]float64, len(s.Points))
	for i, pt := range s.Points {
		temps[i] = pt.TemperatureC
	}
	sort.Float64s(temps)
	rank := int(math.Ceil(p/100*float64(len(temps)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(temps) {
		rank = len(temps) - 1
	}
	return temps[rank]
}

// DailyMeanTemperature aggregates forecast temperatures into per-day means
// keyed by the day's midnight timestamp, in ascending order.
func (s Series) DailyMeanTemperature() map[time.Time]float64 {
	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	for _, p := range s.Points {
		day := p.Timestamp.Truncate(24 * time.Hour)
		sums[day] += p.TemperatureC
		counts[day]++
	}
	means := make(map[time.Time]float64, len(sums))
	for day, sum := range sums {
		means[day] = sum / float64(counts[day])
	}
	return means
}

// Provider fetches historical observations and forward forecasts.
// Implementations must be safe for concurrent use.
type Provider interface {
	Fetch(ctx context.Context, lat, lon float64, start, end time.Time) (Series, error)
	Forecast(ctx context.Context, lat, lon float64, horizonHours int) (Series, error)
}
