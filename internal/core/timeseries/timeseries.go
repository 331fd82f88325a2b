package timeseries

import (
	"time"
)

// Point is a single hourly usage observation.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	UsageKW   float64   `json:"usage_kw"`
}

// Series is the canonical hourly usage series produced by Normalize.
// Timestamps are strictly increasing at hourly resolution with no gaps.
// The slice is owned by the analysis run that created it and must not be
// mutated after normalization.
type Series struct {
	Points []Point
}

// Len returns the number of hourly points.
func (s *Series) Len() int {
	return len(s.Points)
}

// Start returns the timestamp of the first point.
func (s *Series) Start() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[0].Timestamp
}

// End returns the timestamp of the last point.
func (s *Series) End() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[len(s.Points)-1].Timestamp
}

// SpanDays returns the number of whole days covered by the series.
func (s *Series) SpanDays() int {
	if len(s.Points) < 2 {
		return 0
	}
	return int(s.End().Sub(s.Start()).Hours() / 24)
}

// Mean returns the mean usage across all points.
func (s *Series) Mean() float64 {
	if len(s.Points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range s.Points {
		sum += p.UsageKW
	}
	return sum / float64(len(s.Points))
}

// DailyTotals groups usage into per-day kWh sums, keyed by the day's
// midnight timestamp, returned in ascending date order.
func (s *Series) DailyTotals() []DayTotal {
	var totals []DayTotal
	var current time.Time
	for _, p := range s.Points {
		day := p.Timestamp.Truncate(24 * time.Hour)
		if len(totals) == 0 || !day.Equal(current) {
			totals = append(totals, DayTotal{Date: day})
			current = day
		}
		totals[len(totals)-1].TotalKWH += p.UsageKW
		totals[len(totals)-1].Hours++
	}
	return totals
}

// DayTotal is one day's aggregated consumption.
type DayTotal struct {
	Date     time.Time
	TotalKWH float64
	Hours    int
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
