package timeseries

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RawRow is one parsed-but-unvalidated dataset row as produced by the
// ingestion layer. Both fields are raw strings; Normalize owns parsing.
type RawRow struct {
	Timestamp string
	Usage     string
}

// Diagnostics reports non-fatal data quality findings from normalization.
type Diagnostics struct {
	DroppedRows int `json:"dropped_rows"`
	FilledGaps  int `json:"filled_gaps"`
}

// InvalidDatasetError indicates the dataset yields zero usable rows.
// Fatal, no fallback.
type InvalidDatasetError struct {
	Reason string
}

func (e *InvalidDatasetError) Error() string {
	return fmt.Sprintf("invalid dataset: %s", e.Reason)
}

// InsufficientHistoryError indicates the dataset spans fewer days than the
// weekly and weather statistics require. Fatal, no fallback.
type InsufficientHistoryError struct {
	SpanDays int
	MinDays  int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: dataset spans %d days, need at least %d", e.SpanDays, e.MinDays)
}

// Timestamp layouts accepted from user datasets. Mirrors the mixed-format
// parsing the upload pipeline has always tolerated.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Normalize converts raw rows into the canonical hourly Series.
//
// Rows with non-parseable timestamps or negative usage are dropped and
// counted in Diagnostics. Finer-than-hourly input is resampled to hourly
// means. Interior gaps are filled by linear interpolation between the
// neighbouring hours so the output is a contiguous, strictly increasing
// hourly sequence.
func Normalize(rows []RawRow, minDays int) (*Series, Diagnostics, error) {
	var diag Diagnostics

	type sample struct {
		ts    time.Time
		usage float64
	}
	samples := make([]sample, 0, len(rows))

	for _, row := range rows {
		ts, ok := parseTimestamp(row.Timestamp)
		if !ok {
			diag.DroppedRows++
			continue
		}
		usage, err := strconv.ParseFloat(strings.TrimSpace(row.Usage), 64)
		if err != nil || math.IsNaN(usage) || math.IsInf(usage, 0) || usage < 0 {
			diag.DroppedRows++
			continue
		}
		samples = append(samples, sample{ts: ts, usage: usage})
	}

	if len(samples) == 0 {
		return nil, diag, &InvalidDatasetError{Reason: "no usable rows after validation"}
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].ts.Before(samples[j].ts) })

	// Resample to hourly means. Duplicate timestamps fold into their hour
	// bucket here, which also enforces the no-duplicates invariant.
	type bucket struct {
		sum   float64
		count int
	}
	buckets := make(map[time.Time]*bucket)
	first := samples[0].ts.Truncate(time.Hour)
	last := samples[len(samples)-1].ts.Truncate(time.Hour)
	for _, s := range samples {
		hour := s.ts.Truncate(time.Hour)
		b, ok := buckets[hour]
		if !ok {
			b = &bucket{}
			buckets[hour] = b
		}
		b.sum += s.usage
		b.count++
	}

	totalHours := int(last.Sub(first).Hours()) + 1
	points := make([]Point, 0, totalHours)
	for hour := first; !hour.After(last); hour = hour.Add(time.Hour) {
		if b, ok := buckets[hour]; ok {
			points = append(points, Point{Timestamp: hour, UsageKW: b.sum / float64(b.count)})
		} else {
			points = append(points, Point{Timestamp: hour, UsageKW: math.NaN()})
		}
	}

	fillGaps(points, &diag)

	series := &Series{Points: points}

	if series.SpanDays() < minDays {
		return nil, diag, &InsufficientHistoryError{SpanDays: series.SpanDays(), MinDays: minDays}
	}

	return series, diag, nil
}

// fillGaps interpolates NaN hours between known neighbours. Points are
// never NaN at either end since first/last buckets always exist.
func fillGaps(points []Point, diag *Diagnostics) {
	i := 0
	for i < len(points) {
		if !math.IsNaN(points[i].UsageKW) {
			i++
			continue
		}
		start := i
		for i < len(points) && math.IsNaN(points[i].UsageKW) {
			i++
		}
		prev := points[start-1].UsageKW
		next := points[i].UsageKW
		span := float64(i - start + 1)
		for j := start; j < i; j++ {
			frac := float64(j-start+1) / span
			points[j].UsageKW = prev + (next-prev)*frac
			diag.FilledGaps++
		}
	}
}
