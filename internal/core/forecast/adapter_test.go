package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/profile"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/timeseries"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/weather"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPredictor struct {
	calls   int
	results [][]Point
	errs    []error
}

func (s *stubPredictor) Predict(ctx context.Context, series *timeseries.Series, prof profile.Profile, fw weather.Series) ([]Point, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.results) {
		return s.results[i], nil
	}
	return nil, &errors.ExternalServiceError{Service: "predictor", Op: "predict", Message: "exhausted", Retryable: false}
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func weeklyPatternSeries(start time.Time, weeks int) *timeseries.Series {
	points := make([]timeseries.Point, weeks*168)
	for i := range points {
		points[i] = timeseries.Point{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			UsageKW:   0.5 + float64(i%168)/100.0,
		}
	}
	return &timeseries.Series{Points: points}
}

func horizonPoints(start time.Time, usage func(i int) float64) []Point {
	points := make([]Point, HorizonHours)
	for i := range points {
		points[i] = Point{Datetime: start.Add(time.Duration(i) * time.Hour), PredictedKW: usage(i)}
	}
	return points
}

func TestForecast_SuccessfulPrediction(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series := weeklyPatternSeries(start, 4)
	horizon := horizonPoints(series.End().Add(time.Hour), func(i int) float64 { return 1.0 })

	predictor := &stubPredictor{results: [][]Point{horizon}}
	adapter := NewAdapter(predictor, time.Minute, testLogger())

	result, err := adapter.Forecast(context.Background(), series, profile.Profile{}, weather.Series{})
	require.NoError(t, err)
	assert.False(t, result.Degraded)
	assert.Len(t, result.Points, HorizonHours)
	assert.Equal(t, 1, predictor.calls)
}

func TestForecast_RetriesOnceOnTransientFailure(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series := weeklyPatternSeries(start, 4)
	horizon := horizonPoints(series.End().Add(time.Hour), func(i int) float64 { return 2.0 })

	predictor := &stubPredictor{
		errs:    []error{&errors.ExternalServiceError{Service: "predictor", Op: "predict", Message: "503", Retryable: true}},
		results: [][]Point{nil, horizon},
	}
	adapter := NewAdapter(predictor, time.Minute, testLogger())

	result, err := adapter.Forecast(context.Background(), series, profile.Profile{}, weather.Series{})
	require.NoError(t, err)
	assert.False(t, result.Degraded)
	assert.Equal(t, 2, predictor.calls)
}

func TestForecast_FallsBackToWeeklyRepeat(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC) // a Monday
	series := weeklyPatternSeries(start, 4)

	failure := &errors.ExternalServiceError{Service: "predictor", Op: "predict", Message: "down", Retryable: true}
	predictor := &stubPredictor{errs: []error{failure, failure}}
	adapter := NewAdapter(predictor, time.Minute, testLogger())

	result, err := adapter.Forecast(context.Background(), series, profile.Profile{}, weather.Series{})
	require.NoError(t, err, "fallback is a degraded result, not an error")
	assert.True(t, result.Degraded)
	assert.NotEmpty(t, result.DegradedReason)
	require.Len(t, result.Points, HorizonHours)

	// An exact repeating weekly pattern must reproduce verbatim
	lastWeek := series.Points[len(series.Points)-168:]
	for i, p := range result.Points {
		assert.InDelta(t, lastWeek[i].UsageKW, p.PredictedKW, 1e-9, "hour %d", i)
		assert.Equal(t, series.End().Add(time.Duration(i+1)*time.Hour), p.Datetime)
	}
}

func TestForecast_MalformedHorizonTriggersFallback(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series := weeklyPatternSeries(start, 4)
	short := horizonPoints(series.End().Add(time.Hour), func(i int) float64 { return 1.0 })[:100]

	predictor := &stubPredictor{results: [][]Point{short, short}}
	adapter := NewAdapter(predictor, time.Minute, testLogger())

	result, err := adapter.Forecast(context.Background(), series, profile.Profile{}, weather.Series{})
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Equal(t, 2, predictor.calls, "malformed horizon is retryable")
	assert.Len(t, result.Points, HorizonHours)
}

func TestPredictOnce_MalformedHorizonIsValidationFailure(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series := weeklyPatternSeries(start, 4)
	short := horizonPoints(series.End().Add(time.Hour), func(i int) float64 { return 1.0 })[:100]

	predictor := &stubPredictor{results: [][]Point{short}}
	adapter := NewAdapter(predictor, time.Minute, testLogger())

	_, err := adapter.predictOnce(context.Background(), series, profile.Profile{}, weather.Series{})
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))

	var vErr *errors.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "model_forecasted", vErr.Stage)
}

func TestForecast_TimeoutReportedInDegradedReason(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series := weeklyPatternSeries(start, 4)

	timeout := errors.NewExternalTimeout("predictor", "predict", context.DeadlineExceeded)
	predictor := &stubPredictor{errs: []error{timeout, timeout}}
	adapter := NewAdapter(predictor, time.Minute, testLogger())

	result, err := adapter.Forecast(context.Background(), series, profile.Profile{}, weather.Series{})
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Contains(t, result.DegradedReason, "timed out")
	assert.Equal(t, 2, predictor.calls, "timeouts are retryable")
}

func TestDeriveBreakdown_PatternTypes(t *testing.T) {
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	weekdayHeavy := &Result{Points: horizonPoints(monday, func(i int) float64 {
		if timeseries.IsWeekend(monday.Add(time.Duration(i) * time.Hour)) {
			return 1.0
		}
		return 2.0
	})}
	assert.Equal(t, "weekday-heavy", deriveBreakdown(weekdayHeavy).PatternType)

	weekendHeavy := &Result{Points: horizonPoints(monday, func(i int) float64 {
		if timeseries.IsWeekend(monday.Add(time.Duration(i) * time.Hour)) {
			return 2.0
		}
		return 1.0
	})}
	breakdown := deriveBreakdown(weekendHeavy)
	assert.Equal(t, "weekend-heavy", breakdown.PatternType)
	assert.Contains(t, []string{"Saturday", "Sunday"}, breakdown.HighestDay)

	balanced := &Result{Points: horizonPoints(monday, func(i int) float64 { return 1.0 })}
	assert.Equal(t, "balanced", deriveBreakdown(balanced).PatternType)
}
