package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/profile"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/timeseries"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/weather"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/pkg/errors"
	"github.com/sirupsen/logrus"
)

const patternDeadbandPct = 10.0

// Adapter wraps the external predictor with a timeout budget, one retry on
// transient failure and a seasonal-repeat fallback.
type Adapter struct {
	predictor Predictor
	timeout   time.Duration
	logger    *logrus.Logger
}

// NewAdapter creates a forecast adapter.
func NewAdapter(predictor Predictor, timeout time.Duration, logger *logrus.Logger) *Adapter {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Adapter{predictor: predictor, timeout: timeout, logger: logger}
}

// Forecast obtains the 7-day hourly prediction. Persistent predictor failure
// degrades to a seasonal repeat of the most recent complete week; the result
// carries degraded=true in that case so callers can surface partial
// confidence.
func (a *Adapter) Forecast(ctx context.Context, series *timeseries.Series, prof profile.Profile, forecastWeather weather.Series) (*Result, error) {
	points, err := a.predictOnce(ctx, series, prof, forecastWeather)
	if err != nil && errors.IsRetryable(err) && ctx.Err() == nil {
		a.logger.WithError(err).Warn("Predictor call failed, retrying once")
		points, err = a.predictOnce(ctx, series, prof, forecastWeather)
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.WithError(err).Warn("Predictor unavailable, falling back to seasonal repeat")
		reason := "forecast model unavailable; repeated the most recent weekly pattern instead"
		if errors.IsTimeout(err) {
			reason = "forecast model timed out; repeated the most recent weekly pattern instead"
		}
		result := a.seasonalRepeat(series)
		result.Degraded = true
		result.DegradedReason = reason
		return result, nil
	}

	result := &Result{Points: points}
	result.DailyBreakdown = deriveBreakdown(result)
	return result, nil
}

func (a *Adapter) predictOnce(ctx context.Context, series *timeseries.Series, prof profile.Profile, forecastWeather weather.Series) ([]Point, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	points, err := a.predictor.Predict(callCtx, series, prof, forecastWeather)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, errors.NewExternalTimeout("predictor", "predict", err)
		}
		return nil, err
	}

	// A wrong-sized horizon is an output invariant violation, still worth
	// one retry before the fallback takes over.
	if len(points) != HorizonHours {
		return nil, &errors.ExternalServiceError{
			Service:   "predictor",
			Op:        "predict",
			Message:   "predictor returned a malformed horizon",
			Retryable: true,
			Err: &errors.ValidationError{
				Stage:   "model_forecasted",
				Message: fmt.Sprintf("got %d forecast points, want %d", len(points), HorizonHours),
			},
		}
	}
	return points, nil
}

// seasonalRepeat projects the most recent complete week's hourly pattern
// onto the next 7 days. A series with an exact repeating weekly pattern
// reproduces that pattern verbatim.
func (a *Adapter) seasonalRepeat(series *timeseries.Series) *Result {
	history := series.Points
	window := history
	if len(window) > HorizonHours {
		window = window[len(window)-HorizonHours:]
	}

	start := series.End().Add(time.Hour)
	points := make([]Point, HorizonHours)
	for i := 0; i < HorizonHours; i++ {
		points[i] = Point{
			Datetime:    start.Add(time.Duration(i) * time.Hour),
			PredictedKW: window[i%len(window)].UsageKW,
		}
	}

	result := &Result{Points: points}
	result.DailyBreakdown = deriveBreakdown(result)
	return result
}

// deriveBreakdown compares weekday and weekend consumption per day and
// names the extreme days.
func deriveBreakdown(r *Result) DailyBreakdown {
	days := r.Days()
	if len(days) == 0 {
		return DailyBreakdown{PatternType: "balanced"}
	}

	highest, lowest := days[0], days[0]
	var weekdayKWH, weekendKWH float64
	var weekdayCount, weekendCount int

	for _, d := range days {
		if d.TotalKWH > highest.TotalKWH {
			highest = d
		}
		if d.TotalKWH < lowest.TotalKWH {
			lowest = d
		}
		if timeseries.IsWeekend(d.Date) {
			weekendKWH += d.TotalKWH
			weekendCount++
		} else {
			weekdayKWH += d.TotalKWH
			weekdayCount++
		}
	}

	pattern := "balanced"
	if weekdayCount > 0 && weekendCount > 0 {
		weekdayMean := weekdayKWH / float64(weekdayCount)
		weekendMean := weekendKWH / float64(weekendCount)
		switch {
		case weekendMean > 0 && weekdayMean > weekendMean*(1+patternDeadbandPct/100):
			pattern = "weekday-heavy"
		case weekdayMean > 0 && weekendMean > weekdayMean*(1+patternDeadbandPct/100):
			pattern = "weekend-heavy"
		}
	}

	return DailyBreakdown{
		HighestDay:  highest.Date.Weekday().String(),
		LowestDay:   lowest.Date.Weekday().String(),
		PatternType: pattern,
	}
}
