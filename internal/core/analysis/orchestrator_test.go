package analysis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/config"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/forecast"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/insights"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/plan"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/profile"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/timeseries"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/weather"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWeather struct {
	fail bool
}

func (s *stubWeather) Fetch(ctx context.Context, lat, lon float64, start, end time.Time) (weather.Series, error) {
	if s.fail {
		return weather.Series{}, &errors.ExternalServiceError{Service: "open-meteo", Op: "archive", Message: "down", Retryable: false}
	}
	var points []weather.Point
	for ts := start; !ts.After(end); ts = ts.Add(time.Hour) {
		points = append(points, weather.Point{Timestamp: ts, TemperatureC: 29, HumidityPercent: 55, WindSpeedKPH: 7})
	}
	return weather.Series{Points: points}, nil
}

func (s *stubWeather) Forecast(ctx context.Context, lat, lon float64, horizonHours int) (weather.Series, error) {
	if s.fail {
		return weather.Series{}, &errors.ExternalServiceError{Service: "open-meteo", Op: "forecast", Message: "down", Retryable: false}
	}
	start := time.Now().UTC().Truncate(time.Hour)
	points := make([]weather.Point, horizonHours)
	for i := range points {
		points[i] = weather.Point{Timestamp: start.Add(time.Duration(i) * time.Hour), TemperatureC: 30}
	}
	return weather.Series{Points: points}, nil
}

type failingPredictor struct{}

func (failingPredictor) Predict(ctx context.Context, series *timeseries.Series, prof profile.Profile, fw weather.Series) ([]forecast.Point, error) {
	return nil, &errors.ExternalServiceError{Service: "predictor", Op: "predict", Message: "down", Retryable: false}
}

type okPredictor struct{}

func (okPredictor) Predict(ctx context.Context, series *timeseries.Series, prof profile.Profile, fw weather.Series) ([]forecast.Point, error) {
	start := series.End().Add(time.Hour)
	points := make([]forecast.Point, forecast.HorizonHours)
	for i := range points {
		points[i] = forecast.Point{Datetime: start.Add(time.Duration(i) * time.Hour), PredictedKW: 1.0}
	}
	return points, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	states []State
	stages []string
	events []string
}

func (r *recordingNotifier) StateChanged(_ string, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	r.events = append(r.events, "state:"+string(state))
}

func (r *recordingNotifier) StageStarted(_, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
	r.events = append(r.events, "start:"+stage)
}

func (r *recordingNotifier) StageCompleted(string, string, bool) {}

func (r *recordingNotifier) lastState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return ""
	}
	return r.states[len(r.states)-1]
}

func (r *recordingNotifier) indexOf(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.events {
		if e == event {
			return i
		}
	}
	return -1
}

func testEngine(wp weather.Provider, predictor forecast.Predictor, notifier Notifier) *Engine {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	cfg := &config.Config{}
	cfg.Analysis.MinHistoryDays = 14
	cfg.Analysis.SpikeWindowDays = 30
	cfg.Weather.Latitude = 24.8607
	cfg.Weather.Longitude = 67.0011

	// No LLM client: the narrative stages run their deterministic paths.
	return NewEngine(
		cfg,
		wp,
		forecast.NewAdapter(predictor, time.Second, log),
		forecast.NewInsightGenerator(nil, log),
		insights.NewAnalyzer(30),
		plan.NewSynthesizer(nil, 0, time.Second, log),
		notifier,
		log,
	)
}

func datasetRows(start time.Time, days int) []timeseries.RawRow {
	rows := make([]timeseries.RawRow, days*24)
	for i := range rows {
		rows[i] = timeseries.RawRow{
			Timestamp: start.Add(time.Duration(i) * time.Hour).Format("2006-01-02 15:04:05"),
			Usage:     fmt.Sprintf("%f", 1.0+0.1*float64(i%24)),
		}
	}
	return rows
}

func TestRun_CompletesWithHealthyExternals(t *testing.T) {
	notifier := &recordingNotifier{}
	engine := testEngine(&stubWeather{}, okPredictor{}, notifier)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	result, err := engine.Run(context.Background(), Request{
		SessionID: "s1",
		Rows:      datasetRows(start, 30),
		Answers:   profile.Answers{Q1: "3-4", Q2: "Partially occupied", Q3: "Yes", Q31: "24", Q4: "Electric", Q5: "2-3"},
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, StateCompleted, notifier.lastState())
	assert.Len(t, result.ForecastData, forecast.HorizonHours)
	assert.Equal(t, "medium", result.UserProfile.OccupancyDensity)
	assert.True(t, result.SevenDayEnergyPlan.Valid())

	// No LLM is configured, so narrative sections degrade but nothing else
	assert.Contains(t, result.DegradedSections, "forecast_analysis")
	assert.Contains(t, result.DegradedSections, "seven_day_energy_plan")
	assert.NotContains(t, result.DegradedSections, "forecast_data")
	assert.NotContains(t, result.DegradedSections, "weather_context")
}

func TestRun_AggregatingAnnouncedBeforeAggregationStages(t *testing.T) {
	notifier := &recordingNotifier{}
	engine := testEngine(&stubWeather{}, okPredictor{}, notifier)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := engine.Run(context.Background(), Request{
		SessionID: "s1",
		Rows:      datasetRows(start, 30),
	})
	require.NoError(t, err)

	idxFanningOut := notifier.indexOf("state:" + string(StateFanningOut))
	idxUserContext := notifier.indexOf("start:" + StageUserContext)
	idxAggregating := notifier.indexOf("state:" + string(StateAggregating))
	idxInsights := notifier.indexOf("start:" + StageInsights)
	idxForecast := notifier.indexOf("start:" + StageForecast)
	idxSynthesizing := notifier.indexOf("state:" + string(StateSynthesizing))

	require.GreaterOrEqual(t, idxFanningOut, 0)
	require.GreaterOrEqual(t, idxAggregating, 0)
	require.GreaterOrEqual(t, idxSynthesizing, 0)

	// Fan-out stages run under fanning_out; once profile and weather are in,
	// aggregating is announced before insights and the model forecast start.
	assert.Less(t, idxFanningOut, idxUserContext)
	assert.Less(t, idxUserContext, idxAggregating)
	assert.Less(t, idxAggregating, idxInsights)
	assert.Less(t, idxAggregating, idxForecast)
	assert.Less(t, idxInsights, idxSynthesizing)
	assert.Less(t, idxForecast, idxSynthesizing)
}

func TestRun_AllExternalsDownStillCompletes(t *testing.T) {
	notifier := &recordingNotifier{}
	engine := testEngine(&stubWeather{fail: true}, failingPredictor{}, notifier)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	result, err := engine.Run(context.Background(), Request{
		SessionID: "s1",
		Rows:      datasetRows(start, 30),
		Answers:   profile.Answers{Q1: "1-2"},
	})
	require.NoError(t, err, "external failures degrade, never fail the run")
	require.NotNil(t, result)

	assert.Equal(t, StateCompleted, notifier.lastState())
	assert.True(t, result.Degraded())
	assert.Contains(t, result.DegradedSections, "weather_context")
	assert.Contains(t, result.DegradedSections, "forecast_data")
	assert.Contains(t, result.DegradedSections, "forecast_analysis")
	assert.Contains(t, result.DegradedSections, "seven_day_energy_plan")

	// Forecast fell back to the weekly repeat but still spans the horizon
	assert.Len(t, result.ForecastData, forecast.HorizonHours)
	assert.True(t, result.ForecastAnalysis.Degraded)
	assert.True(t, result.SevenDayEnergyPlan.Valid())
	assert.Nil(t, result.ConsumptionInsights.WeatherContext)
}

func TestRun_InsufficientHistoryFails(t *testing.T) {
	notifier := &recordingNotifier{}
	engine := testEngine(&stubWeather{}, okPredictor{}, notifier)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := engine.Run(context.Background(), Request{
		SessionID: "s1",
		Rows:      datasetRows(start, 5),
	})
	require.Error(t, err)

	var insufficientErr *timeseries.InsufficientHistoryError
	assert.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, StateFailed, notifier.lastState())
}

func TestRun_InvalidDatasetFails(t *testing.T) {
	notifier := &recordingNotifier{}
	engine := testEngine(&stubWeather{}, okPredictor{}, notifier)

	_, err := engine.Run(context.Background(), Request{
		SessionID: "s1",
		Rows:      []timeseries.RawRow{{Timestamp: "junk", Usage: "junk"}},
	})
	require.Error(t, err)

	var invalidErr *timeseries.InvalidDatasetError
	assert.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, StateFailed, notifier.lastState())
}

func TestRun_CancellationIsTerminal(t *testing.T) {
	notifier := &recordingNotifier{}
	engine := testEngine(&stubWeather{}, okPredictor{}, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := engine.Run(ctx, Request{
		SessionID: "s1",
		Rows:      datasetRows(start, 30),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCancelled, notifier.lastState())
}
