package analysis

import (
	"context"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/config"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/forecast"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/insights"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/plan"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/profile"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/risk"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/timeseries"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/weather"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Engine orchestrates one analysis run through the fan-out graph:
//
//	normalize
//	   ├── user_context ─────────────┐
//	   ├── merge_csv_weather ──┬── consumption_insight ──┐
//	   └── weather_forecasted ─┴── model_forecasted ──┬── forecast_insight ──┤
//	                                                  └── energy_risk ───────┤
//	                                                           energy_advisor┘
//
// External-service failures degrade individual sections; only dataset
// validation errors fail the whole run.
type Engine struct {
	weatherProvider weather.Provider
	forecaster      *forecast.Adapter
	insightGen      *forecast.InsightGenerator
	analyzer        *insights.Analyzer
	synthesizer     *plan.Synthesizer
	notifier        Notifier
	logger          *logrus.Logger

	minHistoryDays int
	latitude       float64
	longitude      float64
}

// NewEngine wires the analysis engine from its stage implementations.
func NewEngine(
	cfg *config.Config,
	weatherProvider weather.Provider,
	forecaster *forecast.Adapter,
	insightGen *forecast.InsightGenerator,
	analyzer *insights.Analyzer,
	synthesizer *plan.Synthesizer,
	notifier Notifier,
	logger *logrus.Logger,
) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{
		weatherProvider: weatherProvider,
		forecaster:      forecaster,
		insightGen:      insightGen,
		analyzer:        analyzer,
		synthesizer:     synthesizer,
		notifier:        notifier,
		logger:          logger,
		minHistoryDays:  cfg.Analysis.MinHistoryDays,
		latitude:        cfg.Weather.Latitude,
		longitude:       cfg.Weather.Longitude,
	}
}

// Run executes the full pipeline for one request. The returned Result is
// complete and immutable; a non-nil error means the run failed or was
// cancelled and produced no result.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	analysisID := req.AnalysisID
	if analysisID == "" {
		analysisID = uuid.New().String()
	}
	log := e.logger.WithFields(logrus.Fields{
		"analysis_id": analysisID,
		"session_id":  req.SessionID,
	})

	e.setState(analysisID, StatePending, log)

	// Normalization is synchronous and gates the fan-out: every downstream
	// stage consumes the canonical series.
	series, diag, err := e.normalize(analysisID, req.Rows, log)
	if err != nil {
		e.finish(analysisID, StateFailed, log)
		return nil, err
	}

	e.setState(analysisID, StateFanningOut, log)

	// Tier 1: profile mapping and both weather fetches are independent.
	var (
		prof            profile.Profile
		histWeather     weather.Series
		fcWeather       weather.Series
		weatherDegraded bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer observeStage(StageUserContext, time.Now())
		e.notifier.StageStarted(analysisID, StageUserContext)
		prof = profile.FromAnswers(req.Answers)
		e.notifier.StageCompleted(analysisID, StageUserContext, false)
		return nil
	})
	g.Go(func() error {
		defer observeStage(StageMergeWeather, time.Now())
		e.notifier.StageStarted(analysisID, StageMergeWeather)
		hw, err := e.weatherProvider.Fetch(gctx, e.latitude, e.longitude, series.Start(), series.End())
		if err != nil {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			log.WithError(err).Warn("Historical weather unavailable, continuing without weather context")
			weatherDegraded = true
			e.notifier.StageCompleted(analysisID, StageMergeWeather, true)
			return nil
		}
		histWeather = hw
		e.notifier.StageCompleted(analysisID, StageMergeWeather, false)
		return nil
	})
	g.Go(func() error {
		defer observeStage(StageForecastWeather, time.Now())
		e.notifier.StageStarted(analysisID, StageForecastWeather)
		fw, err := e.weatherProvider.Forecast(gctx, e.latitude, e.longitude, forecast.HorizonHours)
		if err != nil {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			log.WithError(err).Warn("Forecast weather unavailable, continuing without it")
			e.notifier.StageCompleted(analysisID, StageForecastWeather, true)
			return nil
		}
		fcWeather = fw
		e.notifier.StageCompleted(analysisID, StageForecastWeather, false)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, e.cancelled(analysisID, err, log)
	}

	// Profile and weather are in; everything from here aggregates them.
	e.setState(analysisID, StateAggregating, log)

	// Tier 2: consumption insights and the model forecast both consume the
	// merged series.
	var (
		ins      insights.Insights
		fcResult *forecast.Result
	)

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		defer observeStage(StageInsights, time.Now())
		e.notifier.StageStarted(analysisID, StageInsights)
		ins = e.analyzer.Analyze(series, histWeather)
		e.notifier.StageCompleted(analysisID, StageInsights, false)
		return nil
	})
	g.Go(func() error {
		defer observeStage(StageForecast, time.Now())
		e.notifier.StageStarted(analysisID, StageForecast)
		result, err := e.forecaster.Forecast(gctx, series, prof, fcWeather)
		if err != nil {
			return err
		}
		fcResult = result
		e.notifier.StageCompleted(analysisID, StageForecast, result.Degraded)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, e.cancelled(analysisID, err, log)
	}

	// Tier 3: both explainability branches consume the forecast.
	var (
		fcAnalysis forecast.Analysis
		riskReport risk.Report
	)

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		defer observeStage(StageForecastInsight, time.Now())
		e.notifier.StageStarted(analysisID, StageForecastInsight)
		fcAnalysis = e.insightGen.Generate(gctx, fcResult, fcWeather)
		e.notifier.StageCompleted(analysisID, StageForecastInsight, fcAnalysis.Degraded)
		return gctx.Err()
	})
	g.Go(func() error {
		defer observeStage(StageRisk, time.Now())
		e.notifier.StageStarted(analysisID, StageRisk)
		thresholds := risk.DeriveThresholds(series, histWeather)
		riskReport = risk.Detect(fcResult, ins, fcWeather, thresholds)
		e.notifier.StageCompleted(analysisID, StageRisk, false)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, e.cancelled(analysisID, err, log)
	}

	// A degraded forecast taints its analysis even when the narrative stage
	// itself succeeded: the text describes fallback numbers.
	if fcResult.Degraded && !fcAnalysis.Degraded {
		fcAnalysis.Degraded = true
		fcAnalysis.DegradedReason = fcResult.DegradedReason
	}

	e.setState(analysisID, StateSynthesizing, log)

	e.notifier.StageStarted(analysisID, StageAdvisor)
	synthStart := time.Now()
	energyPlan, err := e.synthesizer.Synthesize(ctx, prof, ins, riskReport, fcAnalysis)
	observeStage(StageAdvisor, synthStart)
	if err != nil {
		return nil, e.cancelled(analysisID, err, log)
	}
	e.notifier.StageCompleted(analysisID, StageAdvisor, energyPlan.Degraded)

	result := &Result{
		AnalysisID:          analysisID,
		SessionID:           req.SessionID,
		CreatedAt:           time.Now().UTC(),
		UserProfile:         prof,
		ConsumptionInsights: ins,
		RiskReport:          riskReport,
		ForecastAnalysis:    fcAnalysis,
		SevenDayEnergyPlan:  *energyPlan,
		ForecastData:        fcResult.Points,
		DegradedSections:    collectDegraded(weatherDegraded, fcResult, fcAnalysis, energyPlan),
		Diagnostics:         diag,
	}

	e.finish(analysisID, StateCompleted, log.WithField("degraded_sections", result.DegradedSections))
	return result, nil
}

func (e *Engine) normalize(analysisID string, rows []timeseries.RawRow, log *logrus.Entry) (*timeseries.Series, timeseries.Diagnostics, error) {
	defer observeStage(StageNormalize, time.Now())
	e.notifier.StageStarted(analysisID, StageNormalize)

	series, diag, err := timeseries.Normalize(rows, e.minHistoryDays)
	if err != nil {
		log.WithError(err).Error("Dataset normalization failed")
		return nil, diag, err
	}

	log.WithFields(logrus.Fields{
		"points":       series.Len(),
		"span_days":    series.SpanDays(),
		"dropped_rows": diag.DroppedRows,
		"filled_gaps":  diag.FilledGaps,
	}).Info("Dataset normalized")
	e.notifier.StageCompleted(analysisID, StageNormalize, false)
	return series, diag, nil
}

func (e *Engine) setState(analysisID string, state State, log *logrus.Entry) {
	log.WithField("state", state).Info("Analysis state changed")
	e.notifier.StateChanged(analysisID, state)
}

func (e *Engine) finish(analysisID string, state State, log *logrus.Entry) {
	e.setState(analysisID, state, log)
	analysesTotal.WithLabelValues(string(state)).Inc()
}

func (e *Engine) cancelled(analysisID string, err error, log *logrus.Entry) error {
	log.WithError(err).Warn("Analysis cancelled")
	e.finish(analysisID, StateCancelled, log)
	return err
}

func collectDegraded(weatherDegraded bool, fc *forecast.Result, fa forecast.Analysis, p *plan.Plan) []string {
	var sections []string
	add := func(section string) {
		sections = append(sections, section)
		degradedSections.WithLabelValues(section).Inc()
	}

	if weatherDegraded {
		add("weather_context")
	}
	if fc.Degraded {
		add("forecast_data")
	}
	if fa.Degraded {
		add("forecast_analysis")
	}
	if p.Degraded {
		add("seven_day_energy_plan")
	}
	return sections
}
