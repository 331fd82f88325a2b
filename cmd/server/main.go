package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/api"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/config"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/analysis"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/forecast"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/insights"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/plan"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/weather"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/database"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/database/sqlite"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/llm"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/retention"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/websocket"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	logger.SetLevel(log, cfg.Logging.Level)

	// Initialize database and run migrations
	db, err := database.Initialize(cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	// Create repositories
	repos := sqlite.NewRepositories(db)

	// Create WebSocket hub for progress streaming
	wsHub := websocket.NewHub(cfg.WebSocket, log)
	go wsHub.Run()

	// External service clients
	weatherProvider := weather.NewCachedProvider(weather.NewOpenMeteoClient(cfg.Weather, log))
	predictor := forecast.NewHTTPPredictor(cfg.Predictor, log)

	var llmClient llm.Client
	if cfg.LLM.APIKey != "" {
		llmClient = llm.NewOpenAICompatProvider(cfg.LLM, log)
	} else {
		log.Warn("No LLM API key configured, narrative stages will use deterministic fallbacks")
	}

	// Pipeline stages
	forecaster := forecast.NewAdapter(predictor, config.ParseDuration(cfg.Predictor.Timeout, 60*time.Second), log)
	insightGen := forecast.NewInsightGenerator(llmClient, log)
	analyzer := insights.NewAnalyzer(cfg.Analysis.SpikeWindowDays)
	synthesizer := plan.NewSynthesizer(llmClient, cfg.LLM.MaxRetries, config.ParseDuration(cfg.LLM.Timeout, 45*time.Second), log)

	// Progress events go to websocket clients and state changes to the
	// analyses table.
	notifier := &persistingNotifier{next: wsHub, analyses: repos.Analyses, log: log}

	engine := analysis.NewEngine(cfg, weatherProvider, forecaster, insightGen, analyzer, synthesizer, notifier, log)

	// Retention sweep for expired sessions and analyses
	sweeper := retention.NewService(cfg.Analysis, repos, log)
	if err := sweeper.Start(); err != nil {
		log.Fatal("Failed to schedule retention sweep:", err)
	}

	// Initialize router
	router := api.NewRouter(cfg, db, repos, engine, wsHub, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server
	go func() {
		log.Infof("Starting Insight Watt backend on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sweeper.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Info("Server exited")
}
