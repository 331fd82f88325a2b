package weather

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/config"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func hourlyPayload(start time.Time, hours int) map[string]interface{} {
	times := make([]string, hours)
	temps := make([]float64, hours)
	hums := make([]float64, hours)
	winds := make([]float64, hours)
	for i := 0; i < hours; i++ {
		times[i] = start.Add(time.Duration(i) * time.Hour).Format("2006-01-02T15:04")
		temps[i] = 25 + float64(i%10)
		hums[i] = 60
		winds[i] = 8
	}
	return map[string]interface{}{
		"hourly": map[string]interface{}{
			"time":                 times,
			"temperature_2m":       temps,
			"relative_humidity_2m": hums,
			"wind_speed_10m":       winds,
		},
	}
}

func TestFetch_ParsesHourlyArchive(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "24.8607", r.URL.Query().Get("latitude"))
		assert.Equal(t, "2024-03-01", r.URL.Query().Get("start_date"))
		assert.Contains(t, r.URL.Query().Get("hourly"), "temperature_2m")
		json.NewEncoder(w).Encode(hourlyPayload(start, 48))
	}))
	defer srv.Close()

	client := NewOpenMeteoClient(config.WeatherConfig{ArchiveURL: srv.URL, Timeout: "5s"}, testLogger())

	series, err := client.Fetch(context.Background(), 24.8607, 67.0011, start, start.Add(47*time.Hour))
	require.NoError(t, err)
	require.Len(t, series.Points, 48)
	assert.Equal(t, start, series.Points[0].Timestamp)
	assert.Equal(t, 25.0, series.Points[0].TemperatureC)
	assert.Equal(t, 60.0, series.Points[0].HumidityPercent)
}

func TestForecast_TrimsToHorizon(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("forecast_days"))
		json.NewEncoder(w).Encode(hourlyPayload(start, 8*24))
	}))
	defer srv.Close()

	client := NewOpenMeteoClient(config.WeatherConfig{BaseURL: srv.URL, Timeout: "5s"}, testLogger())

	series, err := client.Forecast(context.Background(), 24.8607, 67.0011, 168)
	require.NoError(t, err)
	assert.Len(t, series.Points, 168, "response longer than the horizon is trimmed")
}

func TestFetch_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewOpenMeteoClient(config.WeatherConfig{ArchiveURL: srv.URL, Timeout: "5s"}, testLogger())

	_, err := client.Fetch(context.Background(), 0, 0, time.Now().Add(-24*time.Hour), time.Now())
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}

func TestCachedProvider_FetchHitsUpstreamOnce(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	requests := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		json.NewEncoder(w).Encode(hourlyPayload(start, 24))
	}))
	defer srv.Close()

	cached := NewCachedProvider(NewOpenMeteoClient(config.WeatherConfig{ArchiveURL: srv.URL, Timeout: "5s"}, testLogger()))

	for i := 0; i < 3; i++ {
		series, err := cached.Fetch(context.Background(), 24.8607, 67.0011, start, start.Add(23*time.Hour))
		require.NoError(t, err)
		assert.Len(t, series.Points, 24)
	}
	assert.Equal(t, 1, requests)
}

func TestSeries_TemperaturePercentile(t *testing.T) {
	points := make([]Point, 100)
	for i := range points {
		points[i] = Point{TemperatureC: float64(i + 1)}
	}
	s := Series{Points: points}

	assert.InDelta(t, 90.0, s.TemperaturePercentile(90), 1.0)
	assert.InDelta(t, 50.0, s.TemperaturePercentile(50), 1.0)
}

func TestSeries_At(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	points := make([]Point, 24)
	for i := range points {
		points[i] = Point{Timestamp: start.Add(time.Duration(i) * time.Hour), TemperatureC: float64(i)}
	}
	s := Series{Points: points}

	p, ok := s.At(start.Add(5 * time.Hour))
	require.True(t, ok)
	assert.Equal(t, 5.0, p.TemperatureC)

	_, ok = s.At(start.Add(100 * time.Hour))
	assert.False(t, ok)
}
