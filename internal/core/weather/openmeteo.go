package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/config"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/pkg/errors"
	"github.com/sirupsen/logrus"
)

const openMeteoHourlyFields = "temperature_2m,relative_humidity_2m,wind_speed_10m"

// OpenMeteoClient implements Provider against the Open-Meteo forecast and
// archive APIs.
type OpenMeteoClient struct {
	forecastURL string
	archiveURL  string
	client      *http.Client
	logger      *logrus.Logger
}

// NewOpenMeteoClient creates a weather client from configuration.
func NewOpenMeteoClient(cfg config.WeatherConfig, logger *logrus.Logger) *OpenMeteoClient {
	timeout := config.ParseDuration(cfg.Timeout, 30*time.Second)
	return &OpenMeteoClient{
		forecastURL: cfg.BaseURL,
		archiveURL:  cfg.ArchiveURL,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// openMeteoResponse is the shared hourly payload shape of both APIs.
type openMeteoResponse struct {
	Hourly struct {
		Time             []string  `json:"time"`
		Temperature2M    []float64 `json:"temperature_2m"`
		RelativeHumidity []float64 `json:"relative_humidity_2m"`
		WindSpeed10M     []float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
}

// Fetch retrieves historical hourly observations for the given range.
func (c *OpenMeteoClient) Fetch(ctx context.Context, lat, lon float64, start, end time.Time) (Series, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", lat))
	params.Set("longitude", fmt.Sprintf("%.4f", lon))
	params.Set("start_date", start.Format("2006-01-02"))
	params.Set("end_date", end.Format("2006-01-02"))
	params.Set("hourly", openMeteoHourlyFields)
	params.Set("timezone", "UTC")

	return c.get(ctx, "fetch", c.archiveURL, params)
}

// Forecast retrieves the forward hourly forecast for the given horizon.
func (c *OpenMeteoClient) Forecast(ctx context.Context, lat, lon float64, horizonHours int) (Series, error) {
	days := (horizonHours + 23) / 24
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", lat))
	params.Set("longitude", fmt.Sprintf("%.4f", lon))
	params.Set("hourly", openMeteoHourlyFields)
	params.Set("forecast_days", fmt.Sprintf("%d", days))
	params.Set("timezone", "UTC")

	series, err := c.get(ctx, "forecast", c.forecastURL, params)
	if err != nil {
		return Series{}, err
	}
	if len(series.Points) > horizonHours {
		series.Points = series.Points[:horizonHours]
	}
	return series, nil
}

func (c *OpenMeteoClient) get(ctx context.Context, op, baseURL string, params url.Values) (Series, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Series{}, &errors.ExternalServiceError{Service: "open-meteo", Op: op, Message: "failed to build request", Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Series{}, errors.NewExternalTimeout("open-meteo", op, err)
		}
		return Series{}, &errors.ExternalServiceError{
			Service: "open-meteo", Op: op,
			Message: "request failed", Retryable: true, Err: err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Series{}, &errors.ExternalServiceError{
			Service: "open-meteo", Op: op,
			Message:   fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
			Retryable: resp.StatusCode >= 500,
		}
	}

	var payload openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Series{}, &errors.ExternalServiceError{Service: "open-meteo", Op: op, Message: "failed to decode response", Err: err}
	}

	points := make([]Point, 0, len(payload.Hourly.Time))
	for i, raw := range payload.Hourly.Time {
		ts, err := time.Parse("2006-01-02T15:04", raw)
		if err != nil {
			continue
		}
		p := Point{Timestamp: ts}
		if i < len(payload.Hourly.Temperature2M) {
			p.TemperatureC = payload.Hourly.Temperature2M[i]
		}
		if i < len(payload.Hourly.RelativeHumidity) {
			p.HumidityPercent = payload.Hourly.RelativeHumidity[i]
		}
		if i < len(payload.Hourly.WindSpeed10M) {
			p.WindSpeedKPH = payload.Hourly.WindSpeed10M[i]
		}
		points = append(points, p)
	}

	c.logger.WithFields(logrus.Fields{"op": op, "points": len(points)}).Debug("Weather data fetched")

	return Series{Points: points}, nil
}
