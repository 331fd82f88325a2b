package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/config"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/profile"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/timeseries"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/weather"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/pkg/errors"
	"github.com/sirupsen/logrus"
)

// HTTPPredictor calls the trained forecasting model service over HTTP.
// Feature engineering lives behind that service; this client only ships the
// canonical series, profile and forecast weather across the wire.
type HTTPPredictor struct {
	url    string
	client *http.Client
	logger *logrus.Logger
}

// NewHTTPPredictor creates a predictor client from configuration.
func NewHTTPPredictor(cfg config.PredictorConfig, logger *logrus.Logger) *HTTPPredictor {
	timeout := config.ParseDuration(cfg.Timeout, 60*time.Second)
	return &HTTPPredictor{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type predictRequest struct {
	Series  []timeseries.Point `json:"series"`
	Profile profile.Profile    `json:"profile"`
	Weather []weather.Point    `json:"weather"`
}

type predictResponse struct {
	Points []Point `json:"points"`
}

// Predict requests the 168-hour prediction from the model service.
func (p *HTTPPredictor) Predict(ctx context.Context, series *timeseries.Series, prof profile.Profile, forecastWeather weather.Series) ([]Point, error) {
	payload, err := json.Marshal(predictRequest{
		Series:  series.Points,
		Profile: prof,
		Weather: forecastWeather.Points,
	})
	if err != nil {
		return nil, &errors.ExternalServiceError{Service: "predictor", Op: "predict", Message: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, &errors.ExternalServiceError{Service: "predictor", Op: "predict", Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewExternalTimeout("predictor", "predict", err)
		}
		return nil, &errors.ExternalServiceError{
			Service: "predictor", Op: "predict",
			Message: "request failed", Retryable: true, Err: err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &errors.ExternalServiceError{
			Service: "predictor", Op: "predict",
			Message:   fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
			Retryable: resp.StatusCode >= 500,
		}
	}

	var decoded predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &errors.ExternalServiceError{Service: "predictor", Op: "predict", Message: "failed to decode response", Err: err}
	}

	p.logger.WithField("points", len(decoded.Points)).Debug("Predictor returned forecast")
	return decoded.Points, nil
}
