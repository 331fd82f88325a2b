package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/config"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/analysis"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestNewHub_TimingFromConfig(t *testing.T) {
	h := NewHub(config.WebSocketConfig{PingInterval: 5, WriteTimeout: 3}, testLogger())

	assert.Equal(t, 5*time.Second, h.pingPeriod)
	assert.Equal(t, 3*time.Second, h.writeWait)
	assert.Equal(t, 10*time.Second, h.pongWait, "pong deadline is twice the ping period")
}

func TestNewHub_ZeroConfigUsesDefaults(t *testing.T) {
	h := NewHub(config.WebSocketConfig{}, testLogger())

	assert.Equal(t, 30*time.Second, h.pingPeriod)
	assert.Equal(t, 10*time.Second, h.writeWait)
	assert.Equal(t, 60*time.Second, h.pongWait)
}

func TestHub_PublishesNotifierEvents(t *testing.T) {
	h := NewHub(config.WebSocketConfig{}, testLogger())

	h.StateChanged("a1", analysis.StateAggregating)
	h.StageCompleted("a1", "model_forecasted", true)

	var state Message
	require.NoError(t, json.Unmarshal(<-h.broadcast, &state))
	assert.Equal(t, "state", state.Type)
	assert.Equal(t, "a1", state.AnalysisID)
	assert.Equal(t, string(analysis.StateAggregating), state.State)
	assert.False(t, state.Timestamp.IsZero())

	var stage Message
	require.NoError(t, json.Unmarshal(<-h.broadcast, &stage))
	assert.Equal(t, "stage_completed", stage.Type)
	assert.Equal(t, "model_forecasted", stage.Stage)
	assert.True(t, stage.Degraded)
}
