package websocket

import (
	"encoding/json"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/config"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/analysis"
	"github.com/sirupsen/logrus"
)

// Message is one progress event pushed to connected clients.
type Message struct {
	Type       string    `json:"type"`
	AnalysisID string    `json:"analysis_id"`
	State      string    `json:"state,omitempty"`
	Stage      string    `json:"stage,omitempty"`
	Degraded   bool      `json:"degraded,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Hub broadcasts analysis progress to all connected websocket clients.
// It implements analysis.Notifier so the engine can push events without
// knowing about transports.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     *logrus.Logger

	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
}

// NewHub creates a new websocket hub. Ping and write timing come from the
// websocket config section, in seconds.
func NewHub(cfg config.WebSocketConfig, logger *logrus.Logger) *Hub {
	pingPeriod := time.Duration(cfg.PingInterval) * time.Second
	if pingPeriod <= 0 {
		pingPeriod = 30 * time.Second
	}
	writeWait := time.Duration(cfg.WriteTimeout) * time.Second
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
		writeWait:  writeWait,
		// Pong deadline must outlast the ping period
		pongWait:   2 * pingPeriod,
		pingPeriod: pingPeriod,
	}
}

// Run processes register, unregister and broadcast events until the
// process exits. Call in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.WithField("client_id", client.ID).Debug("WebSocket client connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.WithField("client_id", client.ID).Debug("WebSocket client disconnected")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer, drop it rather than blocking the hub
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

func (h *Hub) publish(msg Message) {
	msg.Timestamp = time.Now().UTC()
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode progress message")
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("Progress broadcast buffer full, dropping message")
	}
}

// StateChanged implements analysis.Notifier.
func (h *Hub) StateChanged(analysisID string, state analysis.State) {
	h.publish(Message{Type: "state", AnalysisID: analysisID, State: string(state)})
}

// StageStarted implements analysis.Notifier.
func (h *Hub) StageStarted(analysisID, stage string) {
	h.publish(Message{Type: "stage_started", AnalysisID: analysisID, Stage: stage})
}

// StageCompleted implements analysis.Notifier.
func (h *Hub) StageCompleted(analysisID, stage string, degraded bool) {
	h.publish(Message{Type: "stage_completed", AnalysisID: analysisID, Stage: stage, Degraded: degraded})
}
