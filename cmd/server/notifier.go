package main

import (
	"context"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/analysis"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/database"
	"github.com/sirupsen/logrus"
)

// persistingNotifier forwards progress events to the websocket hub and
// mirrors state transitions into the analyses table so clients that missed
// the stream can poll.
type persistingNotifier struct {
	next     analysis.Notifier
	analyses database.AnalysisRepository
	log      *logrus.Logger
}

func (n *persistingNotifier) StateChanged(analysisID string, state analysis.State) {
	n.next.StateChanged(analysisID, state)

	// Terminal states are written by the run loop together with the result
	// payload; intermediate ones are mirrored here.
	switch state {
	case analysis.StateCompleted, analysis.StateFailed, analysis.StateCancelled:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.analyses.UpdateState(ctx, analysisID, string(state)); err != nil {
		n.log.WithError(err).WithField("analysis_id", analysisID).Warn("Failed to persist analysis state")
	}
}

func (n *persistingNotifier) StageStarted(analysisID, stage string) {
	n.next.StageStarted(analysisID, stage)
}

func (n *persistingNotifier) StageCompleted(analysisID, stage string, degraded bool) {
	n.next.StageCompleted(analysisID, stage, degraded)
}
