package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/config"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/analysis"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/ingestion"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/profile"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/timeseries"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/database"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxUploadBytes = 32 << 20 // 32MB

// UploadDataset accepts a CSV dataset plus optional questionnaire answers
// and creates an upload session.
func (h *Handlers) UploadDataset(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, errors.ErrBadRequest.WithDetails("missing file field in multipart form"))
		return
	}
	defer file.Close()

	sessionID := uuid.New().String()
	if err := os.MkdirAll(h.cfg.Storage.UploadPath, 0755); err != nil {
		respondInternal(c, h.log, err, "failed to prepare upload storage")
		return
	}
	datasetPath := filepath.Join(h.cfg.Storage.UploadPath, sessionID+".csv")

	dst, err := os.Create(datasetPath)
	if err != nil {
		respondInternal(c, h.log, err, "failed to store dataset")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(datasetPath)
		respondInternal(c, h.log, err, "failed to store dataset")
		return
	}
	dst.Close()

	rows, err := h.parseDataset(datasetPath)
	if err != nil {
		os.Remove(datasetPath)
		respondError(c, errors.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	answers := c.PostForm("answers")
	if answers == "" {
		answers = "{}"
	} else if !json.Valid([]byte(answers)) {
		os.Remove(datasetPath)
		respondError(c, errors.ErrBadRequest.WithDetails("answers must be a JSON object"))
		return
	}

	session := &database.Session{
		ID:          sessionID,
		DatasetPath: datasetPath,
		RowCount:    len(rows),
		Answers:     answers,
	}
	if err := h.repos.Sessions.Create(c.Request.Context(), session); err != nil {
		os.Remove(datasetPath)
		respondInternal(c, h.log, err, "failed to create session")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": sessionID,
		"row_count":  len(rows),
	})
}

type analyzeRequest struct {
	SessionID string           `json:"session_id" binding:"required"`
	Answers   *profile.Answers `json:"answers"`
}

// StartAnalysis launches the pipeline for an uploaded session and returns
// immediately with the analysis identifier. Progress streams over /ws and
// the result lands at /results/:id.
func (h *Handlers) StartAnalysis(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	session, err := h.repos.Sessions.GetByID(c.Request.Context(), req.SessionID)
	if err != nil {
		respondInternal(c, h.log, err, "failed to load session")
		return
	}
	if session == nil {
		respondError(c, errors.ErrNotFound.WithDetails("unknown session_id"))
		return
	}

	answers := profile.Answers{}
	if req.Answers != nil {
		answers = *req.Answers
	} else if session.Answers != "" {
		if err := json.Unmarshal([]byte(session.Answers), &answers); err != nil {
			respondError(c, errors.ErrBadRequest.WithDetails("session has no usable questionnaire answers"))
			return
		}
	}

	rows, err := h.parseDataset(session.DatasetPath)
	if err != nil {
		respondError(c, errors.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	analysisID := uuid.New().String()
	record := &database.AnalysisRecord{
		ID:        analysisID,
		SessionID: session.ID,
		State:     string(analysis.StatePending),
	}
	if err := h.repos.Analyses.Create(c.Request.Context(), record); err != nil {
		respondInternal(c, h.log, err, "failed to create analysis")
		return
	}

	go h.runAnalysis(analysisID, session.ID, rows, answers)

	c.JSON(http.StatusAccepted, gin.H{
		"analysis_id": analysisID,
		"state":       analysis.StatePending,
	})
}

// runAnalysis drives the engine to completion in the background and
// persists the terminal record.
func (h *Handlers) runAnalysis(analysisID, sessionID string, rows []timeseries.RawRow, answers profile.Answers) {
	runTimeout := 4 * config.ParseDuration(h.cfg.Analysis.StageTimeout, 90*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	result, err := h.engine.Run(ctx, analysis.Request{
		AnalysisID: analysisID,
		SessionID:  sessionID,
		Rows:       rows,
		Answers:    answers,
	})

	storeCtx, storeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer storeCancel()

	if err != nil {
		state := analysis.StateFailed
		if ctx.Err() != nil {
			state = analysis.StateCancelled
		}
		if dbErr := h.repos.Analyses.SetError(storeCtx, analysisID, string(state), err.Error()); dbErr != nil {
			h.log.WithError(dbErr).Error("Failed to persist analysis error")
		}
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		h.log.WithError(err).Error("Failed to encode analysis result")
		_ = h.repos.Analyses.SetError(storeCtx, analysisID, string(analysis.StateFailed), "failed to encode result")
		return
	}
	if err := h.repos.Analyses.SetResult(storeCtx, analysisID, string(analysis.StateCompleted), payload); err != nil {
		h.log.WithError(err).Error("Failed to persist analysis result")
	}
}

// GetResult returns the state of an analysis and, once completed, the full
// result document.
func (h *Handlers) GetResult(c *gin.Context) {
	record, err := h.repos.Analyses.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondInternal(c, h.log, err, "failed to load analysis")
		return
	}
	if record == nil {
		respondError(c, errors.ErrNotFound.WithDetails("unknown analysis id"))
		return
	}

	response := gin.H{
		"analysis_id": record.ID,
		"session_id":  record.SessionID,
		"state":       record.State,
		"created_at":  record.CreatedAt,
		"updated_at":  record.UpdatedAt,
	}
	if record.Error != "" {
		response["error"] = record.Error
	}
	if len(record.Result) > 0 {
		response["result"] = json.RawMessage(record.Result)
	}

	c.JSON(http.StatusOK, response)
}

// ListSessions returns all upload sessions, newest first.
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions, err := h.repos.Sessions.List(c.Request.Context())
	if err != nil {
		respondInternal(c, h.log, err, "failed to list sessions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// ListAnalyses returns recent analyses, optionally filtered by session.
func (h *Handlers) ListAnalyses(c *gin.Context) {
	if sessionID := c.Query("session_id"); sessionID != "" {
		records, err := h.repos.Analyses.ListBySession(c.Request.Context(), sessionID)
		if err != nil {
			respondInternal(c, h.log, err, "failed to list analyses")
			return
		}
		c.JSON(http.StatusOK, gin.H{"analyses": records})
		return
	}

	records, err := h.repos.Analyses.List(c.Request.Context(), 50)
	if err != nil {
		respondInternal(c, h.log, err, "failed to list analyses")
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": records})
}

func (h *Handlers) parseDataset(path string) ([]timeseries.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &timeseries.InvalidDatasetError{Reason: "dataset file is no longer available"}
	}
	defer f.Close()
	return ingestion.ParseCSV(f)
}
