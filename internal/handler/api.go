// Package handler exposes the HTTP surface: pipeline function entrypoints,
// the dashboard API, exports, admin auth and the support chat proxy.
package handler

import (
	"errors"
	"net/http"

	"voxnow-backend/internal/models"
	"voxnow-backend/internal/repository"
	"voxnow-backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles HTTP requests.
type Handler struct {
	pipeline   *service.Pipeline
	voicemails *repository.VoicemailRepository
	analyses   *repository.AnalysisRepository
	chat       ChatClient // optional support chatbot backend
	logger     *zap.Logger
}

// NewHandler creates a new API handler. chat may be nil.
func NewHandler(
	pipeline *service.Pipeline,
	voicemails *repository.VoicemailRepository,
	analyses *repository.AnalysisRepository,
	chat ChatClient,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		pipeline:   pipeline,
		voicemails: voicemails,
		analyses:   analyses,
		chat:       chat,
		logger:     logger,
	}
}

// RegisterRoutes registers all API routes. The functions group mirrors the
// hosted cloud-function entrypoints and relies on platform-level network
// access control; the dashboard group requires a session token.
func (h *Handler) RegisterRoutes(r *gin.Engine, sessionRequired gin.HandlerFunc) {
	functions := r.Group("/functions")
	{
		functions.POST("/analyze-voicemail", h.AnalyzeVoicemail)
		functions.POST("/classify-transcript", h.ClassifyTranscript)
	}

	api := r.Group("/api/v1")
	api.Use(sessionRequired)
	{
		api.GET("/voicemails", h.ListVoicemails)
		api.GET("/voicemails/stats", h.GetStats)
		api.GET("/voicemails/:id", h.GetVoicemail)
		api.PATCH("/voicemails/:id", h.UpdateVoicemail)

		api.GET("/export/csv", h.ExportCSV)
		api.GET("/export/xlsx", h.ExportXLSX)

		api.POST("/chat", h.Chat)
	}

	r.GET("/health", h.HealthCheck)
}

// ChangeNotification is the ingestion trigger payload: the full current
// state of a voicemail row plus the change type.
type ChangeNotification struct {
	Record *models.Voicemail `json:"record"`
	Type   string            `json:"type"`
}

// AnalyzeVoicemail is the ingestion trigger entrypoint.
func (h *Handler) AnalyzeVoicemail(c *gin.Context) {
	var req ChangeNotification
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed notification payload", "details": err.Error()})
		return
	}
	if req.Record == nil || req.Record.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "record id is required"})
		return
	}

	outcome, err := h.pipeline.HandleChange(c.Request.Context(), req.Record)
	if err != nil {
		if errors.Is(err, service.ErrMissingVoicemailID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Analysis pipeline failed",
			zap.String("voicemail_id", req.Record.ID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed", "details": err.Error()})
		return
	}

	if outcome.Skipped {
		c.JSON(http.StatusOK, gin.H{"message": outcome.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": outcome.Results})
}

// ClassifyRequest is the classifier entrypoint payload.
type ClassifyRequest struct {
	VoicemailID   string `json:"voicemailId" binding:"required"`
	Transcription string `json:"transcription" binding:"required"`
	Summary       string `json:"summary"`
}

// ClassifyTranscript is the classifier entrypoint: classify and persist
// without the trigger's idempotency guard.
func (h *Handler) ClassifyTranscript(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.pipeline.Analyze(c.Request.Context(), req.VoicemailID, req.Transcription, req.Summary)
	if err != nil {
		h.logger.Error("Classification failed",
			zap.String("voicemail_id", req.VoicemailID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "classification failed", "details": err.Error()})
		return
	}

	var processingTimeMs int64
	if len(outcome.Results) > 0 {
		processingTimeMs = outcome.Results[0].ProcessingTimeMs
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"voicemailId":      req.VoicemailID,
		"analysisCount":    len(outcome.Results),
		"processingTimeMs": processingTimeMs,
	})
}

// HealthCheck returns service health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "voxnow-backend",
	})
}
