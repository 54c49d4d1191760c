package handler

import (
	"errors"
	"net/http"
	"strconv"

	"voxnow-backend/internal/models"
	"voxnow-backend/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// parseFilter reads the dashboard's list query parameters.
func parseFilter(c *gin.Context) models.VoicemailFilter {
	f := models.VoicemailFilter{
		AccountID: c.Query("account_id"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortDesc:  c.DefaultQuery("order", "desc") == "desc",
	}

	if s := c.Query("status"); s != "" {
		status := models.VoicemailStatus(s)
		f.Status = &status
	}
	if v := c.Query("is_read"); v != "" {
		b := v == "true"
		f.IsRead = &b
	}
	if v := c.Query("is_starred"); v != "" {
		b := v == "true"
		f.IsStarred = &b
	}

	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))
	return f
}

// ListVoicemails returns one filtered, sorted page of voicemails.
func (h *Handler) ListVoicemails(c *gin.Context) {
	f := parseFilter(c)
	if f.Status != nil && !models.IsValidStatus(*f.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
		return
	}

	rows, total, err := h.voicemails.List(f)
	if err != nil {
		h.logger.Error("Failed to list voicemails", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list voicemails"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"voicemails": rows,
		"total":      total,
		"page":       f.Page,
		"page_size":  f.PageSize,
	})
}

// GetVoicemail returns one voicemail with its analysis rows.
func (h *Handler) GetVoicemail(c *gin.Context) {
	id := c.Param("id")

	vm, err := h.voicemails.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "voicemail not found"})
			return
		}
		h.logger.Error("Failed to get voicemail", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get voicemail"})
		return
	}

	analyses, err := h.analyses.ListByVoicemail(id)
	if err != nil {
		h.logger.Error("Failed to get analyses", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get analyses"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"voicemail": vm, "analyses": analyses})
}

// UpdateVoicemail applies status/read/star changes from the dashboard.
func (h *Handler) UpdateVoicemail(c *gin.Context) {
	id := c.Param("id")

	var upd models.VoicemailUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if upd.Status != nil && !models.IsValidStatus(*upd.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	vm, err := h.voicemails.Update(id, upd)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "voicemail not found"})
			return
		}
		h.logger.Error("Failed to update voicemail", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update voicemail"})
		return
	}

	c.JSON(http.StatusOK, vm)
}

// GetStats returns label counts per category for the dashboard charts.
func (h *Handler) GetStats(c *gin.Context) {
	counts, err := h.analyses.Stats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	byCategory := make(map[string]map[string]int)
	for _, row := range counts {
		cat := string(row.AnalysisType)
		if byCategory[cat] == nil {
			byCategory[cat] = make(map[string]int)
		}
		byCategory[cat][row.AnalysisResult] = row.Count
	}

	c.JSON(http.StatusOK, gin.H{"by_category": byCategory})
}
