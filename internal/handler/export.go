package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"voxnow-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var exportHeader = []string{
	"id", "caller_number", "received_at", "duration_seconds", "status",
	"transcription", "summary",
	"sentiment", "urgency", "request_category", "field_of_law", "case_stage", "intent",
}

// exportRows collects every voicemail matching the filter (paging through
// the repository) together with its complete-batch labels.
func (h *Handler) exportRows(c *gin.Context) ([][]string, error) {
	f := parseFilter(c)
	f.Page = 1
	f.PageSize = 200

	var all []*models.Voicemail
	for {
		page, total, err := h.voicemails.List(f)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(all) >= total || len(page) == 0 {
			break
		}
		f.Page++
	}

	ids := make([]string, len(all))
	for i, vm := range all {
		ids[i] = vm.ID
	}
	labels, err := h.analyses.LabelsForVoicemails(ids)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(all)+1)
	rows = append(rows, exportHeader)
	for _, vm := range all {
		caller := ""
		if vm.CallerNumber != nil {
			caller = *vm.CallerNumber
		}
		l := labels[vm.ID]
		rows = append(rows, []string{
			vm.ID,
			caller,
			vm.ReceivedAt.Format(time.RFC3339),
			fmt.Sprintf("%d", vm.DurationSeconds),
			string(vm.Status),
			vm.TranscriptionText(),
			vm.SummaryText(),
			l[models.CategorySentiment],
			l[models.CategoryUrgency],
			l[models.CategoryRequest],
			l[models.CategoryFieldOfLaw],
			l[models.CategoryCaseStage],
			l[models.CategoryIntent],
		})
	}
	return rows, nil
}

// ExportCSV streams the filtered voicemails and their labels as CSV.
func (h *Handler) ExportCSV(c *gin.Context) {
	rows, err := h.exportRows(c)
	if err != nil {
		h.logger.Error("CSV export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=voicemails.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			h.logger.Error("CSV write failed", zap.Error(err))
			return
		}
	}
}

// ExportXLSX renders the same rows as an Excel workbook.
func (h *Handler) ExportXLSX(c *gin.Context) {
	rows, err := h.exportRows(c)
	if err != nil {
		h.logger.Error("XLSX export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	book := excelize.NewFile()
	defer book.Close()

	const sheet = "Voicemails"
	book.SetSheetName(book.GetSheetName(0), sheet)
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := book.SetSheetRow(sheet, cell, &row); err != nil {
			h.logger.Error("XLSX row write failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=voicemails.xlsx")
	if err := book.Write(c.Writer); err != nil {
		h.logger.Error("XLSX write failed", zap.Error(err))
	}
}
