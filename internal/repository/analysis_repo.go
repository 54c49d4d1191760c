package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"voxnow-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// AnalysisRepository handles analysis result rows.
type AnalysisRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewAnalysisRepository creates a new repository.
func NewAnalysisRepository(db *sqlx.DB, logger *zap.Logger) *AnalysisRepository {
	return &AnalysisRepository{db: db, logger: logger}
}

// BatchState describes the analysis rows present for a voicemail.
type BatchState struct {
	BatchID string
	Status  models.BatchStatus
	Rows    int
}

// GetBatchState reports whether a voicemail already has analysis rows and in
// what state. Returns nil when none exist. A pending batch is a stranded
// attempt and should be cleared and re-analyzed, never treated as done.
func (r *AnalysisRepository) GetBatchState(voicemailID string) (*BatchState, error) {
	var state BatchState
	query := r.db.Rebind(`
		SELECT batch_id, batch_status, COUNT(*) AS row_count
		FROM analysis_results
		WHERE voicemail_id = ?
		GROUP BY batch_id, batch_status
		ORDER BY batch_status ASC
		LIMIT 1`)

	row := r.db.QueryRow(query, voicemailID)
	if err := row.Scan(&state.BatchID, &state.Status, &state.Rows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query batch state: %w", err)
	}
	return &state, nil
}

// DeleteBatch removes every row of a stranded pending batch.
func (r *AnalysisRepository) DeleteBatch(batchID string) error {
	query := r.db.Rebind(`DELETE FROM analysis_results WHERE batch_id = ?`)
	if _, err := r.db.Exec(query, batchID); err != nil {
		return fmt.Errorf("failed to delete analysis batch: %w", err)
	}
	return nil
}

// SaveBatch persists all six category rows in one transaction. Either every
// row lands with batch_status complete or none land at all; a partial batch
// can never strand a voicemail as half-analyzed.
func (r *AnalysisRepository) SaveBatch(results []*models.AnalysisResult) error {
	if len(results) == 0 {
		return fmt.Errorf("empty analysis batch")
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := r.db.Rebind(`
		INSERT INTO analysis_results (
			voicemail_id, batch_id, batch_status, analysis_type, analysis_result,
			confidence_score, ai_model_name, ai_model_version, processing_time_ms,
			raw_response, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	now := time.Now().UTC()
	for _, res := range results {
		res.CreatedAt = now
		if _, err := tx.Exec(insert,
			res.VoicemailID, res.BatchID, models.BatchPending, res.AnalysisType,
			res.AnalysisResult, res.ConfidenceScore, res.AIModelName,
			res.AIModelVersion, res.ProcessingTimeMs, res.RawResponse, res.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert analysis row (%s): %w", res.AnalysisType, err)
		}
	}

	// Flip the whole batch to complete as the final statement of the tx.
	flip := r.db.Rebind(`UPDATE analysis_results SET batch_status = ? WHERE batch_id = ?`)
	if _, err := tx.Exec(flip, models.BatchComplete, results[0].BatchID); err != nil {
		return fmt.Errorf("failed to complete analysis batch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit analysis batch: %w", err)
	}

	for _, res := range results {
		res.BatchStatus = models.BatchComplete
	}
	return nil
}

// ListByVoicemail returns the analysis rows for one voicemail in category
// enumeration order.
func (r *AnalysisRepository) ListByVoicemail(voicemailID string) ([]*models.AnalysisResult, error) {
	query := r.db.Rebind(`
		SELECT * FROM analysis_results
		WHERE voicemail_id = ?
		ORDER BY id ASC`)

	var rows []*models.AnalysisResult
	if err := r.db.Select(&rows, query, voicemailID); err != nil {
		return nil, fmt.Errorf("failed to list analysis results: %w", err)
	}
	return rows, nil
}

// LabelsForVoicemails returns the complete-batch labels for a set of
// voicemails, keyed by voicemail id then category. Used by the exports.
func (r *AnalysisRepository) LabelsForVoicemails(ids []string) (map[string]map[models.Category]string, error) {
	out := make(map[string]map[models.Category]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`
		SELECT voicemail_id, analysis_type, analysis_result
		FROM analysis_results
		WHERE batch_status = ? AND voicemail_id IN (?)`,
		models.BatchComplete, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build labels query: %w", err)
	}

	rows, err := r.db.Query(r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, result string
		var cat models.Category
		if err := rows.Scan(&id, &cat, &result); err != nil {
			return nil, fmt.Errorf("failed to scan label row: %w", err)
		}
		if out[id] == nil {
			out[id] = make(map[models.Category]string, len(models.Categories))
		}
		out[id][cat] = result
	}
	return out, rows.Err()
}

// LabelCount is one (category, label, count) aggregation row.
type LabelCount struct {
	AnalysisType   models.Category `json:"analysis_type" db:"analysis_type"`
	AnalysisResult string          `json:"analysis_result" db:"analysis_result"`
	Count          int             `json:"count" db:"count"`
}

// Stats aggregates label counts per category for the dashboard charts. Only
// complete batches count.
func (r *AnalysisRepository) Stats() ([]LabelCount, error) {
	query := r.db.Rebind(`
		SELECT analysis_type, analysis_result, COUNT(*) AS count
		FROM analysis_results
		WHERE batch_status = ?
		GROUP BY analysis_type, analysis_result
		ORDER BY analysis_type, count DESC`)

	var rows []LabelCount
	if err := r.db.Select(&rows, query, models.BatchComplete); err != nil {
		return nil, fmt.Errorf("failed to aggregate analysis stats: %w", err)
	}
	return rows, nil
}
