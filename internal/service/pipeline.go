// Package service orchestrates the voicemail analysis pipeline: ingestion
// trigger, classifier, result writer, strictly in that order.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"voxnow-backend/internal/models"
	"voxnow-backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrMissingVoicemailID marks a malformed change notification.
var ErrMissingVoicemailID = errors.New("voicemail id is required")

// TranscriptClassifier is the classifier stage contract.
type TranscriptClassifier interface {
	Classify(ctx context.Context, voicemailID, transcription, summary string) (*models.Classification, error)
}

// Notifier receives best-effort alerts about urgent voicemails.
type Notifier interface {
	NotifyUrgent(ctx context.Context, vm *models.Voicemail, labels map[models.Category]string) error
}

// Outcome reports what one pipeline invocation did.
type Outcome struct {
	Skipped bool                     `json:"skipped"`
	Message string                   `json:"message,omitempty"`
	Results []*models.AnalysisResult `json:"results,omitempty"`
}

// Pipeline wires the three stages together.
type Pipeline struct {
	classifier TranscriptClassifier
	voicemails *repository.VoicemailRepository
	analyses   *repository.AnalysisRepository
	notifier   Notifier // optional
	logger     *zap.Logger
}

// NewPipeline creates the pipeline. notifier may be nil.
func NewPipeline(
	classifier TranscriptClassifier,
	voicemails *repository.VoicemailRepository,
	analyses *repository.AnalysisRepository,
	notifier Notifier,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		voicemails: voicemails,
		analyses:   analyses,
		notifier:   notifier,
		logger:     logger,
	}
}

// HandleChange is the ingestion trigger: it decides, on notification of a
// data change, whether analysis should run for the record, then runs it.
func (p *Pipeline) HandleChange(ctx context.Context, record *models.Voicemail) (*Outcome, error) {
	if record == nil || record.ID == "" {
		return nil, ErrMissingVoicemailID
	}

	if strings.TrimSpace(record.TranscriptionText()) == "" {
		p.logger.Info("Skipping analysis: no transcription",
			zap.String("voicemail_id", record.ID))
		return &Outcome{Skipped: true, Message: "skipped: no transcription"}, nil
	}

	state, err := p.analyses.GetBatchState(record.ID)
	if err != nil {
		return nil, fmt.Errorf("idempotency check failed: %w", err)
	}
	if state != nil {
		if state.Status == models.BatchComplete {
			p.logger.Info("Skipping analysis: already analyzed",
				zap.String("voicemail_id", record.ID),
				zap.String("batch_id", state.BatchID))
			return &Outcome{Skipped: true, Message: "skipped: already analyzed"}, nil
		}
		// A pending batch is a stranded attempt, not a completed analysis.
		p.logger.Warn("Clearing stranded pending batch before re-analysis",
			zap.String("voicemail_id", record.ID),
			zap.String("batch_id", state.BatchID),
			zap.Int("rows", state.Rows))
		if err := p.analyses.DeleteBatch(state.BatchID); err != nil {
			return nil, fmt.Errorf("failed to clear pending batch: %w", err)
		}
	}

	return p.Analyze(ctx, record.ID, record.TranscriptionText(), record.SummaryText())
}

// Analyze runs the classifier and result writer for one voicemail. The six
// rows are written all-or-nothing; the status flip to reviewed afterwards is
// best-effort and never fails the operation.
func (p *Pipeline) Analyze(ctx context.Context, voicemailID, transcription, summary string) (*Outcome, error) {
	if voicemailID == "" {
		return nil, ErrMissingVoicemailID
	}
	if strings.TrimSpace(transcription) == "" {
		return nil, fmt.Errorf("transcription is required")
	}

	classification, err := p.classifier.Classify(ctx, voicemailID, transcription, summary)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	batchID := uuid.New().String()
	results := classification.Results(voicemailID, batchID)
	if err := p.analyses.SaveBatch(results); err != nil {
		return nil, fmt.Errorf("failed to persist analysis batch: %w", err)
	}

	if err := p.voicemails.SetStatus(voicemailID, models.StatusReviewed); err != nil {
		// The analysis itself succeeded; a missed status flip is logged only.
		p.logger.Error("Failed to mark voicemail reviewed",
			zap.String("voicemail_id", voicemailID),
			zap.Error(err))
	}

	p.notifyIfUrgent(ctx, voicemailID, classification)

	p.logger.Info("Analysis batch written",
		zap.String("voicemail_id", voicemailID),
		zap.String("batch_id", batchID),
		zap.Int("rows", len(results)))

	return &Outcome{Results: results}, nil
}

func (p *Pipeline) notifyIfUrgent(ctx context.Context, voicemailID string, c *models.Classification) {
	if p.notifier == nil || c.Labels[models.CategoryUrgency] != "Urgent" {
		return
	}
	vm, err := p.voicemails.GetByID(voicemailID)
	if err != nil {
		p.logger.Warn("Urgent notification skipped: voicemail lookup failed",
			zap.String("voicemail_id", voicemailID),
			zap.Error(err))
		return
	}
	if err := p.notifier.NotifyUrgent(ctx, vm, c.Labels); err != nil {
		p.logger.Warn("Urgent notification failed",
			zap.String("voicemail_id", voicemailID),
			zap.Error(err))
	}
}
