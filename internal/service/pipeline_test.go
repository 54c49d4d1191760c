package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"voxnow-backend/internal/models"
	"voxnow-backend/internal/repository"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type fakeClassifier struct {
	labels map[models.Category]string
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, voicemailID, transcription, summary string) (*models.Classification, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	labels := f.labels
	if labels == nil {
		labels = map[models.Category]string{
			models.CategorySentiment:  "Negative",
			models.CategoryUrgency:    "Urgent",
			models.CategoryRequest:    "Urgent-Action-Required",
			models.CategoryFieldOfLaw: "Civil",
			models.CategoryCaseStage:  "New-Case",
			models.CategoryIntent:     "Legal-Consultation",
		}
	}
	return &models.Classification{
		Labels:           labels,
		ConfidenceScore:  0.85,
		ModelName:        "test",
		ModelVersion:     "test-1",
		ProcessingTimeMs: 7,
		RawResponse:      "{}",
	}, nil
}

type fakeNotifier struct {
	calls int
	last  *models.Voicemail
}

func (f *fakeNotifier) NotifyUrgent(ctx context.Context, vm *models.Voicemail, labels map[models.Category]string) error {
	f.calls++
	f.last = vm
	return nil
}

type pipelineFixture struct {
	db         *sqlx.DB
	pipeline   *Pipeline
	classifier *fakeClassifier
	notifier   *fakeNotifier
	voicemails *repository.VoicemailRepository
	analyses   *repository.AnalysisRepository
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	db, err := repository.NewDB("sqlite", t.TempDir()+"/test.db", zap.NewNop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clf := &fakeClassifier{}
	notifier := &fakeNotifier{}
	voicemails := repository.NewVoicemailRepository(db, zap.NewNop())
	analyses := repository.NewAnalysisRepository(db, zap.NewNop())

	return &pipelineFixture{
		db:         db,
		pipeline:   NewPipeline(clf, voicemails, analyses, notifier, zap.NewNop()),
		classifier: clf,
		notifier:   notifier,
		voicemails: voicemails,
		analyses:   analyses,
	}
}

func (fx *pipelineFixture) seed(t *testing.T, id, transcription string) *models.Voicemail {
	t.Helper()
	vm := &models.Voicemail{
		ID:         id,
		AccountID:  "acct-1",
		ReceivedAt: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	if transcription != "" {
		vm.Transcription = &transcription
	}
	if err := fx.voicemails.Create(vm); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return vm
}

func TestHandleChangeFullRun(t *testing.T) {
	fx := newPipelineFixture(t)
	vm := fx.seed(t, "vm-1", "Bonjour, j'ai un accident de voiture, c'est urgent.")

	outcome, err := fx.pipeline.HandleChange(context.Background(), vm)
	if err != nil {
		t.Fatalf("handle change: %v", err)
	}
	if outcome.Skipped {
		t.Fatalf("unexpected skip: %s", outcome.Message)
	}
	if len(outcome.Results) != 6 {
		t.Fatalf("results = %d, want 6", len(outcome.Results))
	}

	got, err := fx.voicemails.GetByID("vm-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusReviewed {
		t.Errorf("status = %q, want reviewed", got.Status)
	}

	rows, err := fx.analyses.ListByVoicemail("vm-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("rows = %d, want 6", len(rows))
	}
	for _, row := range rows {
		if row.BatchStatus != models.BatchComplete {
			t.Errorf("row %s batch_status = %q", row.AnalysisType, row.BatchStatus)
		}
	}

	// Urgent classification fires the notifier
	if fx.notifier.calls != 1 {
		t.Errorf("notifier calls = %d, want 1", fx.notifier.calls)
	}
}

func TestHandleChangeSkipsEmptyTranscription(t *testing.T) {
	fx := newPipelineFixture(t)

	for _, transcription := range []string{"", "   \n\t "} {
		vm := &models.Voicemail{ID: "vm-empty", Transcription: &transcription}
		outcome, err := fx.pipeline.HandleChange(context.Background(), vm)
		if err != nil {
			t.Fatalf("handle change: %v", err)
		}
		if !outcome.Skipped || outcome.Message != "skipped: no transcription" {
			t.Fatalf("outcome = %+v", outcome)
		}
	}
	if fx.classifier.calls != 0 {
		t.Errorf("classifier called %d times on empty transcription", fx.classifier.calls)
	}
}

func TestHandleChangeIdempotent(t *testing.T) {
	fx := newPipelineFixture(t)
	vm := fx.seed(t, "vm-1", "bonjour maître")

	if _, err := fx.pipeline.HandleChange(context.Background(), vm); err != nil {
		t.Fatalf("first run: %v", err)
	}

	outcome, err := fx.pipeline.HandleChange(context.Background(), vm)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !outcome.Skipped || outcome.Message != "skipped: already analyzed" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if fx.classifier.calls != 1 {
		t.Errorf("classifier calls = %d, want 1", fx.classifier.calls)
	}

	rows, err := fx.analyses.ListByVoicemail("vm-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("rows = %d, want exactly 6 after rerun", len(rows))
	}
}

func TestHandleChangeRetriesPendingBatch(t *testing.T) {
	fx := newPipelineFixture(t)
	vm := fx.seed(t, "vm-1", "bonjour maître")

	// Strand a pending batch directly: three rows that never completed
	stranded := &models.Classification{
		Labels: map[models.Category]string{
			models.CategorySentiment: "Neutral",
			models.CategoryUrgency:   "Moderate",
			models.CategoryRequest:   "Legal-Advice-Needed",
		},
		ConfidenceScore: 0.85,
	}
	rows := stranded.Results("vm-1", "stranded-batch")[:3]
	for _, row := range rows {
		if _, err := fx.db.Exec(fx.db.Rebind(`
			INSERT INTO analysis_results (
				voicemail_id, batch_id, batch_status, analysis_type, analysis_result,
				confidence_score, ai_model_name, ai_model_version, processing_time_ms,
				raw_response, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			row.VoicemailID, row.BatchID, models.BatchPending, row.AnalysisType,
			row.AnalysisResult, row.ConfidenceScore, row.AIModelName,
			row.AIModelVersion, row.ProcessingTimeMs, row.RawResponse, time.Now().UTC(),
		); err != nil {
			t.Fatalf("insert pending row: %v", err)
		}
	}

	outcome, err := fx.pipeline.HandleChange(context.Background(), vm)
	if err != nil {
		t.Fatalf("handle change: %v", err)
	}
	if outcome.Skipped {
		t.Fatalf("pending batch must re-analyze, got skip: %s", outcome.Message)
	}
	if fx.classifier.calls != 1 {
		t.Errorf("classifier calls = %d, want 1", fx.classifier.calls)
	}

	all, err := fx.analyses.ListByVoicemail("vm-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("rows = %d, want 6 (stranded rows cleared)", len(all))
	}
	for _, row := range all {
		if row.BatchID == "stranded-batch" {
			t.Error("stranded row survived re-analysis")
		}
	}
}

func TestHandleChangeMissingID(t *testing.T) {
	fx := newPipelineFixture(t)

	if _, err := fx.pipeline.HandleChange(context.Background(), &models.Voicemail{}); !errors.Is(err, ErrMissingVoicemailID) {
		t.Fatalf("err = %v, want ErrMissingVoicemailID", err)
	}
	if _, err := fx.pipeline.HandleChange(context.Background(), nil); !errors.Is(err, ErrMissingVoicemailID) {
		t.Fatalf("err = %v, want ErrMissingVoicemailID", err)
	}
}

func TestAnalyzeClassifierFailureWritesNothing(t *testing.T) {
	fx := newPipelineFixture(t)
	vm := fx.seed(t, "vm-1", "bonjour")
	fx.classifier.err = errors.New("network error")

	if _, err := fx.pipeline.HandleChange(context.Background(), vm); err == nil {
		t.Fatal("expected error")
	}

	rows, err := fx.analyses.ListByVoicemail("vm-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows = %d, want 0", len(rows))
	}

	got, err := fx.voicemails.GetByID("vm-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusNew {
		t.Errorf("status = %q, want new (unchanged)", got.Status)
	}
}

func TestAnalyzeSucceedsWhenStatusFlipFails(t *testing.T) {
	fx := newPipelineFixture(t)

	// No voicemail row exists, so SetStatus hits ErrNotFound after the
	// batch commits. The analysis itself must still succeed.
	outcome, err := fx.pipeline.Analyze(context.Background(), "vm-ghost", "bonjour maître", "")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if outcome.Skipped {
		t.Fatalf("unexpected skip: %s", outcome.Message)
	}
	if len(outcome.Results) != 6 {
		t.Fatalf("results = %d, want 6", len(outcome.Results))
	}

	rows, err := fx.analyses.ListByVoicemail("vm-ghost")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("rows = %d, want 6", len(rows))
	}
}

func TestNotUrgentDoesNotNotify(t *testing.T) {
	fx := newPipelineFixture(t)
	vm := fx.seed(t, "vm-1", "bonjour")
	fx.classifier.labels = map[models.Category]string{
		models.CategorySentiment:  "Neutral",
		models.CategoryUrgency:    "Not-Urgent",
		models.CategoryRequest:    "Legal-Advice-Needed",
		models.CategoryFieldOfLaw: "Undetermined",
		models.CategoryCaseStage:  "Case-In-Progress",
		models.CategoryIntent:     "Information-Request",
	}

	if _, err := fx.pipeline.HandleChange(context.Background(), vm); err != nil {
		t.Fatalf("handle change: %v", err)
	}
	if fx.notifier.calls != 0 {
		t.Errorf("notifier calls = %d, want 0", fx.notifier.calls)
	}
}
