// Package classifier turns a voicemail transcription into the six fixed
// category labels via an external language model call.
package classifier

import (
	"context"
	"encoding/json"
	"time"

	"voxnow-backend/internal/llm"
	"voxnow-backend/internal/models"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// FixedConfidence is recorded on every result row. The models used here do
// not report calibrated confidences, so a constant is stored instead.
const FixedConfidence = 0.85

// CompletionClient is the subset of the provider surface the classifier
// needs. *llm.MultiProviderClient satisfies it.
type CompletionClient interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error)
	ModelInfo() (name, version string)
}

// Config tunes the model call.
type Config struct {
	Temperature     float32
	MaxOutputTokens int
	MaxAttempts     int           // bounded retries around the provider call
	AttemptTimeout  time.Duration // per-attempt deadline
}

// Classifier produces one Classification per voicemail.
type Classifier struct {
	client CompletionClient
	cfg    Config
	logger *zap.Logger
}

// New creates a classifier backed by the given provider.
func New(client CompletionClient, cfg Config, logger *zap.Logger) *Classifier {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = 500
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.AttemptTimeout == 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	return &Classifier{client: client, cfg: cfg, logger: logger}
}

// Classify calls the model and returns exactly six labels. A completion that
// cannot be parsed as JSON falls back to the fixed defaults; only a provider
// failure after all retry attempts is an error.
func (c *Classifier) Classify(ctx context.Context, voicemailID, transcription, summary string) (*models.Classification, error) {
	req := llm.CompletionRequest{
		System:      SystemInstruction,
		User:        BuildPrompt(transcription, summary),
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxOutputTokens,
	}

	start := time.Now()
	completion, err := c.complete(ctx, req)
	latency := time.Since(start)
	if err != nil {
		return nil, err
	}

	result := &models.Classification{
		Labels:           make(map[models.Category]string, len(models.Categories)),
		ConfidenceScore:  FixedConfidence,
		ModelName:        completion.ModelName,
		ModelVersion:     completion.ModelVersion,
		ProcessingTimeMs: latency.Milliseconds(),
		RawResponse:      completion.Text,
	}

	parsed, ok := parseLabels(completion.Text)
	if !ok {
		// Always produce six labels; accuracy is secondary to completeness.
		c.logger.Warn("Model response not parseable, using default labels",
			zap.String("voicemail_id", voicemailID),
			zap.String("raw_response", completion.Text))
		result.UsedFallback = true
		for cat, label := range models.DefaultLabels {
			result.Labels[cat] = label
		}
		return result, nil
	}

	for _, cat := range models.Categories {
		label := parsed[cat]
		if !models.IsValidLabel(cat, label) {
			c.logger.Warn("Out-of-vocabulary label coerced",
				zap.String("voicemail_id", voicemailID),
				zap.String("category", string(cat)),
				zap.String("label", label))
			label = models.LabelUnclassified
			result.CoercedLabels++
		}
		result.Labels[cat] = label
	}

	c.logger.Info("Voicemail classified",
		zap.String("voicemail_id", voicemailID),
		zap.String("model", result.ModelVersion),
		zap.Int64("latency_ms", result.ProcessingTimeMs),
		zap.Bool("fallback", result.UsedFallback),
		zap.Int("coerced", result.CoercedLabels))

	return result, nil
}

// complete runs the provider call under bounded exponential backoff.
func (c *Classifier) complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	var completion *llm.Completion

	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		defer cancel()

		res, err := c.client.Complete(attemptCtx, req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		completion = res
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.cfg.MaxAttempts-1)),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return completion, nil
}

// parseLabels decodes the completion into per-category labels. Missing keys
// parse to "" and are handled by vocabulary coercion. Returns ok=false when
// the text is not a JSON object at all.
func parseLabels(text string) (map[models.Category]string, bool) {
	var raw map[string]string
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &raw); err != nil {
		return nil, false
	}

	labels := make(map[models.Category]string, len(models.Categories))
	for key, cat := range responseKeys {
		labels[cat] = raw[key]
	}
	return labels, true
}
