package models

import "time"

// Category identifies one of the six analyses produced per voicemail.
type Category string

const (
	CategorySentiment  Category = "sentiment"
	CategoryUrgency    Category = "urgency"
	CategoryRequest    Category = "request_category"
	CategoryFieldOfLaw Category = "field_of_law"
	CategoryCaseStage  Category = "case_stage"
	CategoryIntent     Category = "intent"
)

// Categories is the fixed enumeration order. Result rows are inserted in this
// order and the classifier always emits exactly one label per entry.
var Categories = []Category{
	CategorySentiment,
	CategoryUrgency,
	CategoryRequest,
	CategoryFieldOfLaw,
	CategoryCaseStage,
	CategoryIntent,
}

// LabelUnclassified is the sentinel a label coerces to when the model returns
// a value outside the category's vocabulary.
const LabelUnclassified = "Unclassified"

// Vocabularies maps each category to its closed label set.
var Vocabularies = map[Category][]string{
	CategorySentiment: {"Positive", "Negative", "Neutral"},
	CategoryUrgency:   {"Urgent", "Moderate", "Not-Urgent"},
	CategoryRequest: {
		"Legal-Advice-Needed", "Case-Update-Requested", "Payment-Request",
		"Document-To-Provide", "Document-To-Receive", "Appointment-Requested",
		"Urgent-Action-Required", "Case-In-Progress",
	},
	CategoryFieldOfLaw: {
		"Contract", "Family", "Labor", "Civil", "Administrative/Public",
		"Criminal", "Business/Commercial", "Consumer", "Banking/Finance",
		"Inheritance", "Real-Estate", "Undetermined",
	},
	CategoryCaseStage: {"New-Case", "Case-In-Progress", "Case-Closing", "Follow-Up-Needed"},
	CategoryIntent: {
		"Information-Request", "Appointment-Booking", "Complaint", "Payment",
		"Document-Submission", "Legal-Consultation", "Case-Follow-Up",
	},
}

// DefaultLabels is the fixed fallback used when the model response cannot be
// parsed. The pipeline always produces six labels; accuracy is secondary to
// completeness.
var DefaultLabels = map[Category]string{
	CategorySentiment:  "Neutral",
	CategoryUrgency:    "Not-Urgent",
	CategoryRequest:    "Legal-Advice-Needed",
	CategoryFieldOfLaw: "Undetermined",
	CategoryCaseStage:  "Case-In-Progress",
	CategoryIntent:     "Information-Request",
}

// IsValidCategory reports whether c is one of the six analysis categories.
func IsValidCategory(c Category) bool {
	_, ok := Vocabularies[c]
	return ok
}

// IsValidLabel reports whether label belongs to the category's closed
// vocabulary. The Unclassified sentinel is always accepted.
func IsValidLabel(c Category, label string) bool {
	if label == LabelUnclassified {
		return true
	}
	for _, l := range Vocabularies[c] {
		if l == label {
			return true
		}
	}
	return false
}

// BatchStatus tracks whether every row of an analysis batch is committed.
// A pending batch is treated as a failed attempt and re-analyzed.
type BatchStatus string

const (
	BatchPending  BatchStatus = "pending"
	BatchComplete BatchStatus = "complete"
)

// AnalysisResult is one categorical judgment about a voicemail. Rows are
// written exclusively by the result writer and never updated afterwards.
type AnalysisResult struct {
	ID               int64       `json:"id" db:"id"`
	VoicemailID      string      `json:"voicemail_id" db:"voicemail_id"`
	BatchID          string      `json:"batch_id" db:"batch_id"`
	BatchStatus      BatchStatus `json:"batch_status" db:"batch_status"`
	AnalysisType     Category    `json:"analysis_type" db:"analysis_type"`
	AnalysisResult   string      `json:"analysis_result" db:"analysis_result"`
	ConfidenceScore  float64     `json:"confidence_score" db:"confidence_score"`
	AIModelName      string      `json:"ai_model_name" db:"ai_model_name"`
	AIModelVersion   string      `json:"ai_model_version" db:"ai_model_version"`
	ProcessingTimeMs int64       `json:"processing_time_ms" db:"processing_time_ms"`
	RawResponse      string      `json:"raw_response" db:"raw_response"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
}

// Classification is the classifier's output for one voicemail: exactly one
// label per category plus audit metadata shared by the six rows.
type Classification struct {
	Labels           map[Category]string
	ConfidenceScore  float64
	ModelName        string
	ModelVersion     string
	ProcessingTimeMs int64
	RawResponse      string
	UsedFallback     bool
	CoercedLabels    int
}

// Results expands the classification into six rows in enumeration order.
func (c *Classification) Results(voicemailID, batchID string) []*AnalysisResult {
	rows := make([]*AnalysisResult, 0, len(Categories))
	for _, cat := range Categories {
		rows = append(rows, &AnalysisResult{
			VoicemailID:      voicemailID,
			BatchID:          batchID,
			BatchStatus:      BatchPending,
			AnalysisType:     cat,
			AnalysisResult:   c.Labels[cat],
			ConfidenceScore:  c.ConfidenceScore,
			AIModelName:      c.ModelName,
			AIModelVersion:   c.ModelVersion,
			ProcessingTimeMs: c.ProcessingTimeMs,
			RawResponse:      c.RawResponse,
		})
	}
	return rows
}
