package classifier

import (
	"fmt"
	"strings"

	"voxnow-backend/internal/models"
)

// SystemInstruction pins the model to the classification task. The six keys
// and their vocabularies are spelled out verbatim so the completion can be
// parsed without any mapping step.
const SystemInstruction = `You are a classification engine for a law firm's voicemail inbox.
You receive the transcription of one voicemail left by a client or prospect, optionally with a short summary.
Respond with ONLY a JSON object, no prose, no markdown, containing exactly these six keys:

"sentiment": one of "Positive", "Negative", "Neutral"
"urgency": one of "Urgent", "Moderate", "Not-Urgent"
"request_category": one of "Legal-Advice-Needed", "Case-Update-Requested", "Payment-Request", "Document-To-Provide", "Document-To-Receive", "Appointment-Requested", "Urgent-Action-Required", "Case-In-Progress"
"field_of_law": one of "Contract", "Family", "Labor", "Civil", "Administrative/Public", "Criminal", "Business/Commercial", "Consumer", "Banking/Finance", "Inheritance", "Real-Estate", "Undetermined"
"case_stage": one of "New-Case", "Case-In-Progress", "Case-Closing", "Follow-Up-Needed"
"intent": one of "Information-Request", "Appointment-Booking", "Complaint", "Payment", "Document-Submission", "Legal-Consultation", "Case-Follow-Up"

Values must be copied exactly as written above, in English, title case. The voicemail itself may be in French or Dutch.`

// BuildPrompt assembles the user message for one voicemail.
func BuildPrompt(transcription, summary string) string {
	var b strings.Builder
	b.WriteString("Classify this voicemail.\n\nTranscription:\n")
	b.WriteString(transcription)
	if strings.TrimSpace(summary) != "" {
		b.WriteString("\n\nSummary:\n")
		b.WriteString(summary)
	}
	b.WriteString("\n\nReturn the JSON object only.")
	return b.String()
}

// stripCodeFences removes optional markdown code fences around a completion.
func stripCodeFences(s string) string {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

// responseKeys maps JSON keys back to categories; keys match the prompt.
var responseKeys = map[string]models.Category{
	"sentiment":        models.CategorySentiment,
	"urgency":          models.CategoryUrgency,
	"request_category": models.CategoryRequest,
	"field_of_law":     models.CategoryFieldOfLaw,
	"case_stage":       models.CategoryCaseStage,
	"intent":           models.CategoryIntent,
}

func init() {
	if len(responseKeys) != len(models.Categories) {
		panic(fmt.Sprintf("response keys out of sync with categories: %d != %d",
			len(responseKeys), len(models.Categories)))
	}
}
