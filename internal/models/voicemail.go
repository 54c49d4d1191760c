package models

import "time"

// VoicemailStatus is the lifecycle state of a voicemail record.
type VoicemailStatus string

const (
	StatusNew        VoicemailStatus = "new"
	StatusInProgress VoicemailStatus = "in_progress"
	StatusReviewed   VoicemailStatus = "reviewed"
	StatusArchived   VoicemailStatus = "archived"
	StatusDeleted    VoicemailStatus = "deleted"
)

// ValidStatuses lists every status the dashboard may set.
var ValidStatuses = []VoicemailStatus{
	StatusNew, StatusInProgress, StatusReviewed, StatusArchived, StatusDeleted,
}

// IsValidStatus reports whether s is a known lifecycle status.
func IsValidStatus(s VoicemailStatus) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Voicemail represents one captured call. Rows are created by the external
// capture process; transcription and summary are filled in asynchronously by
// the transcription service.
type Voicemail struct {
	ID              string          `json:"id" db:"id"`
	AccountID       string          `json:"account_id" db:"account_id"`
	CallerNumber    *string         `json:"caller_number,omitempty" db:"caller_number"`
	DurationSeconds int             `json:"duration_seconds" db:"duration_seconds"`
	ReceivedAt      time.Time       `json:"received_at" db:"received_at"`
	Transcription   *string         `json:"transcription,omitempty" db:"transcription"`
	Summary         *string         `json:"summary,omitempty" db:"summary"`
	Status          VoicemailStatus `json:"status" db:"status"`
	IsRead          bool            `json:"is_read" db:"is_read"`
	IsStarred       bool            `json:"is_starred" db:"is_starred"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// TranscriptionText returns the transcription or "" when unset.
func (v *Voicemail) TranscriptionText() string {
	if v.Transcription == nil {
		return ""
	}
	return *v.Transcription
}

// SummaryText returns the AI summary or "" when unset.
func (v *Voicemail) SummaryText() string {
	if v.Summary == nil {
		return ""
	}
	return *v.Summary
}

// VoicemailFilter carries the dashboard's server-side list parameters.
type VoicemailFilter struct {
	AccountID string
	Status    *VoicemailStatus
	IsRead    *bool
	IsStarred *bool
	Search    string // matches caller number, transcription and summary
	SortBy    string // received_at, duration_seconds, caller_number, status
	SortDesc  bool
	Page      int
	PageSize  int
}

// VoicemailUpdate holds the mutable dashboard fields; nil means unchanged.
type VoicemailUpdate struct {
	Status    *VoicemailStatus `json:"status,omitempty"`
	IsRead    *bool            `json:"is_read,omitempty"`
	IsStarred *bool            `json:"is_starred,omitempty"`
}
