package models

import (
	"time"

	"gorm.io/gorm"
)

// Report statuses.
const (
	ReportStatusPending     = "pending"
	ReportStatusUnderReview = "under_review"
	ReportStatusResolved    = "resolved"
	ReportStatusDismissed   = "dismissed"
)

// Report reasons.
const (
	ReasonHarassment     = "harassment"
	ReasonInappropriate  = "inappropriate"
	ReasonSpam           = "spam"
	ReasonFalseInfo      = "false_info"
	ReasonDiscrimination = "discrimination"
	ReasonViolence       = "violence"
	ReasonOther          = "other"
)

// Moderation actions.
const (
	ActionDismiss          = "dismiss"
	ActionRemoveContent    = "remove_content"
	ActionRemoveAndWarn    = "remove_and_warn"
	ActionEscalate         = "escalate"
	ActionRemoveAndSuspend = "remove_and_suspend"
)

// Report priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// HighPriorityReportCount is the number of reports on one piece of content
// that forces a report to high priority.
const HighPriorityReportCount = 3

// DefaultRetentionYears is how long reports are kept for legal evidence.
const DefaultRetentionYears = 7

// ContentReport is a user-submitted flag against a post or comment.
type ContentReport struct {
	ID                 string     `gorm:"primaryKey;size:36" json:"id"`
	ContentType        string     `gorm:"size:20;not null;index:idx_reports_content,priority:1" json:"content_type"`
	ContentID          string     `gorm:"size:36;not null;index:idx_reports_content,priority:2;uniqueIndex:idx_reports_content_reporter,priority:1" json:"content_id"`
	Reason             string     `gorm:"size:30;not null" json:"reason"`
	Description        string     `gorm:"type:text" json:"description"`
	ReporterID         string     `gorm:"size:36;not null;uniqueIndex:idx_reports_content_reporter,priority:2" json:"-"`
	CompanyID          string     `gorm:"size:36;not null;index:idx_reports_company_created,priority:1" json:"company_id"`
	Status             string     `gorm:"size:20;not null;index:idx_reports_status" json:"status"`
	ContentAuthorID    string     `gorm:"size:36" json:"-"`
	AuthorIsAnonymous  bool       `gorm:"not null;default:false" json:"author_is_anonymous"`
	ContentAuthorToken string     `gorm:"type:text" json:"-"`
	ContentPreview     string     `gorm:"type:text" json:"content_preview"`
	ReviewedBy         *string    `gorm:"size:36" json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time `json:"reviewed_at,omitempty"`
	ModeratorNotes     string     `gorm:"type:text" json:"moderator_notes,omitempty"`
	ActionTaken        string     `gorm:"size:30" json:"action_taken,omitempty"`
	EscalatedTo        string     `gorm:"size:20" json:"escalated_to,omitempty"`
	EscalatedAt        *time.Time `json:"escalated_at,omitempty"`
	Priority           string     `gorm:"size:10;not null" json:"priority"`
	LegalHold          bool       `gorm:"not null;default:false" json:"legal_hold"`
	RetentionYears     int        `gorm:"not null" json:"retention_years"`
	CreatedAt          time.Time  `gorm:"index:idx_reports_company_created,priority:2" json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName pins the table name used by the SQL migrations.
func (ContentReport) TableName() string {
	return "reports"
}

// BeforeCreate fills the id, status and retention defaults.
func (r *ContentReport) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.Status == "" {
		r.Status = ReportStatusPending
	}
	if r.Priority == "" {
		r.Priority = PriorityFor(r.Reason, 0)
	}
	if r.RetentionYears <= 0 {
		r.RetentionYears = DefaultRetentionYears
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = nowUTC()
	}
	return nil
}

// IsOpen reports whether a moderation action may still be applied.
func (r *ContentReport) IsOpen() bool {
	return r.Status == ReportStatusPending || r.Status == ReportStatusUnderReview
}

// IsEscalated reports whether the report was handed to a super admin.
func (r *ContentReport) IsEscalated() bool {
	return r.EscalatedTo != ""
}

// PriorityFor derives the triage priority of a report from its reason and
// how many reports the content already carries.
func PriorityFor(reason string, existingReports int64) string {
	if existingReports+1 >= HighPriorityReportCount {
		return PriorityHigh
	}
	switch reason {
	case ReasonViolence, ReasonDiscrimination, ReasonHarassment:
		return PriorityHigh
	case ReasonInappropriate, ReasonFalseInfo:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// IsValidAction reports whether action is a known moderation action.
func IsValidAction(action string) bool {
	switch action {
	case ActionDismiss, ActionRemoveContent, ActionRemoveAndWarn, ActionEscalate, ActionRemoveAndSuspend:
		return true
	}
	return false
}

// ActionRequiresViolation reports whether action issues a strike and so needs
// a violation type and an explanation.
func ActionRequiresViolation(action string) bool {
	return action == ActionRemoveAndWarn || action == ActionRemoveAndSuspend
}

// ActionRemovesContent reports whether action hides the reported content.
func ActionRemovesContent(action string) bool {
	switch action {
	case ActionRemoveContent, ActionRemoveAndWarn, ActionRemoveAndSuspend:
		return true
	}
	return false
}
