package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Activity types written to the audit trail.
const (
	ActivityReportCreated     = "report_created"
	ActivityReportReviewed    = "report_reviewed"
	ActivityReportDismissed   = "report_dismissed"
	ActivityReportEscalated   = "report_escalated"
	ActivityContentRemoved    = "content_removed"
	ActivityStrikeIssued      = "strike_issued"
	ActivityUserRestricted    = "user_restricted"
	ActivityUserSuspended     = "user_suspended"
	ActivityRestrictionLifted = "restriction_lifted"
)

// ErrImmutableRecord is returned when an append-only record would be changed.
var ErrImmutableRecord = errors.New("record is append-only")

// ModerationActivity is one entry in the moderation chain of custody.
type ModerationActivity struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	ActivityType string    `gorm:"size:40;not null" json:"activity_type"`
	ReportID     *string   `gorm:"size:36;index:idx_activities_report_created,priority:1" json:"report_id,omitempty"`
	ContentType  string    `gorm:"size:20" json:"content_type,omitempty"`
	ContentID    string    `gorm:"size:36" json:"content_id,omitempty"`
	ActorUserID  string    `gorm:"size:36;not null" json:"actor_user_id"`
	CompanyID    string    `gorm:"size:36;not null;index:idx_activities_company_created,priority:1" json:"company_id"`
	Metadata     JSONMap   `gorm:"type:jsonb" json:"metadata"`
	CreatedAt    time.Time `gorm:"not null;index:idx_activities_report_created,priority:2;index:idx_activities_company_created,priority:2" json:"created_at"`
}

// TableName pins the table name used by the SQL migrations.
func (ModerationActivity) TableName() string {
	return "moderation_activities"
}

// BeforeCreate fills the id and a UTC timestamp.
func (a *ModerationActivity) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = NewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = nowUTC()
	}
	if a.Metadata == nil {
		a.Metadata = JSONMap{}
	}
	return nil
}

// BeforeUpdate rejects mutation of an audit record.
func (a *ModerationActivity) BeforeUpdate(_ *gorm.DB) error {
	return ErrImmutableRecord
}

// BeforeDelete rejects deletion of an audit record.
func (a *ModerationActivity) BeforeDelete(_ *gorm.DB) error {
	return ErrImmutableRecord
}
