package models

import (
	"time"

	"gorm.io/gorm"
)

// Restriction types.
const (
	RestrictionPosting        = "posting"
	RestrictionCommenting     = "commenting"
	RestrictionFullSuspension = "full_suspension"
)

// UserRestriction is a time-boxed limitation on a user. Rows are never deleted.
type UserRestriction struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	UserID          string     `gorm:"size:36;not null;index:idx_restrictions_user_active,priority:1" json:"user_id"`
	CompanyID       string     `gorm:"size:36;not null;index:idx_restrictions_user_active,priority:2" json:"company_id"`
	RestrictionType string     `gorm:"size:20;not null" json:"restriction_type"`
	StrikeID        *string    `gorm:"size:36;uniqueIndex:idx_restrictions_strike_id" json:"strike_id,omitempty"`
	StartedAt       time.Time  `gorm:"not null" json:"started_at"`
	EndsAt          time.Time  `gorm:"not null;index:idx_restrictions_ends_at" json:"ends_at"`
	Reason          string     `gorm:"type:text" json:"reason"`
	IsActive        bool       `gorm:"not null;index:idx_restrictions_user_active,priority:3" json:"is_active"`
	LiftedBy        *string    `gorm:"size:36" json:"lifted_by,omitempty"`
	LiftedAt        *time.Time `json:"lifted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName pins the table name used by the SQL migrations.
func (UserRestriction) TableName() string {
	return "restrictions"
}

// BeforeCreate fills the id.
func (r *UserRestriction) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = nowUTC()
	}
	return nil
}

// ExpiredAt reports whether the restriction has run out at now.
func (r *UserRestriction) ExpiredAt(now time.Time) bool {
	return !r.EndsAt.After(now)
}

// Blocks reports whether the restriction forbids creating contentType.
func (r *UserRestriction) Blocks(contentType string) bool {
	switch r.RestrictionType {
	case RestrictionFullSuspension:
		return true
	case RestrictionPosting:
		return contentType == ContentTypePost
	case RestrictionCommenting:
		return contentType == ContentTypeComment
	}
	return false
}
