package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxStrikeLevel is the ceiling of the strike ladder.
const MaxStrikeLevel = 3

// UserStrike is an append-only record of a policy violation.
type UserStrike struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	UserID        string    `gorm:"size:36;not null;index:idx_strikes_user_company,priority:1" json:"user_id"`
	CompanyID     string    `gorm:"size:36;not null;index:idx_strikes_user_company,priority:2" json:"company_id"`
	StrikeLevel   int       `gorm:"not null" json:"strike_level"`
	ContentType   string    `gorm:"size:20;not null" json:"content_type"`
	ContentID     string    `gorm:"size:36;not null" json:"content_id"`
	ReportID      string    `gorm:"size:36;not null;index:idx_strikes_report_id" json:"report_id"`
	ViolationType string    `gorm:"size:100;not null" json:"violation_type"`
	Explanation   string    `gorm:"type:text;not null" json:"explanation"`
	IssuedBy      string    `gorm:"size:36;not null" json:"issued_by"`
	IssuedAt      time.Time `gorm:"not null;index:idx_strikes_user_company,priority:3" json:"issued_at"`
}

// TableName pins the table name used by the SQL migrations.
func (UserStrike) TableName() string {
	return "strikes"
}

// BeforeCreate fills the id and issue time.
func (s *UserStrike) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = NewID()
	}
	if s.IssuedAt.IsZero() {
		s.IssuedAt = nowUTC()
	}
	return nil
}

// BeforeUpdate rejects mutation of a recorded strike.
func (s *UserStrike) BeforeUpdate(_ *gorm.DB) error {
	return ErrImmutableRecord
}

// BeforeDelete rejects deletion of a recorded strike.
func (s *UserStrike) BeforeDelete(_ *gorm.DB) error {
	return ErrImmutableRecord
}

// NextStrikeLevel is the level a new strike gets after priorCount strikes.
func NextStrikeLevel(priorCount int64) int {
	if priorCount+1 >= MaxStrikeLevel {
		return MaxStrikeLevel
	}
	if priorCount < 0 {
		return 1
	}
	return int(priorCount) + 1
}
