package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles.
const (
	RoleEmployee   = "employee"
	RoleModerator  = "moderator"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Account statuses.
const (
	AccountStatusActive    = "active"
	AccountStatusSuspended = "suspended"
)

// User is an employee account inside one company (tenant).
type User struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	CompanyID      string     `gorm:"size:36;not null;index:idx_users_company_id" json:"company_id"`
	Email          string     `gorm:"size:255;not null;uniqueIndex:idx_users_email" json:"email"`
	DisplayName    string     `gorm:"size:120" json:"display_name"`
	Role           string     `gorm:"size:20;not null" json:"role"`
	AccountStatus  string     `gorm:"size:20;not null" json:"account_status"`
	SuspendedUntil *time.Time `json:"suspended_until,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// BeforeCreate fills the id and defaults.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	if u.Role == "" {
		u.Role = RoleEmployee
	}
	if u.AccountStatus == "" {
		u.AccountStatus = AccountStatusActive
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = nowUTC()
	}
	return nil
}

// IsModeratorRole reports whether role may review reports.
func IsModeratorRole(role string) bool {
	switch role {
	case RoleModerator, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdminRole reports whether role may lift restrictions.
func IsAdminRole(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// Actor is the authenticated user on whose behalf an operation runs.
type Actor struct {
	UserID    string
	CompanyID string
	Role      string
}

// ActorFor builds the Actor for a loaded user.
func ActorFor(u *User) Actor {
	return Actor{UserID: u.ID, CompanyID: u.CompanyID, Role: u.Role}
}

// CanModerate reports whether the actor may review reports in companyID.
func (a Actor) CanModerate(companyID string) bool {
	return IsModeratorRole(a.Role) && a.CompanyID == companyID
}
