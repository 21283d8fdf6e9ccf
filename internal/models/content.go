package models

import (
	"time"

	"gorm.io/gorm"
)

// Content types that can be reported.
const (
	ContentTypePost    = "post"
	ContentTypeComment = "comment"
)

// ModerationState holds the moderation columns shared by posts and comments.
type ModerationState struct {
	IsRemoved     bool       `gorm:"not null;default:false" json:"is_removed"`
	RemovedReason string     `gorm:"size:500" json:"removed_reason,omitempty"`
	RemovedBy     *string    `gorm:"size:36" json:"removed_by,omitempty"`
	RemovedAt     *time.Time `json:"removed_at,omitempty"`
	ReportCount   int        `gorm:"not null;default:0" json:"report_count"`
}

// Post is the minimal view of a feedback post the moderation core needs.
type Post struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	CompanyID       string          `gorm:"size:36;not null;index:idx_posts_company_id" json:"company_id"`
	AuthorID        string          `gorm:"size:36;not null;index:idx_posts_author_id" json:"-"`
	IsAnonymous     bool            `gorm:"not null;default:false" json:"is_anonymous"`
	Body            string          `gorm:"type:text;not null" json:"body"`
	ModerationState `gorm:"embedded"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// BeforeCreate fills the id.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = nowUTC()
	}
	return nil
}

// Comment is the minimal view of a comment on a post.
type Comment struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	CompanyID       string          `gorm:"size:36;not null;index:idx_comments_company_id" json:"company_id"`
	PostID          string          `gorm:"size:36;not null;index:idx_comments_post_id" json:"post_id"`
	AuthorID        string          `gorm:"size:36;not null;index:idx_comments_author_id" json:"-"`
	IsAnonymous     bool            `gorm:"not null;default:false" json:"is_anonymous"`
	Body            string          `gorm:"type:text;not null" json:"body"`
	ModerationState `gorm:"embedded"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// BeforeCreate fills the id.
func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = nowUTC()
	}
	return nil
}

// ContentRecord is a type-agnostic projection of a post or comment.
type ContentRecord struct {
	Type        string
	ID          string
	CompanyID   string
	AuthorID    string
	IsAnonymous bool
	Body        string
	IsRemoved   bool
	ReportCount int
}

// ContentAuthor is what the content store reveals about an author.
type ContentAuthor struct {
	ID          string
	IsAnonymous bool
}

// IsValidContentType reports whether t names a reportable content type.
func IsValidContentType(t string) bool {
	return t == ContentTypePost || t == ContentTypeComment
}
