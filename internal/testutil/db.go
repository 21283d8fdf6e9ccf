// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"

	"candor/internal/database"
	"candor/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory sqlite database with the full schema.
// It is limited to one connection, so code under test must not open a second
// statement outside a transaction it is already running.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := database.GormConfig()
	cfg.Logger = logger.Default.LogMode(logger.Silent)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// CreateUser inserts a user in companyID with role.
func CreateUser(t *testing.T, db *gorm.DB, companyID, role string) *models.User {
	t.Helper()
	id := models.NewID()
	u := &models.User{
		ID:          id,
		CompanyID:   companyID,
		Email:       id + "@example.test",
		DisplayName: "user " + id[len(id)-6:],
		Role:        role,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreatePost inserts a post by author.
func CreatePost(t *testing.T, db *gorm.DB, author *models.User, anonymous bool) *models.Post {
	t.Helper()
	p := &models.Post{
		CompanyID:   author.CompanyID,
		AuthorID:    author.ID,
		IsAnonymous: anonymous,
		Body:        "Quarterly planning feedback from " + author.DisplayName,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

// CreateComment inserts a comment by author on post.
func CreateComment(t *testing.T, db *gorm.DB, author *models.User, post *models.Post) *models.Comment {
	t.Helper()
	c := &models.Comment{
		CompanyID: author.CompanyID,
		PostID:    post.ID,
		AuthorID:  author.ID,
		Body:      "I disagree with this",
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return c
}
