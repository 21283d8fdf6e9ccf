package database

import "candor/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.ContentReport{},
		&models.UserStrike{},
		&models.UserRestriction{},
		&models.ModerationActivity{},
	}
}
