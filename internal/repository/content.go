package repository

import (
	"context"
	"fmt"
	"time"

	"candor/internal/models"

	"gorm.io/gorm"
)

// ContentRepository is the slice of the post/comment store that moderation needs.
type ContentRepository interface {
	Get(ctx context.Context, contentType, contentID string) (*models.ContentRecord, error)
	GetAuthor(ctx context.Context, contentType, contentID string) (*models.ContentAuthor, error)
	// MarkRemoved hides content; false means it was already removed.
	MarkRemoved(ctx context.Context, contentType, contentID, reason, actorID string) (bool, error)
	IncrementReportCount(ctx context.Context, contentType, contentID string) error
}

type contentRepository struct {
	conn
}

func newContentRepository(c conn) ContentRepository {
	return &contentRepository{conn: c}
}

func contentModel(contentType string) (any, error) {
	switch contentType {
	case models.ContentTypePost:
		return &models.Post{}, nil
	case models.ContentTypeComment:
		return &models.Comment{}, nil
	}
	return nil, models.NewValidationError(fmt.Sprintf("unsupported content type %q", contentType))
}

func (r *contentRepository) Get(ctx context.Context, contentType, contentID string) (*models.ContentRecord, error) {
	record := &models.ContentRecord{Type: contentType}
	switch contentType {
	case models.ContentTypePost:
		var post models.Post
		if err := r.write(ctx).Where("id = ?", contentID).First(&post).Error; err != nil {
			return nil, notFound(err, "Post", contentID)
		}
		record.ID, record.CompanyID, record.AuthorID = post.ID, post.CompanyID, post.AuthorID
		record.IsAnonymous, record.Body = post.IsAnonymous, post.Body
		record.IsRemoved, record.ReportCount = post.IsRemoved, post.ReportCount
	case models.ContentTypeComment:
		var comment models.Comment
		if err := r.write(ctx).Where("id = ?", contentID).First(&comment).Error; err != nil {
			return nil, notFound(err, "Comment", contentID)
		}
		record.ID, record.CompanyID, record.AuthorID = comment.ID, comment.CompanyID, comment.AuthorID
		record.IsAnonymous, record.Body = comment.IsAnonymous, comment.Body
		record.IsRemoved, record.ReportCount = comment.IsRemoved, comment.ReportCount
	default:
		_, err := contentModel(contentType)
		return nil, err
	}
	return record, nil
}

func (r *contentRepository) GetAuthor(ctx context.Context, contentType, contentID string) (*models.ContentAuthor, error) {
	record, err := r.Get(ctx, contentType, contentID)
	if err != nil {
		return nil, err
	}
	return &models.ContentAuthor{ID: record.AuthorID, IsAnonymous: record.IsAnonymous}, nil
}

func (r *contentRepository) MarkRemoved(ctx context.Context, contentType, contentID, reason, actorID string) (bool, error) {
	model, err := contentModel(contentType)
	if err != nil {
		return false, err
	}
	res := r.write(ctx).Model(model).
		Where("id = ? AND is_removed = ?", contentID, false).
		Updates(map[string]any{
			"is_removed":     true,
			"removed_reason": reason,
			"removed_by":     actorID,
			"removed_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *contentRepository) IncrementReportCount(ctx context.Context, contentType, contentID string) error {
	model, err := contentModel(contentType)
	if err != nil {
		return err
	}
	res := r.write(ctx).Model(model).
		Where("id = ?", contentID).
		UpdateColumn("report_count", gorm.Expr("report_count + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(contentType, contentID)
	}
	return nil
}
