// Package seed fills a development database with companies, users, content
// and reports. Reports go through ReportService so they carry the same
// priority, previews and author protection as real submissions.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"candor/internal/middleware"
	"candor/internal/models"
	"candor/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options sizes a seed run.
type Options struct {
	Companies         int
	UsersPerCompany   int
	PostsPerCompany   int
	ReportsPerCompany int
	// AnonymousShare is the fraction of posts published anonymously.
	AnonymousShare float64
	// Seed makes generated content reproducible; 0 picks a random seed.
	Seed int64
}

// DefaultOptions is a small but realistic dataset.
func DefaultOptions() Options {
	return Options{
		Companies:         2,
		UsersPerCompany:   25,
		PostsPerCompany:   60,
		ReportsPerCompany: 20,
		AnonymousShare:    0.3,
	}
}

// Result counts what a run created.
type Result struct {
	CompanyIDs []string
	Users      int
	Posts      int
	Comments   int
	Reports    int
}

// Seeder writes generated data.
type Seeder struct {
	db      *gorm.DB
	reports *service.ReportService
	faker   *gofakeit.Faker
	opts    Options
}

// NewSeeder binds a seeder to db. reports files the generated reports.
func NewSeeder(db *gorm.DB, reports *service.ReportService, opts Options) *Seeder {
	return &Seeder{db: db, reports: reports, faker: gofakeit.New(opts.Seed), opts: opts}
}

// Run seeds every company.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	result := &Result{}
	for i := 0; i < s.opts.Companies; i++ {
		companyID := models.NewID()
		if err := s.seedCompany(ctx, companyID, result); err != nil {
			return result, fmt.Errorf("company %d: %w", i+1, err)
		}
		result.CompanyIDs = append(result.CompanyIDs, companyID)
		middleware.Logger.Info("seeded company", slog.String("company_id", companyID))
	}
	return result, nil
}

func (s *Seeder) seedCompany(ctx context.Context, companyID string, result *Result) error {
	staff := []string{models.RoleAdmin, models.RoleModerator, models.RoleModerator}
	var employees []*models.User
	for i := 0; i < s.opts.UsersPerCompany; i++ {
		role := models.RoleEmployee
		if i < len(staff) {
			role = staff[i]
		}
		user, err := s.CreateUser(ctx, companyID, role)
		if err != nil {
			return err
		}
		result.Users++
		if role == models.RoleEmployee {
			employees = append(employees, user)
		}
	}
	if len(employees) < 2 {
		return nil
	}

	var posts []*models.Post
	for i := 0; i < s.opts.PostsPerCompany; i++ {
		author := employees[s.faker.Number(0, len(employees)-1)]
		post, err := s.CreatePost(ctx, author, s.faker.Float64Range(0, 1) < s.opts.AnonymousShare)
		if err != nil {
			return err
		}
		posts = append(posts, post)
		result.Posts++

		if s.faker.Bool() {
			commenter := employees[s.faker.Number(0, len(employees)-1)]
			if _, err := s.CreateComment(ctx, commenter, post); err != nil {
				return err
			}
			result.Comments++
		}
	}
	if len(posts) == 0 {
		return nil
	}

	reasons := []string{
		models.ReasonHarassment, models.ReasonInappropriate, models.ReasonSpam, models.ReasonFalseInfo,
		models.ReasonDiscrimination, models.ReasonViolence, models.ReasonOther,
	}
	filed := 0
	for attempt := 0; attempt < s.opts.ReportsPerCompany*3 && filed < s.opts.ReportsPerCompany; attempt++ {
		post := posts[s.faker.Number(0, len(posts)-1)]
		reporter := employees[s.faker.Number(0, len(employees)-1)]
		if reporter.ID == post.AuthorID {
			continue
		}
		_, err := s.reports.CreateReport(ctx, service.CreateReportInput{
			ContentType: models.ContentTypePost,
			ContentID:   post.ID,
			Reason:      reasons[s.faker.Number(0, len(reasons)-1)],
			Description: s.faker.Sentence(12),
			ReporterID:  reporter.ID,
			CompanyID:   companyID,
		})
		if models.IsCode(err, models.CodeDuplicateReport) {
			continue
		}
		if err != nil {
			return fmt.Errorf("file report: %w", err)
		}
		filed++
	}
	result.Reports += filed
	return nil
}

// CreateUser persists a generated user.
func (s *Seeder) CreateUser(ctx context.Context, companyID, role string) (*models.User, error) {
	user := &models.User{
		CompanyID:   companyID,
		Email:       fmt.Sprintf("%s.%d@%s", s.faker.Username(), s.faker.Number(1000, 9999), s.faker.DomainName()),
		DisplayName: s.faker.Name(),
		Role:        role,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost persists a generated post by author.
func (s *Seeder) CreatePost(ctx context.Context, author *models.User, anonymous bool) (*models.Post, error) {
	post := &models.Post{
		CompanyID:   author.CompanyID,
		AuthorID:    author.ID,
		IsAnonymous: anonymous,
		Body:        s.faker.Paragraph(1, 3, 12, " "),
	}
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a generated comment by author on post.
func (s *Seeder) CreateComment(ctx context.Context, author *models.User, post *models.Post) (*models.Comment, error) {
	comment := &models.Comment{
		CompanyID: author.CompanyID,
		PostID:    post.ID,
		AuthorID:  author.ID,
		Body:      s.faker.Sentence(10),
	}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// ClearAll empties every moderation table. Raw statements bypass the
// append-only hooks on strikes and audit records, so this is for local
// databases only.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []string{"moderation_activities", "restrictions", "strikes", "reports", "comments", "posts", "users"}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
