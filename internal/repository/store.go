package repository

import (
	"context"

	"candor/internal/cache"

	"gorm.io/gorm"
)

// Store groups the moderation repositories over one connection so services
// can run multi-table writes in a single transaction.
type Store struct {
	db   *gorm.DB
	conn conn

	Reports      ReportRepository
	Strikes      StrikeRepository
	Restrictions RestrictionRepository
	Activities   ActivityRepository
	Content      ContentRepository
	Users        UserRepository
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) *Store {
	return newStore(conn{db: db})
}

func newStore(c conn) *Store {
	return &Store{
		db:           c.db,
		conn:         c,
		Reports:      newReportRepository(c),
		Strikes:      newStrikeRepository(c),
		Restrictions: newRestrictionRepository(c),
		Activities:   newActivityRepository(c),
		Content:      newContentRepository(c),
		Users:        newUserRepository(c),
	}
}

// DB exposes the underlying handle for health checks and seeding.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn with a Store whose repositories share one transaction.
// Any error returned by fn rolls everything back. Cached user rows written
// inside fn are invalidated after the outermost commit.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	if s.conn.inTx {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(newStore(conn{db: tx, inTx: true, stale: s.conn.stale}))
		})
	}
	var stale []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newStore(conn{db: tx, inTx: true, stale: &stale}))
	})
	if err != nil {
		return err
	}
	for _, id := range stale {
		cache.InvalidateUser(ctx, id)
	}
	return nil
}
