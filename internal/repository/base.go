// Package repository implements the data access layer for the moderation store.
package repository

import (
	"context"

	"candor/internal/cache"
	"candor/internal/database"

	"gorm.io/gorm"
)

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// conn is embedded by every repository. Inside a transaction all statements
// go through the transaction handle; outside one, listing reads may use the replica.
type conn struct {
	db   *gorm.DB
	inTx bool
	// stale collects user ids written inside a transaction; their cache
	// entries are dropped only once the transaction commits.
	stale *[]string
}

func (c conn) invalidateUser(ctx context.Context, id string) {
	if c.inTx {
		*c.stale = append(*c.stale, id)
		return
	}
	cache.InvalidateUser(ctx, id)
}

func (c conn) write(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx)
}

// listing is for queue reads that tolerate replica lag. Evidence reads stay
// on the primary so a resolved report always has its full trail.
func (c conn) listing(ctx context.Context) *gorm.DB {
	if c.inTx {
		return c.db.WithContext(ctx)
	}
	return readDB(c.db).WithContext(ctx)
}
