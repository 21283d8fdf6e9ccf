package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"candor/internal/middleware"

	"gorm.io/gorm"
)

// SchemaVersion is one applied migration as recorded in the ledger.
type SchemaVersion struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:64;not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// TableName keeps the ledger apart from the moderation tables.
func (SchemaVersion) TableName() string {
	return "schema_versions"
}

type ledger struct {
	db *gorm.DB
}

func (l ledger) ensure(ctx context.Context) error {
	if err := l.db.WithContext(ctx).AutoMigrate(&SchemaVersion{}); err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}
	return nil
}

// entries lists applied migrations oldest first. A database that has never
// been migrated has no ledger table yet and reports nothing applied.
func (l ledger) entries(ctx context.Context) ([]SchemaVersion, error) {
	var rows []SchemaVersion
	err := l.db.WithContext(ctx).Order("version ASC").Find(&rows).Error
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read schema_versions: %w", err)
	}
	return rows, nil
}

func isMissingTable(err error) bool {
	msg := err.Error()
	return errors.Is(err, gorm.ErrRecordNotFound) ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "no such table")
}

// apply runs m.Up and records it in one transaction.
func (l ledger) apply(ctx context.Context, m Migration) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.Up).Error; err != nil {
			return fmt.Errorf("apply %s: %w", m, err)
		}
		row := SchemaVersion{Version: m.Version, Name: m.Name, Checksum: m.Checksum, AppliedAt: time.Now().UTC()}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("record %s: %w", m, err)
		}
		return nil
	})
}

// revert runs m.Down and drops its ledger row in one transaction.
func (l ledger) revert(ctx context.Context, m Migration) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.Down).Error; err != nil {
			return fmt.Errorf("revert %s: %w", m, err)
		}
		if err := tx.Where("version = ?", m.Version).Delete(&SchemaVersion{}).Error; err != nil {
			return fmt.Errorf("unrecord %s: %w", m, err)
		}
		return nil
	})
}

// verifyLedger fails when the database has migrations this build does not
// know, or when an applied script was edited after it ran.
func verifyLedger(applied []SchemaVersion, known []Migration) error {
	var problems []string
	for _, row := range applied {
		m, ok := findIn(known, row.Version)
		if !ok {
			problems = append(problems, fmt.Sprintf("%06d_%s is applied but unknown to this build", row.Version, row.Name))
			continue
		}
		if row.Checksum != "" && row.Checksum != m.Checksum {
			problems = append(problems, fmt.Sprintf("%s changed after it was applied", m))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("schema ledger mismatch: %s", strings.Join(problems, "; "))
}

// MigrateUp applies every pending embedded migration and returns the ones it ran.
func MigrateUp(ctx context.Context, db *gorm.DB) ([]Migration, error) {
	return migrateUp(ctx, db, registered)
}

func migrateUp(ctx context.Context, db *gorm.DB, set []Migration) ([]Migration, error) {
	l := ledger{db: db}
	if err := l.ensure(ctx); err != nil {
		return nil, err
	}
	applied, err := l.entries(ctx)
	if err != nil {
		return nil, err
	}
	if err := verifyLedger(applied, set); err != nil {
		return nil, err
	}

	done := make(map[int]bool, len(applied))
	for _, row := range applied {
		done[row.Version] = true
	}

	var ran []Migration
	for _, m := range set {
		if done[m.Version] {
			continue
		}
		if err := l.apply(ctx, m); err != nil {
			return ran, err
		}
		middleware.Logger.Info("Schema migration applied",
			slog.Int("schema_version", m.Version),
			slog.String("migration", m.Name),
			slog.String("checksum", m.Checksum),
		)
		ran = append(ran, m)
	}
	return ran, nil
}

// MigrateDown reverts the newest applied migration; version must name it.
func MigrateDown(ctx context.Context, db *gorm.DB, version int) error {
	return migrateDown(ctx, db, registered, version)
}

func migrateDown(ctx context.Context, db *gorm.DB, set []Migration, version int) error {
	m, ok := findIn(set, version)
	if !ok {
		return fmt.Errorf("migration %d is not part of this build", version)
	}
	l := ledger{db: db}
	applied, err := l.entries(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return fmt.Errorf("no migrations are applied")
	}
	if newest := applied[len(applied)-1]; newest.Version != version {
		return fmt.Errorf("migration %d is not the newest applied (%06d_%s is)", version, newest.Version, newest.Name)
	}

	if m.Name == guardMigrationName {
		middleware.Logger.Warn("Removing append-only guards; strikes and audit records become mutable",
			slog.Int("schema_version", m.Version))
	}
	if err := l.revert(ctx, m); err != nil {
		return err
	}
	middleware.Logger.Info("Schema migration reverted",
		slog.Int("schema_version", m.Version),
		slog.String("migration", m.Name),
	)
	return nil
}
