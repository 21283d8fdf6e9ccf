package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"candor/internal/config"
	"candor/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes accepted by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaPlan is what ApplySchema will do for one environment.
type SchemaPlan struct {
	Mode string
	Env  string
	// SQL runs the embedded migrations, the only path that installs the
	// append-only triggers.
	SQL bool
	// Auto runs GORM AutoMigrate over PersistentModels.
	Auto bool
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// PlanSchema resolves DB_SCHEMA_MODE for cfg.Env. Production-like
// environments never AutoMigrate.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	plan := SchemaPlan{Mode: mode, Env: cfg.Env}
	prodLike := isProdLikeEnv(cfg.Env)

	switch mode {
	case SchemaModeSQL:
		plan.SQL = true
	case SchemaModeAuto:
		if prodLike {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q: it cannot install the append-only guards", cfg.Env)
		}
		plan.Auto = true
	case SchemaModeHybrid:
		plan.SQL, plan.Auto = true, !prodLike
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
	return plan, nil
}

// AutoMigrate creates or updates every persistent table from the GORM models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the moderation schema up to date according to DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}

	if plan.SQL {
		ran, err := MigrateUp(ctx, db)
		if err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
		middleware.Logger.Info("Moderation schema migrated", slog.Int("applied", len(ran)), slog.String("env", plan.Env))
	}
	if plan.Auto {
		if err := AutoMigrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	if !plan.SQL {
		middleware.Logger.Warn("Append-only guards not installed; strikes and audit records are mutable",
			slog.String("mode", plan.Mode), slog.String("env", plan.Env))
	}
	return nil
}

// SchemaStatus reports the ledger against the embedded migrations.
type SchemaStatus struct {
	Plan            SchemaPlan
	Applied         []SchemaVersion
	Pending         []Migration
	GuardsInstalled bool
	// Drift is set when the ledger names unknown or edited migrations.
	Drift error
}

// InspectSchema reads the ledger without changing anything.
func InspectSchema(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	applied, err := ledger{db: db}.entries(ctx)
	if err != nil {
		return nil, err
	}
	return statusOf(plan, applied, registered), nil
}

func statusOf(plan SchemaPlan, applied []SchemaVersion, set []Migration) *SchemaStatus {
	status := &SchemaStatus{Plan: plan, Applied: applied, Drift: verifyLedger(applied, set)}
	done := make(map[int]bool, len(applied))
	for _, row := range applied {
		done[row.Version] = true
		if row.Name == guardMigrationName {
			status.GuardsInstalled = true
		}
	}
	for _, m := range set {
		if !done[m.Version] {
			status.Pending = append(status.Pending, m)
		}
	}
	return status
}
