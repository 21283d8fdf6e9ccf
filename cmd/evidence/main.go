// Command evidence prints the full record of one report as YAML.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"candor/internal/audit"
	"candor/internal/config"
	"candor/internal/database"
	"candor/internal/evidence"
	"candor/internal/identity"
	"candor/internal/models"
	"candor/internal/notifications"
	"candor/internal/repository"
	"candor/internal/service"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Println("Usage: evidence <company-id> <report-id>")
		os.Exit(1)
	}
	companyID, reportID := os.Args[1], os.Args[2]

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	guard, err := identity.NewGuard(identity.Config{Secret: cfg.IdentitySecret})
	if err != nil {
		log.Fatalf("Failed to build identity guard: %v", err)
	}

	store := repository.NewStore(db)
	policy := service.PolicyFromConfig(cfg)
	emitter := audit.NewEmitter(store.Activities, store.Reports)
	restrictions := service.NewRestrictionService(store, emitter, notifications.NewNotifier(nil), policy)
	src := evidence.Sources{
		Reports: service.NewReportService(store, guard, emitter, notifications.NewNotifier(nil), policy),
		Audit:   emitter,
		History: service.NewHistoryService(store, restrictions, policy),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Exports run under the company's first admin so the usual tenant checks apply.
	admins, err := store.Users.ListByRole(ctx, companyID, []string{models.RoleAdmin, models.RoleSuperAdmin})
	if err != nil {
		log.Fatalf("Failed to look up company admins: %v", err)
	}
	if len(admins) == 0 {
		log.Fatalf("Company %s has no admin to export as", companyID)
	}

	bundle, err := evidence.Collect(ctx, src, models.ActorFor(&admins[0]), reportID)
	if err != nil {
		log.Fatalf("Failed to collect evidence: %v", err)
	}
	out, err := bundle.YAML()
	if err != nil {
		log.Fatalf("Failed to render evidence: %v", err)
	}
	if _, err := os.Stdout.Write(out); err != nil {
		log.Fatalf("Failed to write evidence: %v", err)
	}
}
