// Command seed fills a development database with generated companies,
// employees, posts and reports.
package main

import (
	"context"
	"flag"
	"log"

	"candor/internal/audit"
	"candor/internal/cache"
	"candor/internal/config"
	"candor/internal/database"
	"candor/internal/identity"
	"candor/internal/notifications"
	"candor/internal/repository"
	"candor/internal/seed"
	"candor/internal/service"
)

func main() {
	defaults := seed.DefaultOptions()
	companies := flag.Int("companies", defaults.Companies, "Number of companies to create")
	users := flag.Int("users", defaults.UsersPerCompany, "Employees per company")
	posts := flag.Int("posts", defaults.PostsPerCompany, "Posts per company")
	reports := flag.Int("reports", defaults.ReportsPerCompany, "Reports per company")
	anonymous := flag.Float64("anonymous", defaults.AnonymousShare, "Fraction of posts published anonymously")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	shouldClean := flag.Bool("clean", false, "Delete existing moderation data before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	guard, err := identity.NewGuard(identity.Config{Secret: cfg.IdentitySecret})
	if err != nil {
		log.Fatalf("Failed to build identity guard: %v", err)
	}
	cache.InitRedis(cfg.RedisURL)

	store := repository.NewStore(db)
	emitter := audit.NewEmitter(store.Activities, store.Reports)
	notifier := notifications.NewNotifier(cache.GetClient())
	reportService := service.NewReportService(store, guard, emitter, notifier, service.PolicyFromConfig(cfg))

	s := seed.NewSeeder(db, reportService, seed.Options{
		Companies:         *companies,
		UsersPerCompany:   *users,
		PostsPerCompany:   *posts,
		ReportsPerCompany: *reports,
		AnonymousShare:    *anonymous,
		Seed:              *randSeed,
	})

	ctx := context.Background()
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		log.Println("Existing data cleared")
	}

	result, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d companies: %d users, %d posts, %d comments, %d reports",
		len(result.CompanyIDs), result.Users, result.Posts, result.Comments, result.Reports)
	for _, id := range result.CompanyIDs {
		log.Printf("  company %s", id)
	}
}
