// Command main runs the database seeder for Inkwell.
package main

import (
	"context"
	"flag"
	"log"

	"inkwell/internal/bootstrap"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/repository"
	"inkwell/internal/seed"
	"inkwell/internal/service"
)

func main() {
	defaults := seed.DefaultOptions()
	numEditors := flag.Int("editors", defaults.NumEditors, "Number of editors to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	maxViews := flag.Int("max-views", defaults.MaxViews, "Maximum views per post")
	maxComments := flag.Int("max-comments", defaults.MaxComments, "Maximum comments per post")
	fixture := flag.String("fixture", "", "Load a YAML fixture instead of generating data")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible output")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	ctx := context.Background()
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	opts := defaults
	opts.NumEditors = *numEditors
	opts.NumPosts = *numPosts
	opts.MaxViews = *maxViews
	opts.MaxComments = *maxComments
	opts.Seed = *randSeed

	// Writing through the cached repository retires stale listings.
	posts := repository.NewPostRepository(db, cache.New(rdb))
	users := service.NewUserService(repository.NewUserRepository(db))
	f := seed.NewFactory(posts, users, opts)

	var sum seed.Summary
	if *fixture != "" {
		fx, err := seed.LoadFixture(*fixture)
		if err != nil {
			log.Fatalf("Failed to load fixture: %v", err)
		}
		sum, err = f.Apply(ctx, fx)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
	} else {
		sum, err = f.Run(ctx)
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Printf("Generated editors have the password: %s", opts.DefaultPassword)
	}

	log.Printf("Seeded %s", sum)
}
