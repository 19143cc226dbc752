// Command seed loads demo content into the blog database.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/quantu99/Test-Beincom-BE/internal/config"
	"github.com/quantu99/Test-Beincom-BE/internal/database"
	"github.com/quantu99/Test-Beincom-BE/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 0, "Number of generated users to add on top of the fixtures")
	numPosts := flag.Int("posts", 0, "Number of generated posts to add")
	comments := flag.Int("comments", 5, "Maximum generated comments per generated post")
	maxDays := flag.Int("days", 90, "Spread generated posts over this many days")
	skipFixtures := flag.Bool("no-fixtures", false, "Skip the fixture users and posts")
	shouldClean := flag.Bool("clean", false, "Delete all users, posts, comments and likes first")
	dryRun := flag.Bool("dry-run", false, "Build everything but write nothing")
	verbose := flag.Bool("v", false, "Log every created entity in dry-run mode")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	res, err := seed.Seed(context.Background(), db, seed.Options{
		NumUsers:        *numUsers,
		NumPosts:        *numPosts,
		CommentsPerPost: *comments,
		MaxDays:         *maxDays,
		SkipFixtures:    *skipFixtures,
		ShouldClean:     *shouldClean,
		DryRun:          *dryRun,
		Verbose:         *verbose,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! Created %s.", res)
	if !*skipFixtures {
		log.Println("📧 Fixture users have the password: password123")
	}
}
