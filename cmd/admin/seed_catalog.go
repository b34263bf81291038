// Command admin seeds the index-type catalog and schema templates into the
// system-of-record database. Existing rows are left untouched, so it is
// safe to re-run after upgrades.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/nitishxyz/chainhook/internal/catalog"
	"github.com/nitishxyz/chainhook/internal/infra/storage/postgres"
)

func main() {
	databaseURL := flag.String("database-url", "", "System-of-record database URL (defaults to DATABASE_URL)")
	migrationsDir := flag.String("migrations", "migrations", "Path to goose migrations")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	url := *databaseURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		log.Fatal("database URL required: pass -database-url or set DATABASE_URL")
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, postgres.Config{URL: url})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(*migrationsDir); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	types := catalog.IndexTypes()
	templates := catalog.SchemaTemplates()
	if err := postgres.NewCatalogRepo(db).Seed(ctx, types, templates); err != nil {
		log.Fatalf("Failed to seed catalog: %v", err)
	}

	log.Printf("Seeded %d index types and %d schema templates", len(types), len(templates))
}
