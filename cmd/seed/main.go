// Command seed populates the store with demo accounts and a relationship
// mesh for development and load testing.
package main

import (
	"context"
	"flag"
	"log"

	"warhorse/internal/config"
	"warhorse/internal/database"
	"warhorse/internal/seed"
	"warhorse/internal/store"
)

func main() {
	users := flag.Int("users", 50, "Number of users to create")
	friends := flag.Int("friends", 3, "Friendships per user")
	requests := flag.Int("requests", 2, "Pending outgoing requests per user")
	blocks := flag.Int("blocks", 1, "Blocks per user")
	skipBcrypt := flag.Bool("skip-bcrypt", false, "Store the shared password unhashed (only with AUTH_VERIFY_PASSWORDS=false)")
	randSeed := flag.Int64("seed", 1, "Generator seed for reproducible data")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.StoreBackend == config.StoreMemory {
		log.Fatal("STORE_BACKEND is memory; seeded data would vanish with this process")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := seed.Options{
		Users:           *users,
		FriendsPerUser:  *friends,
		RequestsPerUser: *requests,
		BlocksPerUser:   *blocks,
		SkipBcrypt:      *skipBcrypt,
		Seed:            *randSeed,
	}
	seeder := seed.NewSeeder(seed.NewFactory(store.NewGormStore(db), opts))

	if _, err := seeder.SeedSocialMesh(context.Background()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("All done. Every demo account has the password: password123")
}
