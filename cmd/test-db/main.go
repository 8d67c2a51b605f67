// Command test-db opens the configured database, runs migrations and checks
// connectivity. Useful for verifying a deployment target before starting the
// API.
package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/rebuttal-io/rebuttal/internal/config"
	"github.com/rebuttal-io/rebuttal/internal/database"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	log.Printf("config loaded: database type %q", cfg.Database.Type)

	db, dbType, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	log.Printf("database ok: %s reachable, migrations applied", dbType)
}
