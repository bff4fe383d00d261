package main

import (
	"flag"
	"log"

	"github.com/savora-food/api/internal/config"
	"github.com/savora-food/api/internal/database"
)

func main() {
	down := flag.Bool("down", false, "Roll back every migration instead of applying them")
	flag.Parse()

	cfg := config.Load()

	if *down {
		if err := database.MigrateDown(cfg.DatabaseURL); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("All migrations rolled back")
		return
	}

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations applied")
}
