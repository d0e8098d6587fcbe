package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/conversa/conversa-backend/internal/config"
	"github.com/conversa/conversa-backend/internal/database"
)

func main() {
	rollback := flag.Bool("rollback", false, "Roll back the last migration instead of migrating up")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	if *rollback {
		if err := database.RollbackMigration(cfg.Database); err != nil {
			log.Fatal("Failed to rollback migration:", err)
		}
		log.Println("Rolled back last migration")
		return
	}

	if err := database.RunMigrations(cfg.Database); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	log.Println("Migrations applied")
}
