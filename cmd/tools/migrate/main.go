package main

import (
	"log"
	"strings"

	"github.com/joho/godotenv"

	"github.com/CortekUK/drive-247-sub013/internal/config"
	"github.com/CortekUK/drive-247-sub013/internal/db"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("run migrations: %v", err)
	}
	log.Println("Migrations applied")
}
