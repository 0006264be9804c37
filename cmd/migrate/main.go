package main

import (
	"log"

	"uploadgate/internal/config"
	"uploadgate/internal/domain/upload"
	"uploadgate/pkg/database"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(db, "migrations",
		&upload.UploadSession{},
		&upload.UploadPart{},
		&upload.UploadEvent{},
	); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	log.Println("Migrations applied")
}
