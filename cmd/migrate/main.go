package main

import (
	"log"

	"ringi/internal/app/config"
	"ringi/internal/app/repository"
)

func main() {
	// Загрузка конфигурации (config.toml, .env, переменные окружения)
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch cfg.Table.Driver {
	case "postgres", "sqlite":
	default:
		log.Fatalf("table.driver=%s does not need migration", cfg.Table.Driver)
	}

	// Подключение к базе данных
	db, err := repository.Open(cfg.Table.Driver, cfg.Table.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Connected to database successfully")

	if err = repository.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database migration completed successfully")
}
