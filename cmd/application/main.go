package main

import (
	"log"
	"os"

	"pricewatch_api/config"
	"pricewatch_api/internal/pricing/app"
	"pricewatch_api/pkg/dbconnect/postgres"
)

func main() {
	log.Printf("\nStarted app\n")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", configPath, err)
	}

	connector := postgres.NewPgConnector(&cfg.Postgres)
	server := app.NewPricewatchServer(connector, cfg, os.Stdout)
	server.Run()
}
