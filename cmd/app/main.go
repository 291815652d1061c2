package main

import (
	"context"
	"flag"
	"log"
	"os"

	"FinCast/internal/di"
	"FinCast/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s source=%s models=%d", cfg.Environment, cfg.Source.Type, len(cfg.Models))

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
