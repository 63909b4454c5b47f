package main

import (
	"flag"
	"log"
	"os"

	"marketpulse/internal/di"
	"marketpulse/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s symbols=%v kafka=%v redis=%v",
		cfg.Environment, cfg.Streams.Symbols, cfg.Kafka.Enabled, cfg.Redis.Enabled)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run blocks until a shutdown signal arrives
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
