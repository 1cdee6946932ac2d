package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"inventory-bot-backend/config"
	"inventory-bot-backend/internal/db"
	"inventory-bot-backend/internal/seed"
)

func main() {
	var (
		fixturesPath = flag.String("fixtures", "", "Path to the fixtures YAML file")
		clean        = flag.Bool("clean", false, "Delete all rows before loading")
	)
	flag.Parse()

	if *fixturesPath == "" && !*clean {
		flag.Usage()
		os.Exit(2)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger := config.NewLogger(cfg.Log)

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}

	ctx := context.Background()

	if *clean {
		if err := seed.Clean(ctx, gormDB, logger); err != nil {
			logger.WithError(err).Fatal("failed to clean database")
		}
		logger.Info("database cleaned")
	}

	if *fixturesPath == "" {
		return
	}

	f, err := os.Open(*fixturesPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to open fixtures")
	}
	defer f.Close()

	fixtures, err := seed.Load(f)
	if err != nil {
		logger.WithError(err).Fatal("failed to read fixtures")
	}
	if err := fixtures.Validate(cfg.Seed.PhoneRegion); err != nil {
		logger.WithError(err).Fatal("fixtures rejected")
	}
	if _, err := seed.Apply(ctx, gormDB, fixtures, time.Now().UTC(), logger); err != nil {
		logger.WithError(err).Fatal("failed to load fixtures")
	}
}
