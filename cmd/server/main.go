package main

import (
	"os"

	"github.com/arnavshah/team-builder-go/pkg/config"
	"github.com/arnavshah/team-builder-go/pkg/handlers"
	"github.com/arnavshah/team-builder-go/pkg/logger"
)

func main() {
	// Try root and parent directories for flexibility
	envFile := config.LoadDotEnv()

	cfg, err := config.Load(config.New(os.Getenv("TEAMS_CONFIG")))
	if err != nil {
		logger.New().WithField("error", err.Error()).Fatal("could not load configuration")
	}
	logger.Setup(cfg.LogLevel, cfg.LogJSON)
	log := logger.New()
	if envFile != "" {
		log.WithField("path", envFile).Debug("loaded .env")
	}

	r, err := handlers.Bootstrap(cfg, log)
	if err != nil {
		log.WithField("error", err.Error()).Fatal("could not start service")
	}

	log.WithField("port", cfg.Port).Info("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.WithField("error", err.Error()).Fatal("could not run server")
	}
}
