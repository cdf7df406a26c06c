package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/team-builder-go/pkg/config"
	"github.com/arnavshah/team-builder-go/pkg/handlers"
	"github.com/arnavshah/team-builder-go/pkg/logger"
)

var r *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	config.LoadDotEnv(".env", "../.env")

	cfg, err := config.Load(config.New(os.Getenv("TEAMS_CONFIG")))
	if err != nil {
		logger.New().WithField("error", err.Error()).Fatal("could not load configuration")
	}
	logger.Setup(cfg.LogLevel, true)
	log := logger.New()

	gin.SetMode(gin.ReleaseMode)
	if r, err = handlers.Bootstrap(cfg, log); err != nil {
		log.WithField("error", err.Error()).Fatal("could not start service")
	}
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
