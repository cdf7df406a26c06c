package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/arnavshah/team-builder-go/pkg/config"
	"github.com/arnavshah/team-builder-go/pkg/database"
	"github.com/arnavshah/team-builder-go/pkg/logger"
)

// Bootstrap opens the database, creates the admin and returns the router of
// a ready service
func Bootstrap(cfg *config.Config, log *logger.Logger) (*gin.Engine, error) {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h := New(db, cfg, log, reg)
	if err := h.Auth.EnsureAdminExists(db, cfg.AdminUsername, cfg.AdminPassword, log); err != nil {
		return nil, err
	}
	if cfg.APIMasterSecret == "" {
		log.Warn("API_MASTER_SECRET not set, API keys are signed with an empty secret")
	}
	return NewRouter(h), nil
}
