package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/team-builder-go/pkg/config"
	apperrors "github.com/arnavshah/team-builder-go/pkg/errors"
	"github.com/arnavshah/team-builder-go/pkg/loader"
	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/pipeline"
)

// requestConfig applies the overrides of a request to a copy of the server configuration
func (h *Handler) requestConfig(in *models.BuildInput) *config.Config {
	cfg := *h.Config
	if in.Variant != "" {
		cfg.Teams.Variant = in.Variant
	}
	if in.Criteria != "" {
		cfg.Teams.Criteria = in.Criteria
	}
	if in.Size > 0 {
		cfg.Teams.Size = in.Size
	}
	if in.ExtraTeams > 0 {
		cfg.Teams.ExtraTeams = in.ExtraTeams
	}
	if in.Seed != 0 {
		cfg.Solver.Seed = in.Seed
	}
	if in.Iterations > 0 && (cfg.Solver.MaxIterations == 0 || in.Iterations < cfg.Solver.MaxIterations) {
		cfg.Solver.MaxIterations = in.Iterations
	}
	if len(in.Weights) > 0 {
		weights := make(map[string]float64, len(h.Config.Weight)+len(in.Weights))
		for k, v := range h.Config.Weight {
			weights[k] = v
		}
		for k, v := range in.Weights {
			weights[k] = v
		}
		cfg.Weight = weights
	}
	return &cfg
}

// status maps build errors to HTTP status codes
func status(err error) int {
	switch {
	case apperrors.IsValidation(err), apperrors.IsConfiguration(err),
		errors.Is(err, apperrors.ErrNoPeople), errors.Is(err, apperrors.ErrNoTeams),
		errors.Is(err, apperrors.ErrDuplicateID):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) run(c *gin.Context, cfg *config.Config, people, leads *loader.Table) (*pipeline.Result, bool) {
	res, err := pipeline.Run(c.Request.Context(), cfg, people, leads, h.Log, h.Metrics)
	if err != nil {
		code := status(err)
		if code == http.StatusInternalServerError {
			h.Log.WithField("error", err.Error()).Error("team build failed")
		}
		c.JSON(code, gin.H{"error": err.Error()})
		return nil, false
	}
	h.RecordUsage(c, len(res.Build.Model.People), len(res.Build.Model.Teams))
	return res, true
}

// BuildJSON builds teams from JSON rows
func (h *Handler) BuildJSON(c *gin.Context) {
	var input models.BuildInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := h.requestConfig(&input)
	people := loader.TableFromRows(input.People, cfg.Teams.IDAttribute)
	var leads *loader.Table
	if len(input.Leads) > 0 {
		leads = loader.TableFromRows(input.Leads, cfg.Teams.IDAttribute)
	}

	res, ok := h.run(c, cfg, people, leads)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res.Response())
}

func readUpload(fh *multipart.FileHeader) (*loader.Table, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return loader.ReadTable(f)
}

// BuildCSV handles CSV file uploads (people_file and the optional leads_file)
// and returns the rendered documents
func (h *Handler) BuildCSV(c *gin.Context) {
	peopleFile, _ := c.FormFile("people_file")
	leadsFile, _ := c.FormFile("leads_file")
	if peopleFile == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "people_file is required"})
		return
	}

	input := models.BuildInput{
		Variant:  c.PostForm("variant"),
		Criteria: c.PostForm("criteria"),
	}
	if leadsFile != nil && input.Variant == "" {
		input.Variant = "leads"
	}
	cfg := h.requestConfig(&input)

	people, err := readUpload(peopleFile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "people_file: " + err.Error()})
		return
	}
	var leads *loader.Table
	if leadsFile != nil {
		if leads, err = readUpload(leadsFile); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "leads_file: " + err.Error()})
			return
		}
	}

	res, ok := h.run(c, cfg, people, leads)
	if !ok {
		return
	}
	assignments, leadsCSV, report, err := res.Outputs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.CSVResponse{
		RunID:       res.Solution.RunID,
		Assignments: assignments,
		Leads:       leadsCSV,
		Report:      report,
	})
}
