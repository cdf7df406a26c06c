// Package pipeline wires loading, solving and reporting into one run shared
// by the command line and the HTTP API.
package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/arnavshah/team-builder-go/pkg/config"
	"github.com/arnavshah/team-builder-go/pkg/loader"
	"github.com/arnavshah/team-builder-go/pkg/logger"
	"github.com/arnavshah/team-builder-go/pkg/metrics"
	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/report"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
	"github.com/arnavshah/team-builder-go/pkg/solver"
)

// Result is a solved build
type Result struct {
	Build      *loader.Build
	Solution   *solver.Solution
	Assignment *scheduler.Assignment
}

// Run builds the model from the tables and searches it
func Run(ctx context.Context, cfg *config.Config, people, leads *loader.Table, log *logger.Logger, rec metrics.Recorder) (*Result, error) {
	if rec == nil {
		rec = metrics.Nop{}
	}
	build, err := loader.NewBuilder(cfg.Teams, cfg.WeightOf, log).Build(people, leads)
	if err != nil {
		return nil, err
	}
	s := solver.New(build.Model, solver.OptionsFromConfig(cfg), solver.WithLogger(log), solver.WithMetrics(rec))
	sol, err := s.Solve(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Build: build, Solution: sol, Assignment: sol.Assignment(build.Model)}, nil
}

// Writer renders the result
func (r *Result) Writer() *report.Writer {
	return report.New(r.Build, r.Assignment)
}

// Outputs renders the three documents of a run in memory
func (r *Result) Outputs() (assignments, leads, text string, err error) {
	w := r.Writer()
	var a, l, t bytes.Buffer
	if err = w.Assignments(&a); err != nil {
		return "", "", "", fmt.Errorf("failed to write assignments: %w", err)
	}
	if r.Build.Variant == "leads" {
		if err = w.Leads(&l); err != nil {
			return "", "", "", fmt.Errorf("failed to write leads: %w", err)
		}
	}
	if err = w.Report(&t, r.Solution.Unassignable); err != nil {
		return "", "", "", fmt.Errorf("failed to write report: %w", err)
	}
	return a.String(), l.String(), t.String(), nil
}

// Teams lists the teams with their member identifiers
func (r *Result) Teams() []models.TeamResult {
	out := make([]models.TeamResult, 0, len(r.Build.Model.Teams))
	for _, t := range r.Build.Model.Teams {
		tr := models.TeamResult{ID: t.ID, Name: t.Name, Capacity: t.Capacity, Members: []string{}}
		if t.Lead != nil {
			tr.Lead = t.Lead.ID
		}
		for _, p := range r.Assignment.Context(t).SortedMembers() {
			tr.Members = append(tr.Members, p.ID)
		}
		out = append(out, tr)
	}
	return out
}

// Response is the JSON form of the result
func (r *Result) Response() models.BuildResponse {
	unassigned := r.Solution.Unassignable
	if unassigned == nil {
		unassigned = []models.UnassignedReason{}
	}
	return models.BuildResponse{
		RunID:      r.Solution.RunID,
		Variant:    r.Build.Variant,
		Teams:      r.Teams(),
		Unassigned: unassigned,
		Total:      r.Solution.Total,
		Iterations: r.Solution.Iterations,
		Summary:    r.Build.Summary,
		Info:       r.Writer().Info(),
	}
}
