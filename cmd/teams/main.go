package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arnavshah/team-builder-go/pkg/config"
	"github.com/arnavshah/team-builder-go/pkg/loader"
	"github.com/arnavshah/team-builder-go/pkg/logger"
	"github.com/arnavshah/team-builder-go/pkg/pipeline"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	config.LoadDotEnv()
	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		logger.New().WithField("error", err.Error()).Error("teams failed")
		os.Exit(1)
	}
}

// flagKeys maps command line flags onto configuration keys
var flagKeys = map[string]string{
	"people":         "input.people",
	"leads":          "input.leads",
	"variant":        "teams.variant",
	"criteria":       "teams.criteria",
	"size":           "teams.size",
	"extra-teams":    "teams.extra_teams",
	"workers":        "solver.workers",
	"timeout":        "solver.timeout",
	"max-iterations": "solver.max_iterations",
	"seed":           "solver.seed",
	"assignments":    "output.assignments",
	"leads-out":      "output.leads",
	"report":         "output.report",
	"log-level":      "log_level",
}

func newRootCommand(stdout io.Writer) *cobra.Command {
	var configPath string
	var v *viper.Viper
	load := func() (*config.Config, error) { return config.Load(v) }

	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Split people into balanced teams",
		Long: `Reads a people table (and a leads table for the leads variant), builds
teams that spread the configured features evenly and writes the
assignments, the leads and a text report.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v = config.New(configPath)
			for flag, key := range flagKeys {
				if f := cmd.Flags().Lookup(flag); f != nil {
					if err := v.BindPFlag(key, f); err != nil {
						return fmt.Errorf("failed to bind flag %s: %w", flag, err)
					}
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return build(cmd.Context(), cfg, stdout)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to configuration file (optional)")
	flags.StringP("people", "p", "", "People CSV file")
	flags.StringP("leads", "l", "", "Leads CSV file (leads variant)")
	flags.String("variant", "", "Team variant: plain or leads")
	flags.String("criteria", "", "Criteria, e.g. \"Gender|@Age|!Campus\"")
	flags.Int("size", 0, "Team size (plain variant)")
	flags.Int("extra-teams", 0, "Teams added to the computed count")
	flags.Int("workers", 0, "Parallel search workers")
	flags.Duration("timeout", 0, "Search time limit")
	flags.Int64("max-iterations", 0, "Iteration limit per worker")
	flags.Int64("seed", 0, "Random seed, 0 for a time based seed")
	flags.String("assignments", "", "Assignments CSV output")
	flags.String("leads-out", "", "Leads CSV output")
	flags.String("report", "", "Text report output, stdout when empty")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newValidateCommand(load, stdout))
	return cmd
}

func newValidateCommand(load func() (*config.Config, error), stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the input and print the team sizing without solving",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			setupLogging(cfg)
			people, leads, err := readInput(cfg)
			if err != nil {
				return err
			}
			b, err := loader.NewBuilder(cfg.Teams, cfg.WeightOf, logger.New()).Build(people, leads)
			if err != nil {
				return err
			}
			for _, line := range b.Summary {
				fmt.Fprintln(stdout, line)
			}
			for _, q := range b.Shortfalls {
				fmt.Fprintln(stdout, "Warning:", q.String())
			}
			return nil
		},
	}
}

// setupLogging keeps stdout free for the report
func setupLogging(cfg *config.Config) {
	logger.Setup(cfg.LogLevel, cfg.LogJSON)
	logrus.SetOutput(os.Stderr)
}

func readInput(cfg *config.Config) (people, leads *loader.Table, err error) {
	if cfg.Input.People == "" {
		return nil, nil, fmt.Errorf("no people file given (--people)")
	}
	if people, err = loader.ReadTableFile(cfg.Input.People); err != nil {
		return nil, nil, err
	}
	if cfg.Input.Leads != "" {
		if leads, err = loader.ReadTableFile(cfg.Input.Leads); err != nil {
			return nil, nil, err
		}
	}
	return people, leads, nil
}

func build(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	setupLogging(cfg)
	log := logger.New()

	people, leads, err := readInput(cfg)
	if err != nil {
		return err
	}
	res, err := pipeline.Run(ctx, cfg, people, leads, log, nil)
	if err != nil {
		return err
	}

	w := res.Writer()
	if err := writeFile(cfg.Output.Assignments, w.Assignments); err != nil {
		return err
	}
	if res.Build.Variant == "leads" {
		if err := writeFile(cfg.Output.Leads, w.Leads); err != nil {
			return err
		}
	}
	report := func(out io.Writer) error { return w.Report(out, res.Solution.Unassignable) }
	if cfg.Output.Report == "" {
		return report(stdout)
	}
	return writeFile(cfg.Output.Report, report)
}

// writeFile renders into path; an empty path skips the output
func writeFile(path string, render func(io.Writer) error) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
