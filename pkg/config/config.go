package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/arnavshah/team-builder-go/pkg/errors"
)

// Config holds all configuration of the team builder and its HTTP service
type Config struct {
	Environment string `mapstructure:"environment"`
	Port        string `mapstructure:"port"`
	LogLevel    string `mapstructure:"log_level"`
	LogJSON     bool   `mapstructure:"log_json"`

	// Database configuration
	DatabaseURL string `mapstructure:"database_url"`
	DataPath    string `mapstructure:"data_path"`

	// Secrets
	JWTSecret       string `mapstructure:"jwt_secret"`
	APIMasterSecret string `mapstructure:"api_master_secret"`
	AdminUsername   string `mapstructure:"admin_username"`
	AdminPassword   string `mapstructure:"admin_password"`

	Solver Solver `mapstructure:"solver"`
	Teams  Teams  `mapstructure:"teams"`
	Input  Input  `mapstructure:"input"`
	Output Output `mapstructure:"output"`

	// Weight overrides criterion weights by criterion name
	Weight map[string]float64 `mapstructure:"weight"`
}

// Solver tunes the local search
type Solver struct {
	Workers       int           `mapstructure:"workers"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxIterations int64         `mapstructure:"max_iterations"`
	MaxIdle       int64         `mapstructure:"max_idle"`
	Seed          int64         `mapstructure:"seed"`
	VerifyEvery   int64         `mapstructure:"verify_every"`
	// Tolerance is the relative slack of the great deluge acceptance; 0 accepts only non-worsening moves
	Tolerance float64 `mapstructure:"tolerance"`
	// Cooling shrinks the tolerance geometrically every iteration
	Cooling float64 `mapstructure:"cooling"`

	MoveWeight     float64 `mapstructure:"move_weight"`
	SwapWeight     float64 `mapstructure:"swap_weight"`
	TeamSwapWeight float64 `mapstructure:"team_swap_weight"`
	RepairWeight   float64 `mapstructure:"repair_weight"`
}

// Teams describes how the model is built from the input
type Teams struct {
	// Variant is "plain" (teams split by features) or "leads" (one team per lead)
	Variant    string `mapstructure:"variant"`
	Criteria   string `mapstructure:"criteria"`
	Size       int    `mapstructure:"size"`
	ExtraTeams int    `mapstructure:"extra_teams"`
	// QuotaSlack is added to the average international team size of the leads variant
	QuotaSlack int `mapstructure:"quota_slack"`

	IDAttribute string `mapstructure:"id_attribute"`

	// LeadAttribute and LeadValue mark the persons that lead a team in the plain variant
	LeadAttribute string `mapstructure:"lead_attribute"`
	LeadValue     string `mapstructure:"lead_value"`
	// SameAsAttribute links a person to another person that must share the team
	SameAsAttribute string `mapstructure:"same_as_attribute"`
	// LeadersApart keeps the leaders of the plain variant in different teams
	LeadersApart bool `mapstructure:"leaders_apart"`

	// International lists attribute=value pairs marking international persons
	International []string `mapstructure:"international"`

	GroupAttribute string            `mapstructure:"group_attribute"`
	// SeedAttribute is the lead attribute an empty team needs to be opened in the
	// first construction pass; empty means the group attribute for the leads variant
	SeedAttribute  string            `mapstructure:"seed_attribute"`
	HallAttributes []string          `mapstructure:"hall_attributes"`
	HallGroups     map[string]string `mapstructure:"hall_groups"`
	// GroupMode is the RequiredFeature mode of the group attribute in the leads variant
	GroupMode string `mapstructure:"group_mode"`
	// Required lists attributes that must match the lead (HARD RequiredFeature)
	Required []string `mapstructure:"required"`
	Features []string `mapstructure:"features"`
}

// Input names the tabular input files
type Input struct {
	People string `mapstructure:"people"`
	Leads  string `mapstructure:"leads"`
}

// Output names the tabular output files; an empty name skips the file
type Output struct {
	Assignments string `mapstructure:"assignments"`
	Leads       string `mapstructure:"leads"`
	Report      string `mapstructure:"report"`
}

const defaultJWTSecret = "change-me-in-production"

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("port", "8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetDefault("database_url", "")
	v.SetDefault("data_path", "api_keys.db")

	v.SetDefault("jwt_secret", defaultJWTSecret)
	v.SetDefault("api_master_secret", "")
	v.SetDefault("admin_username", "admin")
	v.SetDefault("admin_password", "")

	v.SetDefault("solver.workers", 1)
	v.SetDefault("solver.timeout", 30*time.Second)
	v.SetDefault("solver.max_iterations", 200000)
	v.SetDefault("solver.max_idle", 20000)
	v.SetDefault("solver.seed", 0)
	v.SetDefault("solver.verify_every", 0)
	v.SetDefault("solver.tolerance", 0.0)
	v.SetDefault("solver.cooling", 0.9995)
	v.SetDefault("solver.move_weight", 1.0)
	v.SetDefault("solver.swap_weight", 1.0)
	v.SetDefault("solver.team_swap_weight", 0.1)
	v.SetDefault("solver.repair_weight", 0.5)

	v.SetDefault("teams.variant", "plain")
	v.SetDefault("teams.criteria", "")
	v.SetDefault("teams.size", 5)
	v.SetDefault("teams.extra_teams", 0)
	v.SetDefault("teams.quota_slack", 1)
	v.SetDefault("teams.id_attribute", "PUID")
	v.SetDefault("teams.lead_attribute", "")
	v.SetDefault("teams.lead_value", "")
	v.SetDefault("teams.same_as_attribute", "sameAsId")
	v.SetDefault("teams.leaders_apart", false)
	v.SetDefault("teams.international", []string{"BGRi=Yes", "TLi=True", "TSi=TRUE"})
	v.SetDefault("teams.group_attribute", "BGRHallGroup")
	v.SetDefault("teams.seed_attribute", "")
	v.SetDefault("teams.hall_attributes", []string{"Residence Hall", "ResHall"})
	v.SetDefault("teams.hall_groups", map[string]string{})
	v.SetDefault("teams.group_mode", "SOFT_TEAMS")
	v.SetDefault("teams.required", []string{})
	v.SetDefault("teams.features", []string{"Gender", "Ethnicity", "BGRi", "Residence Hall,ResHall"})

	v.SetDefault("output.assignments", "assignments.csv")
	v.SetDefault("output.leads", "")
	v.SetDefault("output.report", "")
}

// DotEnvPaths are searched for a .env file, the first one present is loaded
var DotEnvPaths = []string{".env", "../.env", "../../.env"}

// LoadDotEnv loads the first .env file found; variables already set win
func LoadDotEnv(paths ...string) string {
	if len(paths) == 0 {
		paths = DotEnvPaths
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if godotenv.Load(p) == nil {
				return p
			}
		}
	}
	return ""
}

// New prepares a viper instance reading teams.yaml and TEAMS_* environment variables
func New(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("teams")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("teams")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the service settings also answer to their bare names (DATABASE_URL, PORT, ...)
	for _, key := range []string{"environment", "port", "database_url", "data_path", "jwt_secret", "api_master_secret", "admin_username", "admin_password"} {
		_ = v.BindEnv(key, "TEAMS_"+strings.ToUpper(key), strings.ToUpper(key))
	}
	return v
}

// Load reads the configuration file if present and unmarshals the result
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return Unmarshal(v)
}

// Unmarshal decodes and validates the settings already present in v
func Unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		return apperrors.NewConfigurationError("jwt_secret: must be set in production")
	}
	s := c.Solver
	if s.Workers < 1 {
		return apperrors.NewConfigurationError("solver.workers: must be at least 1")
	}
	if s.Tolerance < 0 {
		return apperrors.NewConfigurationError("solver.tolerance: must not be negative")
	}
	if s.Cooling <= 0 || s.Cooling > 1 {
		return apperrors.NewConfigurationError("solver.cooling: must be in (0, 1]")
	}
	if s.MoveWeight < 0 || s.SwapWeight < 0 || s.TeamSwapWeight < 0 || s.RepairWeight < 0 {
		return apperrors.NewConfigurationError("solver: neighbour weights must not be negative")
	}
	if s.MoveWeight+s.SwapWeight+s.TeamSwapWeight+s.RepairWeight == 0 {
		return apperrors.NewConfigurationError("solver: at least one neighbour weight must be positive")
	}
	switch c.Teams.Variant {
	case "plain", "leads":
	default:
		return apperrors.NewConfigurationError("teams.variant: unknown variant %q", c.Teams.Variant)
	}
	if c.Teams.Size < 1 {
		return apperrors.NewConfigurationError("teams.size: must be at least 1")
	}
	if c.Teams.QuotaSlack < 0 {
		return apperrors.NewConfigurationError("teams.quota_slack: must not be negative")
	}
	if c.Teams.ExtraTeams < 0 {
		return apperrors.NewConfigurationError("teams.extra_teams: must not be negative")
	}
	for _, flag := range c.Teams.International {
		if !strings.Contains(flag, "=") {
			return apperrors.NewConfigurationError("teams.international: %q is not attribute=value", flag)
		}
	}
	return nil
}

// InternationalFlags splits the configured attribute=value pairs
func (t Teams) InternationalFlags() map[string]string {
	flags := make(map[string]string, len(t.International))
	for _, flag := range t.International {
		if k, v, ok := strings.Cut(flag, "="); ok {
			flags[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return flags
}

// ConstructionSeed resolves the seed attribute of the construction phase.
// Plain teams have no lead, so only the leads variant falls back to the group.
func (t Teams) ConstructionSeed() string {
	if t.SeedAttribute != "" {
		return t.SeedAttribute
	}
	if t.Variant == "leads" {
		return t.GroupAttribute
	}
	return ""
}

// WeightOf resolves a criterion weight, def when no override is configured.
// Keys are matched case-insensitively since viper lowercases them.
func (c *Config) WeightOf(name string, def float64) float64 {
	if w, ok := c.Weight[strings.ToLower(name)]; ok {
		return w
	}
	if w, ok := c.Weight[name]; ok {
		return w
	}
	return def
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
