package models

// BuildInput is the JSON request of a team build. Rows are column name to
// value maps, a missing key and an empty value mean the same.
type BuildInput struct {
	Variant    string              `json:"variant"`
	Criteria   string              `json:"criteria"`
	Size       int                 `json:"size"`
	ExtraTeams int                 `json:"extra_teams"`
	People     []map[string]string `json:"people" binding:"required"`
	Leads      []map[string]string `json:"leads"`
	Weights    map[string]float64  `json:"weights"`
	Seed       int64               `json:"seed"`
	// Iterations caps the search; it cannot exceed the server limit
	Iterations int64 `json:"iterations"`
}

// TeamResult is one team of a build
type TeamResult struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Capacity int      `json:"capacity"`
	Lead     string   `json:"lead,omitempty"`
	Members  []string `json:"members"`
}

// BuildResponse is returned for a JSON build
type BuildResponse struct {
	RunID      string             `json:"run_id"`
	Variant    string             `json:"variant"`
	Teams      []TeamResult       `json:"teams"`
	Unassigned []UnassignedReason `json:"unassigned"`
	Total      float64            `json:"total"`
	Iterations int64              `json:"iterations"`
	Summary    []string           `json:"summary"`
	Info       map[string]string  `json:"info"`
}

// CSVResponse carries the rendered documents of a build from uploaded files
type CSVResponse struct {
	RunID       string `json:"run_id"`
	Assignments string `json:"assignments"`
	Leads       string `json:"leads,omitempty"`
	Report      string `json:"report"`
}
