package constraints

import (
	"fmt"
	"strings"

	"github.com/arnavshah/team-builder-go/pkg/criteria"
	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

// Mode selects how strictly a required feature is enforced
type Mode int

const (
	// Hard requires every member and the lead to share the value
	Hard Mode = iota
	// SoftSupervisors tolerates members that already deviate from the lead
	SoftSupervisors
	// SoftTeams enforces peer homogeneity regardless of the lead
	SoftTeams
)

func (m Mode) String() string {
	switch m {
	case SoftSupervisors:
		return "SOFT_SUPERVISORS"
	case SoftTeams:
		return "SOFT_TEAMS"
	default:
		return "HARD"
	}
}

// ParseMode accepts the upper case names used in configuration files
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "HARD":
		return Hard, nil
	case "SOFT_SUPERVISORS":
		return SoftSupervisors, nil
	case "SOFT_TEAMS":
		return SoftTeams, nil
	}
	return Hard, fmt.Errorf("unknown required feature mode %q", s)
}

// RequiredFeature keeps the members of a team homogeneous in one attribute.
// Persons without the attribute are compatible with everyone.
type RequiredFeature struct {
	Mode  Mode
	Chain []string
	// DeviationWeight weighs the companion criterion of the soft modes
	DeviationWeight float64
}

func NewRequiredFeature(mode Mode, chain ...string) *RequiredFeature {
	return &RequiredFeature{Mode: mode, Chain: chain, DeviationWeight: 1.0}
}

func (c *RequiredFeature) Key() string { return c.Chain[0] }

func (c *RequiredFeature) Name() string { return c.Key() }

func (c *RequiredFeature) property(p *models.Person) (string, bool) {
	if p == nil {
		return "", false
	}
	return p.Attributes.Lookup(c.Chain...)
}

// Register adds the deviation criterion of the soft modes
func (c *RequiredFeature) Register(m *scheduler.Model) {
	if c.Mode == Hard {
		return
	}
	m.AddCriterion(&criteria.Deviation{
		Label:   c.Key(),
		W:       c.DeviationWeight,
		Differs: c.IsDifferent,
		Describe: func(p models.Placement) string {
			v, _ := c.property(p.Person)
			l, _ := c.property(p.Team.Lead)
			return v + ">>" + l
		},
	})
}

// IsDifferent tells whether the person's value differs from the value of the team lead
func (c *RequiredFeature) IsDifferent(p models.Placement) bool {
	if !p.Valid() {
		return false
	}
	ft, okt := c.property(p.Team.Lead)
	f1, ok1 := c.property(p.Person)
	return okt && ok1 && f1 != ft
}

// mismatches walks the members that clash with the candidate; visit returns false to stop
func (c *RequiredFeature) mismatches(a *scheduler.Assignment, p models.Placement, visit func(other *models.Person) bool) (self bool) {
	f1, ok := c.property(p.Person)
	if !ok {
		return false
	}
	ft, okt := c.property(p.Team.Lead)
	leadMismatch := okt && f1 != ft
	switch c.Mode {
	case Hard:
		if leadMismatch {
			return true
		}
	case SoftSupervisors:
		if leadMismatch {
			return false
		}
	}
	for _, other := range a.Context(p.Team).Members() {
		if other == p.Person {
			continue
		}
		if c.Mode == SoftSupervisors {
			if op, ok := a.Get(other); ok && c.IsDifferent(op) {
				continue
			}
		}
		if f2, ok := c.property(other); ok && f2 != f1 {
			if !visit(other) {
				return false
			}
		}
	}
	return false
}

func (c *RequiredFeature) InConflict(a *scheduler.Assignment, p models.Placement) bool {
	conflict := false
	if c.mismatches(a, p, func(*models.Person) bool { conflict = true; return false }) {
		return true
	}
	return conflict
}

func (c *RequiredFeature) ComputeConflicts(a *scheduler.Assignment, p models.Placement, conflicts *scheduler.Conflicts) {
	self := c.mismatches(a, p, func(other *models.Person) bool {
		if op, ok := a.Get(other); ok {
			conflicts.Add(op)
		}
		return true
	})
	if self {
		conflicts.Add(p)
	}
}

func (c *RequiredFeature) IsConsistent(p1, p2 models.Placement) bool {
	if p1.Team != p2.Team {
		return true
	}
	if c.Mode == SoftSupervisors && (c.IsDifferent(p1) || c.IsDifferent(p2)) {
		return true
	}
	f1, ok1 := c.property(p1.Person)
	f2, ok2 := c.property(p2.Person)
	return !ok1 || !ok2 || f1 == f2
}
