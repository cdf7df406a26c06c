package scheduler

import (
	"fmt"
	"math/rand"

	"github.com/arnavshah/team-builder-go/pkg/errors"
	"github.com/arnavshah/team-builder-go/pkg/models"
)

// Constraint decides whether a candidate placement may be made and, if not,
// which current placements have to yield
type Constraint interface {
	Name() string
	// InConflict tells whether placing p would violate the constraint
	InConflict(a *Assignment, p models.Placement) bool
	// ComputeConflicts adds the placements that must be removed to accept p.
	// The set may contain p itself when no eviction can make room.
	ComputeConflicts(a *Assignment, p models.Placement, conflicts *Conflicts)
	// IsConsistent is a pure pairwise check
	IsConsistent(p1, p2 models.Placement) bool
}

// ConstraintContext receives the placed/unplaced notifications of the
// persons a contextual constraint is scoped to
type ConstraintContext interface {
	Placed(p models.Placement)
	Unplaced(p models.Placement)
}

// ContextualConstraint keeps per-assignment state of its own
type ContextualConstraint interface {
	Constraint
	NewContext(a *Assignment) ConstraintContext
}

// Scoped constraints only care about a subset of the persons. Contexts of
// unscoped contextual constraints are notified for everyone.
type Scoped interface {
	Persons() []*models.Person
}

// CapacityLike marks occupancy constraints; a pairwise swap keeps occupancy and skips them
type CapacityLike interface {
	Constraint
	Capacity(t *models.Team) int
}

// Registrar is implemented by constraints that need to add companions to the model
type Registrar interface {
	Register(m *Model)
}

// Criterion is a weighted soft rule
type Criterion interface {
	Name() string
	Weight() float64
	// Value is the marginal contribution of a candidate placement
	Value(a *Assignment, p models.Placement) float64
	// Total is the exact value over the whole assignment
	Total(a *Assignment) float64
}

// TeamTotaler is implemented by criteria whose total is a sum over teams; a
// model made of such criteria is rescored per touched team during the search
type TeamTotaler interface {
	TeamTotal(a *Assignment, t *models.Team) float64
}

// Initializer is implemented by criteria that derive state from the population
type Initializer interface {
	Init(m *Model) error
}

// Reporter is implemented by criteria that contribute report lines
type Reporter interface {
	Info(a *Assignment, info map[string]string)
}

// Neighbour is a reversible move
type Neighbour interface {
	Apply(a *Assignment)
	Undo(a *Assignment)
	// Assignments lists the placements the move makes
	Assignments() []models.Placement
}

// NeighbourSelection produces moves for one worker. Implementations may keep
// state between calls, so every worker gets its own instance.
type NeighbourSelection interface {
	Init(a *Assignment) error
	// Select returns nil when no move is available
	Select(a *Assignment, rnd *rand.Rand) Neighbour
}

// Model holds the read-only definitions shared by every search worker
type Model struct {
	People []*models.Person
	Teams  []*models.Team

	constraints []Constraint
	contextual  []ContextualConstraint
	ctxIndex    map[ContextualConstraint]int
	// routes[person index] lists the scoped contextual constraints of a person
	routes   [][]int
	global   []int
	criteria []Criterion
	byID     map[string]*models.Person
}

// NewModel creates a model and assigns dense indexes to people and teams
func NewModel(people []*models.Person, teams []*models.Team) (*Model, error) {
	if len(people) == 0 {
		return nil, errors.ErrNoPeople
	}
	if len(teams) == 0 {
		return nil, errors.ErrNoTeams
	}
	m := &Model{
		People:   people,
		Teams:    teams,
		ctxIndex: make(map[ContextualConstraint]int),
		routes:   make([][]int, len(people)),
		byID:     make(map[string]*models.Person, len(people)),
	}
	for i, p := range people {
		if _, dup := m.byID[p.ID]; dup {
			return nil, fmt.Errorf("person %q: %w", p.ID, errors.ErrDuplicateID)
		}
		p.Index = i
		m.byID[p.ID] = p
	}
	for i, t := range teams {
		t.Index = i
	}
	return m, nil
}

// AddConstraint registers a constraint
func (m *Model) AddConstraint(c Constraint) {
	m.constraints = append(m.constraints, c)
	if cc, ok := c.(ContextualConstraint); ok {
		idx := len(m.contextual)
		m.contextual = append(m.contextual, cc)
		m.ctxIndex[cc] = idx
		if s, ok := c.(Scoped); ok {
			for _, p := range s.Persons() {
				m.routes[p.Index] = append(m.routes[p.Index], idx)
			}
		} else {
			m.global = append(m.global, idx)
		}
	}
	if r, ok := c.(Registrar); ok {
		r.Register(m)
	}
}

// AddCriterion registers a criterion
func (m *Model) AddCriterion(c Criterion) {
	m.criteria = append(m.criteria, c)
}

// Constraints returns the registered constraints
func (m *Model) Constraints() []Constraint { return m.constraints }

// Criteria returns the registered criteria
func (m *Model) Criteria() []Criterion { return m.criteria }

// Person looks a person up by identifier
func (m *Model) Person(id string) (*models.Person, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, errors.NewNotFoundError("person", id)
	}
	return p, nil
}

// Init lets criteria derive their population statistics. It must run before any search.
func (m *Model) Init() error {
	for _, c := range m.criteria {
		if in, ok := c.(Initializer); ok {
			if err := in.Init(m); err != nil {
				return fmt.Errorf("criterion %s: %w", c.Name(), err)
			}
		}
	}
	return nil
}

// Values enumerates the candidate placements of a person
func (m *Model) Values(p *models.Person) []models.Placement {
	values := make([]models.Placement, 0, len(m.Teams))
	for _, t := range m.Teams {
		if t.Admits(p) {
			values = append(values, models.Placement{Person: p, Team: t})
		}
	}
	return values
}

// InConflict tells whether any constraint rejects the placement
func (m *Model) InConflict(a *Assignment, p models.Placement) bool {
	if !p.Team.Admits(p.Person) {
		return true
	}
	for _, c := range m.constraints {
		if c.InConflict(a, p) {
			return true
		}
	}
	return false
}

// Conflicts collects the evictions every constraint demands for the placement
func (m *Model) Conflicts(a *Assignment, p models.Placement) *Conflicts {
	conflicts := NewConflicts()
	if !p.Team.Admits(p.Person) {
		conflicts.Add(p)
		return conflicts
	}
	for _, c := range m.constraints {
		c.ComputeConflicts(a, p, conflicts)
	}
	return conflicts
}

// Score is the weighted marginal value of a placement; it is the eviction key
func (m *Model) Score(a *Assignment, p models.Placement) float64 {
	var score float64
	for _, c := range m.criteria {
		if w := c.Weight(); w != 0 {
			score += w * c.Value(a, p)
		}
	}
	return score
}

// TotalValue is the weighted exact value of the assignment
func (m *Model) TotalValue(a *Assignment) float64 {
	var total float64
	for _, c := range m.criteria {
		if w := c.Weight(); w != 0 {
			total += w * c.Total(a)
		}
	}
	return total
}

// Decomposable tells whether every weighted criterion totals per team
func (m *Model) Decomposable() bool {
	for _, c := range m.criteria {
		if _, ok := c.(TeamTotaler); !ok && c.Weight() != 0 {
			return false
		}
	}
	return true
}

// TeamValue is the weighted value of one team; criteria without a per-team
// total are left out, see Decomposable
func (m *Model) TeamValue(a *Assignment, t *models.Team) float64 {
	var total float64
	for _, c := range m.criteria {
		tt, ok := c.(TeamTotaler)
		if w := c.Weight(); ok && w != 0 {
			total += w * tt.TeamTotal(a, t)
		}
	}
	return total
}

// Info collects report lines
func (m *Model) Info(a *Assignment) map[string]string {
	info := make(map[string]string)
	for _, c := range m.criteria {
		if r, ok := c.(Reporter); ok {
			r.Info(a, info)
		}
	}
	return info
}
