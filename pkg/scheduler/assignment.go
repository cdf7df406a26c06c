package scheduler

import (
	"fmt"

	"github.com/arnavshah/team-builder-go/pkg/errors"
	"github.com/arnavshah/team-builder-go/pkg/models"
)

// Snapshot records the team of every person, indexed by person index; nil means unassigned
type Snapshot []*models.Team

// Assignment is the private search state of one worker. It owns the team
// contexts and the constraint contexts as side tables; the shared model is
// never written to.
type Assignment struct {
	model     *Model
	teamOf    []*models.Team
	teams     []*TeamContext
	contexts  []ConstraintContext
	assigned  int
	iteration int64

	// teams mutated since the last ClearTouched
	touched     []bool
	touchedList []*models.Team
}

// NewAssignment creates an empty assignment over the model
func (m *Model) NewAssignment() *Assignment {
	return m.NewAssignmentFrom(nil)
}

// NewAssignmentFrom creates an assignment holding the given placements and
// builds every context by scanning them
func (m *Model) NewAssignmentFrom(snapshot Snapshot) *Assignment {
	a := &Assignment{
		model:   m,
		teamOf:  make([]*models.Team, len(m.People)),
		touched: make([]bool, len(m.Teams)),
	}
	copy(a.teamOf, snapshot)
	for _, t := range a.teamOf {
		if t != nil {
			a.assigned++
		}
	}
	a.teams = a.buildTeamContexts()
	a.contexts = make([]ConstraintContext, len(m.contextual))
	for i, c := range m.contextual {
		a.contexts[i] = c.NewContext(a)
	}
	return a
}

func (a *Assignment) buildTeamContexts() []*TeamContext {
	teams := make([]*TeamContext, len(a.model.Teams))
	for i, t := range a.model.Teams {
		teams[i] = newTeamContext(t)
	}
	for i, t := range a.teamOf {
		if t != nil {
			teams[t.Index].placed(a.model.People[i])
		}
	}
	return teams
}

// Model returns the shared model
func (a *Assignment) Model() *Model { return a.model }

// Iteration is the bookkeeping stamp of the last mutation
func (a *Assignment) Iteration() int64 { return a.iteration }

// SetIteration sets the stamp recorded by the following mutations
func (a *Assignment) SetIteration(it int64) { a.iteration = it }

// Get returns the current placement of a person
func (a *Assignment) Get(p *models.Person) (models.Placement, bool) {
	t := a.teamOf[p.Index]
	if t == nil {
		return models.Placement{}, false
	}
	return models.Placement{Person: p, Team: t}, true
}

// TeamOf returns the current team of a person, nil when unassigned
func (a *Assignment) TeamOf(p *models.Person) *models.Team {
	return a.teamOf[p.Index]
}

// Context returns the aggregate context of a team
func (a *Assignment) Context(t *models.Team) *TeamContext {
	return a.teams[t.Index]
}

// ConstraintContext returns the context of a contextual constraint, nil if it is not registered
func (a *Assignment) ConstraintContext(c ContextualConstraint) ConstraintContext {
	idx, ok := a.model.ctxIndex[c]
	if !ok {
		return nil
	}
	return a.contexts[idx]
}

// Assign places the person into the team, unassigning any previous placement first
func (a *Assignment) Assign(p models.Placement) {
	current := a.teamOf[p.Person.Index]
	if current == p.Team {
		return
	}
	if current != nil {
		a.Unassign(p.Person)
	}
	a.teamOf[p.Person.Index] = p.Team
	a.assigned++
	a.teams[p.Team.Index].placed(p.Person)
	a.touch(p.Team)
	a.notify(p, true)
}

// Unassign removes the current placement of the person, if any
func (a *Assignment) Unassign(person *models.Person) {
	t := a.teamOf[person.Index]
	if t == nil {
		return
	}
	p := models.Placement{Person: person, Team: t}
	a.teamOf[person.Index] = nil
	a.assigned--
	a.teams[t.Index].unplaced(person)
	a.touch(t)
	a.notify(p, false)
}

func (a *Assignment) touch(t *models.Team) {
	if !a.touched[t.Index] {
		a.touched[t.Index] = true
		a.touchedList = append(a.touchedList, t)
	}
}

// Touched lists the teams mutated since the last ClearTouched, reverted
// mutations included
func (a *Assignment) Touched() []*models.Team { return a.touchedList }

// ClearTouched forgets the mutated teams
func (a *Assignment) ClearTouched() {
	for _, t := range a.touchedList {
		a.touched[t.Index] = false
	}
	a.touchedList = a.touchedList[:0]
}

func (a *Assignment) notify(p models.Placement, placed bool) {
	route := a.model.routes[p.Person.Index]
	for _, idx := range a.model.global {
		a.fire(idx, p, placed)
	}
	for _, idx := range route {
		a.fire(idx, p, placed)
	}
}

func (a *Assignment) fire(idx int, p models.Placement, placed bool) {
	if placed {
		a.contexts[idx].Placed(p)
	} else {
		a.contexts[idx].Unplaced(p)
	}
}

// NrAssigned is the number of assigned persons
func (a *Assignment) NrAssigned() int { return a.assigned }

// Unassigned lists the persons without a team, in model order
func (a *Assignment) Unassigned() []*models.Person {
	var out []*models.Person
	for i, t := range a.teamOf {
		if t == nil {
			out = append(out, a.model.People[i])
		}
	}
	return out
}

// Placements lists the current placements in model order
func (a *Assignment) Placements() []models.Placement {
	out := make([]models.Placement, 0, a.assigned)
	for i, t := range a.teamOf {
		if t != nil {
			out = append(out, models.Placement{Person: a.model.People[i], Team: t})
		}
	}
	return out
}

// Snapshot copies the current placements
func (a *Assignment) Snapshot() Snapshot {
	s := make(Snapshot, len(a.teamOf))
	copy(s, a.teamOf)
	return s
}

// Restore brings the assignment to the snapshot through regular notifications
func (a *Assignment) Restore(s Snapshot) {
	for i, t := range a.teamOf {
		if t != nil && s[i] != t {
			a.Unassign(a.model.People[i])
		}
	}
	for i, t := range s {
		if t != nil {
			a.Assign(models.Placement{Person: a.model.People[i], Team: t})
		}
	}
}

// ContextChecker is implemented by constraint contexts that can compare
// themselves against a freshly built context
type ContextChecker interface {
	Check(fresh ConstraintContext) []string
}

// Verify rebuilds every context from the placements and reports the first
// disagreement as a DesyncError. The assignment itself is left untouched.
func (a *Assignment) Verify() error {
	assigned := 0
	for _, t := range a.teamOf {
		if t != nil {
			assigned++
		}
	}
	if assigned != a.assigned {
		return &errors.DesyncError{Team: "*", Details: []string{fmt.Sprintf("assigned count %d != %d", a.assigned, assigned)}}
	}
	fresh := a.buildTeamContexts()
	for i, c := range a.teams {
		if details := c.diff(fresh[i]); len(details) > 0 {
			return &errors.DesyncError{Team: c.team.Name, Details: details}
		}
	}
	for i, c := range a.model.contextual {
		checker, ok := a.contexts[i].(ContextChecker)
		if !ok {
			continue
		}
		if details := checker.Check(c.NewContext(a)); len(details) > 0 {
			return &errors.DesyncError{Team: c.Name(), Details: details}
		}
	}
	return nil
}
