package scheduler

import "github.com/arnavshah/team-builder-go/pkg/models"

type journalEntry struct {
	person *models.Person
	prev   *models.Team
}

// Journal records every mutation made through it so that the assignment can
// be brought back to the state it had when the journal was opened
type Journal struct {
	a       *Assignment
	entries []journalEntry
}

// Journal opens a new journal on the assignment
func (a *Assignment) Journal() *Journal {
	return &Journal{a: a}
}

// Assign places the person, recording its previous team
func (j *Journal) Assign(p models.Placement) {
	j.entries = append(j.entries, journalEntry{person: p.Person, prev: j.a.TeamOf(p.Person)})
	j.a.Assign(p)
}

// Unassign removes the placement of the person, recording its previous team
func (j *Journal) Unassign(person *models.Person) {
	prev := j.a.TeamOf(person)
	if prev == nil {
		return
	}
	j.entries = append(j.entries, journalEntry{person: person, prev: prev})
	j.a.Unassign(person)
}

// Len is the number of recorded mutations
func (j *Journal) Len() int { return len(j.entries) }

// Revert undoes the recorded mutations in reverse order and empties the journal
func (j *Journal) Revert() {
	for i := len(j.entries) - 1; i >= 0; i-- {
		e := j.entries[i]
		if e.prev == nil {
			j.a.Unassign(e.person)
		} else {
			j.a.Assign(models.Placement{Person: e.person, Team: e.prev})
		}
	}
	j.entries = j.entries[:0]
}

// Explore runs fn against a fresh journal and always reverts it, also when fn panics
func (a *Assignment) Explore(fn func(j *Journal)) {
	j := a.Journal()
	defer j.Revert()
	fn(j)
}

// Reversible is embedded by moves that undo through a journal
type Reversible struct {
	journal *Journal
}

// Begin opens the journal of the move
func (r *Reversible) Begin(a *Assignment) *Journal {
	r.journal = a.Journal()
	return r.journal
}

// Undo reverts everything recorded since Begin
func (r *Reversible) Undo(a *Assignment) {
	if r.journal != nil {
		r.journal.Revert()
		r.journal = nil
	}
}

// SimpleNeighbour places one person, evicting whatever the constraints demand.
// An invalid placement (nil team) unassigns the person. A placement that
// conflicts with itself is not made.
type SimpleNeighbour struct {
	Reversible
	Placement models.Placement
}

func NewSimpleNeighbour(p models.Placement) *SimpleNeighbour {
	return &SimpleNeighbour{Placement: p}
}

func (n *SimpleNeighbour) Apply(a *Assignment) {
	j := n.Begin(a)
	if n.Placement.Team == nil {
		j.Unassign(n.Placement.Person)
		return
	}
	conflicts := a.Model().Conflicts(a, n.Placement)
	if conflicts.Contains(n.Placement) {
		return
	}
	for _, c := range conflicts.Items() {
		if c.Person == n.Placement.Person {
			continue
		}
		j.Unassign(c.Person)
	}
	j.Assign(n.Placement)
}

func (n *SimpleNeighbour) Assignments() []models.Placement {
	if n.Placement.Team == nil {
		return nil
	}
	return []models.Placement{n.Placement}
}
