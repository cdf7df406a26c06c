package neighbours

import (
	"math/rand"

	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

// TeamSwap exchanges the whole rosters of two teams whose leads are of the
// same kind (both international or both not)
type TeamSwap struct{}

func (TeamSwap) Init(*scheduler.Assignment) error { return nil }

func sameCategory(t1, t2 *models.Team) bool {
	return t1.InternationalLead() == t2.InternationalLead()
}

func capacityOf(m *scheduler.Model, t *models.Team) int {
	limit := t.Capacity
	for _, c := range m.Constraints() {
		if cl, ok := c.(scheduler.CapacityLike); ok {
			limit = min(limit, cl.Capacity(t))
		}
	}
	return limit
}

// feasible checks capacity and admission up front, then tries the exchange and
// reverts it, rejecting anything that would leave a placement in conflict
func (TeamSwap) feasible(a *scheduler.Assignment, n *rosterNeighbour) bool {
	m := a.Model()
	c1, c2 := a.Context(n.t1), a.Context(n.t2)
	if c1.Size() == 0 && c2.Size() == 0 {
		return false
	}
	if c1.Occupancy() > capacityOf(m, n.t2) || c2.Occupancy() > capacityOf(m, n.t1) {
		return false
	}
	for _, p := range n.s1 {
		if !n.t2.Admits(p) {
			return false
		}
	}
	for _, p := range n.s2 {
		if !n.t1.Admits(p) {
			return false
		}
	}
	ok := true
	a.Explore(func(j *scheduler.Journal) {
		n.exchange(j, n.t2, n.t1)
		for _, p := range n.s1 {
			if m.InConflict(a, models.Placement{Person: p, Team: n.t2}) {
				ok = false
				return
			}
		}
		for _, p := range n.s2 {
			if m.InConflict(a, models.Placement{Person: p, Team: n.t1}) {
				ok = false
				return
			}
		}
	})
	return ok
}

func (s TeamSwap) Select(a *scheduler.Assignment, rnd *rand.Rand) scheduler.Neighbour {
	teams := a.Model().Teams
	r1 := rnd.Intn(len(teams))
	for i := range teams {
		t1 := teams[(i+r1)%len(teams)]
		r2 := rnd.Intn(len(teams))
		for j := range teams {
			t2 := teams[(j+r2)%len(teams)]
			if t1 == t2 || !sameCategory(t1, t2) {
				continue
			}
			n := newRosterNeighbour(a, t1, t2)
			if s.feasible(a, n) {
				return n
			}
		}
	}
	return nil
}

type rosterNeighbour struct {
	scheduler.Reversible
	t1, t2 *models.Team
	s1, s2 []*models.Person
}

func newRosterNeighbour(a *scheduler.Assignment, t1, t2 *models.Team) *rosterNeighbour {
	return &rosterNeighbour{
		t1: t1,
		t2: t2,
		s1: a.Context(t1).SortedMembers(),
		s2: a.Context(t2).SortedMembers(),
	}
}

// exchange unassigns both rosters before reassigning them so no team ever holds both
func (n *rosterNeighbour) exchange(j *scheduler.Journal, to1, to2 *models.Team) {
	for _, p := range n.s1 {
		j.Unassign(p)
	}
	for _, p := range n.s2 {
		j.Unassign(p)
	}
	for _, p := range n.s1 {
		j.Assign(models.Placement{Person: p, Team: to1})
	}
	for _, p := range n.s2 {
		j.Assign(models.Placement{Person: p, Team: to2})
	}
}

func (n *rosterNeighbour) Apply(a *scheduler.Assignment) {
	n.exchange(n.Begin(a), n.t2, n.t1)
}

func (n *rosterNeighbour) Assignments() []models.Placement {
	out := make([]models.Placement, 0, len(n.s1)+len(n.s2))
	for _, p := range n.s1 {
		out = append(out, models.Placement{Person: p, Team: n.t2})
	}
	for _, p := range n.s2 {
		out = append(out, models.Placement{Person: p, Team: n.t1})
	}
	return out
}
