package neighbours

import (
	"math/rand"

	"github.com/arnavshah/team-builder-go/pkg/constraints"
	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

// Swap exchanges two assigned persons of different teams. Occupancy
// constraints are skipped since a swap of equal weights keeps occupancy;
// unequal weights are checked against the capacity directly.
type Swap struct {
	sameFeatures []*constraints.SameFeature
	linked       map[*models.Person]bool
	capacities   []scheduler.CapacityLike
	others       []scheduler.Constraint
}

func NewSwap() *Swap { return &Swap{} }

func (s *Swap) Init(a *scheduler.Assignment) error {
	s.sameFeatures, s.capacities, s.others = nil, nil, nil
	s.linked = make(map[*models.Person]bool)
	for _, c := range a.Model().Constraints() {
		switch c := c.(type) {
		case scheduler.CapacityLike:
			s.capacities = append(s.capacities, c)
			continue
		case *constraints.SameFeature:
			s.sameFeatures = append(s.sameFeatures, c)
		case *constraints.SameTeam:
			for _, p := range c.Persons() {
				s.linked[p] = true
			}
		}
		s.others = append(s.others, c)
	}
	return nil
}

// swappable filters persons that can take part in a swap at all
func (s *Swap) swappable(a *scheduler.Assignment, p *models.Person) bool {
	if s.linked[p] || a.TeamOf(p) == nil {
		return false
	}
	return len(a.Model().Values(p)) > 1
}

func (s *Swap) fits(a *scheduler.Assignment, t *models.Team, out, in *models.Person) bool {
	occupancy := a.Context(t).Occupancy() - out.Weight + in.Weight
	for _, c := range s.capacities {
		if occupancy > c.Capacity(t) {
			return false
		}
	}
	return true
}

func (s *Swap) feasible(a *scheduler.Assignment, s1, s2 *models.Person) (models.Placement, models.Placement, bool) {
	t1, t2 := a.TeamOf(s1), a.TeamOf(s2)
	if t1 == t2 || s1.Leader != s2.Leader {
		return models.Placement{}, models.Placement{}, false
	}
	for _, f := range s.sameFeatures {
		if !f.Same(s1, s2) {
			return models.Placement{}, models.Placement{}, false
		}
	}
	if !t1.Admits(s2) || !t2.Admits(s1) || !s.fits(a, t1, s1, s2) || !s.fits(a, t2, s2, s1) {
		return models.Placement{}, models.Placement{}, false
	}
	n1 := models.Placement{Person: s1, Team: t2}
	n2 := models.Placement{Person: s2, Team: t1}
	// each placement is checked with the partner already in its new team
	ok := true
	a.Explore(func(j *scheduler.Journal) {
		j.Unassign(s1)
		j.Unassign(s2)
		j.Assign(n2)
		if s.inConflict(a, n1) {
			ok = false
			return
		}
		j.Unassign(s2)
		j.Assign(n1)
		ok = !s.inConflict(a, n2)
	})
	if !ok {
		return models.Placement{}, models.Placement{}, false
	}
	return n1, n2, true
}

func (s *Swap) inConflict(a *scheduler.Assignment, p models.Placement) bool {
	for _, c := range s.others {
		if c.InConflict(a, p) {
			return true
		}
	}
	return false
}

func (s *Swap) Select(a *scheduler.Assignment, rnd *rand.Rand) scheduler.Neighbour {
	people := a.Model().People
	r1 := rnd.Intn(len(people))
	for i := range people {
		s1 := people[(i+r1)%len(people)]
		if !s.swappable(a, s1) {
			continue
		}
		r2 := rnd.Intn(len(people))
		for j := range people {
			s2 := people[(j+r2)%len(people)]
			if s1 == s2 || !s.swappable(a, s2) {
				continue
			}
			if n1, n2, ok := s.feasible(a, s1, s2); ok {
				return &swapNeighbour{first: n1, second: n2}
			}
		}
	}
	return nil
}

type swapNeighbour struct {
	scheduler.Reversible
	first, second models.Placement
}

func (n *swapNeighbour) Apply(a *scheduler.Assignment) {
	j := n.Begin(a)
	j.Unassign(n.first.Person)
	j.Unassign(n.second.Person)
	j.Assign(n.first)
	j.Assign(n.second)
}

func (n *swapNeighbour) Assignments() []models.Placement {
	return []models.Placement{n.first, n.second}
}
