package constraints

import (
	"sort"

	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

// Capacity limits the weighted occupancy of every team
type Capacity struct {
	// Limit overrides the capacity of each team when positive
	Limit int
}

func NewCapacity(limit int) *Capacity {
	return &Capacity{Limit: limit}
}

func (c *Capacity) Name() string { return "TeamSize" }

// Capacity is the effective limit of a team
func (c *Capacity) Capacity(t *models.Team) int {
	if c.Limit > 0 {
		return c.Limit
	}
	return t.Capacity
}

func (c *Capacity) InConflict(a *scheduler.Assignment, p models.Placement) bool {
	cx := a.Context(p.Team)
	if cx.Contains(p.Person) {
		return false
	}
	return cx.OccupancyIfAdded(p.Person) > c.Capacity(p.Team)
}

// ComputeConflicts evicts the members with the highest placement score
// (lowest identifier first on ties) until the candidate fits
func (c *Capacity) ComputeConflicts(a *scheduler.Assignment, p models.Placement, conflicts *scheduler.Conflicts) {
	if !c.InConflict(a, p) {
		return
	}
	cx := a.Context(p.Team)
	need := cx.OccupancyIfAdded(p.Person) - c.Capacity(p.Team)
	if !evict(a, cx.Members(), need, weightOf, conflicts) {
		conflicts.Add(p)
	}
}

func (c *Capacity) IsConsistent(p1, p2 models.Placement) bool { return true }

func weightOf(p *models.Person) int { return p.Weight }

func countOf(*models.Person) int { return 1 }

type scored struct {
	person *models.Person
	score  float64
}

// rankByScore orders members by decreasing placement score, ties by lowest identifier
func rankByScore(a *scheduler.Assignment, members []*models.Person) []scored {
	ranked := make([]scored, 0, len(members))
	for _, m := range members {
		pl, ok := a.Get(m)
		if !ok {
			continue
		}
		ranked = append(ranked, scored{person: m, score: a.Model().Score(a, pl)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].person.ID < ranked[j].person.ID
	})
	return ranked
}

// evict adds the members that have to go so that at least need units are
// freed. Members already evicted by another constraint count as freed.
// It returns false when the members cannot free enough.
func evict(a *scheduler.Assignment, members []*models.Person, need int, units func(*models.Person) int, conflicts *scheduler.Conflicts) bool {
	for _, m := range members {
		if need <= 0 {
			return true
		}
		if conflicts.ContainsPerson(m) {
			need -= units(m)
		}
	}
	if need <= 0 {
		return true
	}
	var picked []*models.Person
	for _, s := range rankByScore(a, members) {
		if need <= 0 {
			break
		}
		if units(s.person) == 0 || conflicts.ContainsPerson(s.person) {
			continue
		}
		picked = append(picked, s.person)
		need -= units(s.person)
	}
	if need > 0 {
		return false
	}
	for _, m := range picked {
		pl, _ := a.Get(m)
		conflicts.Add(pl)
	}
	return true
}
