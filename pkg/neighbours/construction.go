package neighbours

import (
	"math/rand"
	"sort"

	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

// Construction places every unassigned person once, international persons
// first and then by identifier, into the team with the lowest placement score.
// The first pass skips empty teams whose lead lacks the seed attribute so that
// seeded teams fill up first; the second pass accepts any team.
type Construction struct {
	// SeedAttribute is the lead attribute required to open an empty team in the first pass
	SeedAttribute string
	// GroupAttribute labels unassignable persons in the report
	GroupAttribute string

	queue        []*models.Person
	next         int
	unassignable []models.UnassignedReason
}

func NewConstruction(seedAttribute, groupAttribute string) *Construction {
	return &Construction{SeedAttribute: seedAttribute, GroupAttribute: groupAttribute}
}

func (c *Construction) Init(a *scheduler.Assignment) error {
	people := a.Model().People
	c.queue = make([]*models.Person, len(people))
	copy(c.queue, people)
	sort.SliceStable(c.queue, func(i, j int) bool {
		pi, pj := c.queue[i], c.queue[j]
		if pi.International != pj.International {
			return pi.International
		}
		return pi.ID < pj.ID
	})
	c.next = 0
	c.unassignable = nil
	return nil
}

// Done tells whether every person has been processed
func (c *Construction) Done() bool { return c.next >= len(c.queue) }

// Unassignable lists the persons no team could take
func (c *Construction) Unassignable() []models.UnassignedReason { return c.unassignable }

func (c *Construction) skip(a *scheduler.Assignment, t *models.Team) bool {
	if c.SeedAttribute == "" || t.Lead == nil {
		return false
	}
	if _, ok := t.Lead.Attributes.Get(c.SeedAttribute); ok {
		return false
	}
	return a.Context(t).Size() == 0
}

func (c *Construction) best(a *scheduler.Assignment, p *models.Person, seeded bool) (models.Placement, bool) {
	m := a.Model()
	var best models.Placement
	var bestValue float64
	found := false
	for _, t := range m.Teams {
		if seeded && c.skip(a, t) {
			continue
		}
		pl := models.Placement{Person: p, Team: t}
		if m.InConflict(a, pl) {
			continue
		}
		if v := m.Score(a, pl); !found || v < bestValue {
			best, bestValue, found = pl, v, true
		}
	}
	return best, found
}

func (c *Construction) Select(a *scheduler.Assignment, _ *rand.Rand) scheduler.Neighbour {
	for c.next < len(c.queue) {
		p := c.queue[c.next]
		c.next++
		if a.TeamOf(p) != nil {
			continue
		}
		best, ok := c.best(a, p, true)
		if !ok {
			best, ok = c.best(a, p, false)
		}
		if ok {
			return scheduler.NewSimpleNeighbour(best)
		}
		c.unassignable = append(c.unassignable, c.reason(a, p))
	}
	return nil
}

// reason lists the constraints that rejected every team
func (c *Construction) reason(a *scheduler.Assignment, p *models.Person) models.UnassignedReason {
	m := a.Model()
	r := models.UnassignedReason{PersonID: p.ID}
	if c.GroupAttribute != "" {
		r.Group, _ = p.Attributes.Get(c.GroupAttribute)
	}
	seen := make(map[string]bool)
	for _, t := range m.Teams {
		pl := models.Placement{Person: p, Team: t}
		if !t.Admits(p) {
			if !seen["not admitted"] {
				seen["not admitted"] = true
				r.Reasons = append(r.Reasons, "not admitted")
			}
			continue
		}
		for _, con := range m.Constraints() {
			if con.InConflict(a, pl) && !seen[con.Name()] {
				seen[con.Name()] = true
				r.Reasons = append(r.Reasons, con.Name())
			}
		}
	}
	return r
}
