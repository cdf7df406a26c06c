package neighbours

import (
	"math/rand"

	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

// Move relocates an assigned person into another team without conflicts.
// The scan starts at a random person and a random team and wraps around.
type Move struct{}

func (Move) Init(*scheduler.Assignment) error { return nil }

func (Move) Select(a *scheduler.Assignment, rnd *rand.Rand) scheduler.Neighbour {
	m := a.Model()
	people, teams := m.People, m.Teams
	r1 := rnd.Intn(len(people))
	for i := range people {
		p := people[(i+r1)%len(people)]
		current := a.TeamOf(p)
		if current == nil {
			continue
		}
		r2 := rnd.Intn(len(teams))
		for j := range teams {
			t := teams[(j+r2)%len(teams)]
			if t == current {
				continue
			}
			pl := models.Placement{Person: p, Team: t}
			if !m.InConflict(a, pl) {
				return &moveNeighbour{placement: pl}
			}
		}
	}
	return nil
}

type moveNeighbour struct {
	scheduler.Reversible
	placement models.Placement
}

func (n *moveNeighbour) Apply(a *scheduler.Assignment) {
	n.Begin(a).Assign(n.placement)
}

func (n *moveNeighbour) Assignments() []models.Placement {
	return []models.Placement{n.placement}
}
