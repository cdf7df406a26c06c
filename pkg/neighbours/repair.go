package neighbours

import (
	"math/rand"

	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

// Repair places a random unassigned person into the team needing the fewest
// evictions, the lowest placement score breaking ties
type Repair struct{}

func (Repair) Init(*scheduler.Assignment) error { return nil }

func (Repair) Select(a *scheduler.Assignment, rnd *rand.Rand) scheduler.Neighbour {
	unassigned := a.Unassigned()
	if len(unassigned) == 0 {
		return nil
	}
	m := a.Model()
	r := rnd.Intn(len(unassigned))
	for i := range unassigned {
		p := unassigned[(i+r)%len(unassigned)]
		var best models.Placement
		bestEvictions, bestScore, found := 0, 0.0, false
		for _, pl := range m.Values(p) {
			conflicts := m.Conflicts(a, pl)
			if conflicts.Contains(pl) {
				continue
			}
			evictions, score := conflicts.Len(), m.Score(a, pl)
			if !found || evictions < bestEvictions || (evictions == bestEvictions && score < bestScore) {
				best, bestEvictions, bestScore, found = pl, evictions, score, true
			}
		}
		if found {
			return scheduler.NewSimpleNeighbour(best)
		}
	}
	return nil
}
