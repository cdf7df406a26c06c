package scheduler

import "github.com/arnavshah/team-builder-go/pkg/models"

// TeamValues caches the weighted value of every team of one assignment so
// that a move is rescored over the teams it touched. It is only exact for a
// Decomposable model.
type TeamValues struct {
	values  []float64
	total   float64
	pending map[*models.Team]float64
}

// NewTeamValues scores every team of the assignment and starts tracking its mutations
func NewTeamValues(a *Assignment) *TeamValues {
	m := a.Model()
	v := &TeamValues{values: make([]float64, len(m.Teams)), pending: make(map[*models.Team]float64)}
	for _, t := range m.Teams {
		v.values[t.Index] = m.TeamValue(a, t)
		v.total += v.values[t.Index]
	}
	a.ClearTouched()
	return v
}

// Total is the cached value of the assignment
func (v *TeamValues) Total() float64 { return v.total }

// Pending rescores the teams touched since the last Commit or Discard and
// returns the resulting total
func (v *TeamValues) Pending(a *Assignment) float64 {
	m := a.Model()
	total := v.total
	for _, t := range a.Touched() {
		val := m.TeamValue(a, t)
		v.pending[t] = val
		total += val - v.values[t.Index]
	}
	return total
}

// Commit keeps the values computed by Pending
func (v *TeamValues) Commit(a *Assignment) {
	for t, val := range v.pending {
		v.values[t.Index] = val
		delete(v.pending, t)
	}
	v.total = 0
	for _, val := range v.values {
		v.total += val
	}
	a.ClearTouched()
}

// Discard drops the values computed by Pending; the move has been undone
func (v *TeamValues) Discard(a *Assignment) {
	for t := range v.pending {
		delete(v.pending, t)
	}
	a.ClearTouched()
}
