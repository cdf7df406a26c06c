package criteria

import (
	"fmt"
	"math"

	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

// LargeTeam penalizes teams over the target size
type LargeTeam struct {
	International bool
	Size          int
	W             float64
}

func NewLargeTeam(international bool, size int, weight float64) *LargeTeam {
	return &LargeTeam{International: international, Size: size, W: weight}
}

func (c *LargeTeam) Name() string {
	if c.International {
		return "International Large Team"
	}
	return "Large Team"
}

// WeightKey is the configuration key of the weight
func (c *LargeTeam) WeightKey() string {
	if c.International {
		return "InternationalLargeTeam"
	}
	return "LargeTeam"
}

func (c *LargeTeam) Weight() float64 { return c.W }

func (c *LargeTeam) Value(a *scheduler.Assignment, p models.Placement) float64 {
	if c.International && !p.Person.International {
		return 0.0
	}
	cx := a.Context(p.Team)
	size := memberCount(cx, c.International)
	if !containsMember(cx, p.Person, c.International) {
		size++
	}
	if size > c.Size {
		return 1.0
	}
	return 0.0
}

func (c *LargeTeam) TeamTotal(a *scheduler.Assignment, t *models.Team) float64 {
	if size := memberCount(a.Context(t), c.International); size > c.Size {
		return float64(size - c.Size)
	}
	return 0.0
}

func (c *LargeTeam) Total(a *scheduler.Assignment) float64 {
	var penalty float64
	for _, t := range a.Model().Teams {
		penalty += c.TeamTotal(a, t)
	}
	return penalty
}

func (c *LargeTeam) Info(a *scheduler.Assignment, info map[string]string) {
	label := "Students in a team over %d"
	if c.International {
		label = "International students in a team over %d"
	}
	info[fmt.Sprintf(label, c.Size)] = formatFloat(c.Total(a))
}

// SmallTeam penalizes teams under the target size. With International set
// only teams with an international lead are considered.
type SmallTeam struct {
	International bool
	Size          int
	W             float64
}

func NewSmallTeam(international bool, size int, weight float64) *SmallTeam {
	return &SmallTeam{International: international, Size: size, W: weight}
}

func (c *SmallTeam) Name() string {
	if c.International {
		return "International Small Team"
	}
	return "Small Team"
}

func (c *SmallTeam) WeightKey() string {
	if c.International {
		return "InternationalSmallTeam"
	}
	return "SmallTeam"
}

func (c *SmallTeam) Weight() float64 { return c.W }

// Value is +1 when taking the person out would leave the team too small and
// -1 when adding the person still keeps it under the target
func (c *SmallTeam) Value(a *scheduler.Assignment, p models.Placement) float64 {
	if c.International && !p.Person.International {
		return 0.0
	}
	cx := a.Context(p.Team)
	contains := containsMember(cx, p.Person, c.International)
	size := memberCount(cx, c.International)
	if !contains {
		size++
	}
	switch {
	case contains && size < c.Size:
		return 1.0
	case !contains && size < c.Size:
		return -1.0
	}
	return 0.0
}

func (c *SmallTeam) TeamTotal(a *scheduler.Assignment, t *models.Team) float64 {
	if c.International && !t.InternationalLead() {
		return 0.0
	}
	if size := memberCount(a.Context(t), c.International); size < c.Size {
		return float64(c.Size - size)
	}
	return 0.0
}

func (c *SmallTeam) Total(a *scheduler.Assignment) float64 {
	var penalty float64
	for _, t := range a.Model().Teams {
		penalty += c.TeamTotal(a, t)
	}
	return penalty
}

func (c *SmallTeam) Info(a *scheduler.Assignment, info map[string]string) {
	label := "Students in a team under %d"
	if c.International {
		label = "International students in a team under %d"
	}
	info[fmt.Sprintf(label, c.Size)] = formatFloat(c.Total(a))
}

// TeamSize counts pairs of co-members, which spreads people evenly over the teams
type TeamSize struct {
	W float64
}

func NewTeamSize(weight float64) *TeamSize {
	return &TeamSize{W: weight}
}

func (c *TeamSize) Name() string { return "TeamSize" }

func (c *TeamSize) Weight() float64 { return c.W }

func (c *TeamSize) Value(a *scheduler.Assignment, p models.Placement) float64 {
	cx := a.Context(p.Team)
	n := cx.Size()
	if cx.Contains(p.Person) {
		n--
	}
	return float64(n)
}

func (c *TeamSize) TeamTotal(a *scheduler.Assignment, t *models.Team) float64 {
	n := a.Context(t).Size()
	return float64(n*(n-1)) / 2.0
}

func (c *TeamSize) Total(a *scheduler.Assignment) float64 {
	var total float64
	for _, t := range a.Model().Teams {
		total += c.TeamTotal(a, t)
	}
	return total
}

func (c *TeamSize) Info(a *scheduler.Assignment, info map[string]string) {
	teams := a.Model().Teams
	avg := float64(a.NrAssigned()) / float64(len(teams))
	lo, hi, penalty := math.MaxInt, math.MinInt, 0
	var rms float64
	for _, t := range teams {
		cnt := a.Context(t).Size()
		rms += math.Pow(float64(cnt)-avg, 2)
		lo, hi = min(lo, cnt), max(hi, cnt)
		penalty += cnt * (cnt - 1) / 2
	}
	info["Team Size"] = fmt.Sprintf("%.2f +/- %.2f (%d..%d) p=%d", avg, math.Sqrt(rms/float64(len(teams))), lo, hi, penalty)
}

// Deviation counts placements a predicate flags, e.g. members whose value
// differs from the value of their team lead
type Deviation struct {
	Label   string
	W       float64
	Differs func(p models.Placement) bool
	// Describe labels a flagged placement in the report, optional
	Describe func(p models.Placement) string
}

func (c *Deviation) Name() string { return c.Label }

func (c *Deviation) Weight() float64 { return c.W }

func (c *Deviation) Value(a *scheduler.Assignment, p models.Placement) float64 {
	if c.Differs(p) {
		return 1.0
	}
	return 0.0
}

func (c *Deviation) TeamTotal(a *scheduler.Assignment, t *models.Team) float64 {
	var total float64
	for _, p := range a.Context(t).Members() {
		total += c.Value(a, models.Placement{Person: p, Team: t})
	}
	return total
}

func (c *Deviation) Total(a *scheduler.Assignment) float64 {
	var total float64
	for _, p := range a.Placements() {
		total += c.Value(a, p)
	}
	return total
}

func (c *Deviation) Info(a *scheduler.Assignment, info map[string]string) {
	info[c.Label] = formatFloat(c.Total(a))
	if c.Describe == nil {
		return
	}
	counts := make(map[string]int)
	for _, p := range a.Placements() {
		if c.Differs(p) {
			counts[c.Describe(p)]++
		}
	}
	for k, n := range counts {
		info[fmt.Sprintf("%s [%s]", c.Label, k)] = fmt.Sprint(n)
	}
}
