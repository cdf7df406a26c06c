package constraints

import (
	"fmt"

	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

// SameFeature forbids co-members with different non-empty values of an attribute
type SameFeature struct {
	Chain []string
}

func NewSameFeature(chain ...string) *SameFeature {
	return &SameFeature{Chain: chain}
}

func (c *SameFeature) Key() string { return c.Chain[0] }

func (c *SameFeature) Name() string { return "Same " + c.Key() }

// Property resolves the attribute through the fallback chain
func (c *SameFeature) Property(p *models.Person) (string, bool) {
	return p.Attributes.Lookup(c.Chain...)
}

// Same tells whether two persons may share a team
func (c *SameFeature) Same(a, b *models.Person) bool {
	va, oka := c.Property(a)
	vb, okb := c.Property(b)
	return !oka || !okb || va == vb
}

func (c *SameFeature) InConflict(a *scheduler.Assignment, p models.Placement) bool {
	for _, other := range a.Context(p.Team).Members() {
		if other != p.Person && !c.Same(p.Person, other) {
			return true
		}
	}
	return false
}

func (c *SameFeature) ComputeConflicts(a *scheduler.Assignment, p models.Placement, conflicts *scheduler.Conflicts) {
	for _, other := range a.Context(p.Team).Members() {
		if other == p.Person || c.Same(p.Person, other) {
			continue
		}
		if op, ok := a.Get(other); ok {
			conflicts.Add(op)
		}
	}
}

func (c *SameFeature) IsConsistent(p1, p2 models.Placement) bool {
	return p1.Team != p2.Team || c.Same(p1.Person, p2.Person)
}

// group is the membership set shared by SameTeam and DifferentTeam
type group struct {
	persons []*models.Person
	members map[*models.Person]struct{}
}

func newGroup(persons []*models.Person) group {
	g := group{members: make(map[*models.Person]struct{}, len(persons))}
	g.add(persons...)
	return g
}

func (g *group) add(persons ...*models.Person) {
	for _, p := range persons {
		if _, ok := g.members[p]; ok {
			continue
		}
		g.members[p] = struct{}{}
		g.persons = append(g.persons, p)
	}
}

func (g *group) has(p *models.Person) bool {
	_, ok := g.members[p]
	return ok
}

// Persons returns the members of the group
func (g *group) Persons() []*models.Person { return g.persons }

// SameTeam keeps a linked group of persons together. Moving one member
// elsewhere evicts the rest of the group.
type SameTeam struct {
	group
	Label string
}

func NewSameTeam(persons ...*models.Person) *SameTeam {
	return &SameTeam{group: newGroup(persons)}
}

// Add links more persons into the group; only valid before the constraint is registered
func (c *SameTeam) Add(persons ...*models.Person) { c.group.add(persons...) }

// Has tells whether the person belongs to the group
func (c *SameTeam) Has(p *models.Person) bool { return c.group.has(p) }

func (c *SameTeam) Name() string {
	if c.Label != "" {
		return c.Label
	}
	return "SameTeam"
}

type sameTeamContext struct {
	team       *models.Team
	placements *scheduler.Conflicts
}

func (c *SameTeam) NewContext(a *scheduler.Assignment) scheduler.ConstraintContext {
	cx := &sameTeamContext{placements: scheduler.NewConflicts()}
	for _, p := range c.persons {
		if pl, ok := a.Get(p); ok {
			cx.Placed(pl)
		}
	}
	return cx
}

func (cx *sameTeamContext) Placed(p models.Placement) {
	cx.placements.Add(p)
	cx.team = p.Team
}

func (cx *sameTeamContext) Unplaced(p models.Placement) {
	cx.placements.Remove(p)
	if items := cx.placements.Items(); len(items) == 0 {
		cx.team = nil
	} else if cx.team == p.Team && !cx.holds(p.Team) {
		cx.team = items[len(items)-1].Team
	}
}

func (cx *sameTeamContext) holds(t *models.Team) bool {
	for _, p := range cx.placements.Items() {
		if p.Team == t {
			return true
		}
	}
	return false
}

func (cx *sameTeamContext) Check(fresh scheduler.ConstraintContext) []string {
	f := fresh.(*sameTeamContext)
	var details []string
	if f.placements.Len() != cx.placements.Len() {
		details = append(details, fmt.Sprintf("placements %d != %d", cx.placements.Len(), f.placements.Len()))
	}
	for _, p := range f.placements.Items() {
		if !cx.placements.Contains(p) {
			details = append(details, fmt.Sprintf("%s is missing", p))
		}
	}
	if f.placements.Len() == 0 {
		if cx.team != nil {
			details = append(details, fmt.Sprintf("team %s set for an unplaced group", cx.team.Name))
		}
		return details
	}
	// with a split group the cached team can be any of the placed teams
	shared, held := f.team, false
	for _, p := range f.placements.Items() {
		if p.Team != f.team {
			shared = nil
		}
		if p.Team == cx.team {
			held = true
		}
	}
	if (shared != nil && cx.team != shared) || !held {
		details = append(details, fmt.Sprintf("team %v, expected %v", cx.team, f.team))
	}
	return details
}

func (c *SameTeam) context(a *scheduler.Assignment) *sameTeamContext {
	return a.ConstraintContext(c).(*sameTeamContext)
}

func (c *SameTeam) InConflict(a *scheduler.Assignment, p models.Placement) bool {
	if !c.has(p.Person) {
		return false
	}
	cx := c.context(a)
	if cx.team == nil || cx.team == p.Team {
		return false
	}
	for _, other := range cx.placements.Items() {
		if other.Person != p.Person {
			return true
		}
	}
	return false
}

func (c *SameTeam) ComputeConflicts(a *scheduler.Assignment, p models.Placement, conflicts *scheduler.Conflicts) {
	if !c.has(p.Person) {
		return
	}
	cx := c.context(a)
	if cx.team == nil || cx.team == p.Team {
		return
	}
	for _, other := range cx.placements.Items() {
		if other.Person != p.Person {
			conflicts.Add(other)
		}
	}
}

func (c *SameTeam) IsConsistent(p1, p2 models.Placement) bool {
	if !c.has(p1.Person) || !c.has(p2.Person) {
		return true
	}
	return p1.Team == p2.Team
}

// DifferentTeam allows at most one member of a group per team
type DifferentTeam struct {
	group
	Label string
}

func NewDifferentTeam(persons ...*models.Person) *DifferentTeam {
	return &DifferentTeam{group: newGroup(persons)}
}

func (c *DifferentTeam) Name() string {
	if c.Label != "" {
		return c.Label
	}
	return "DifferentTeam"
}

type differentTeamContext struct {
	occupant map[*models.Team]models.Placement
}

func (c *DifferentTeam) NewContext(a *scheduler.Assignment) scheduler.ConstraintContext {
	cx := &differentTeamContext{occupant: make(map[*models.Team]models.Placement)}
	for _, p := range c.persons {
		if pl, ok := a.Get(p); ok {
			cx.Placed(pl)
		}
	}
	return cx
}

func (cx *differentTeamContext) Placed(p models.Placement) {
	cx.occupant[p.Team] = p
}

func (cx *differentTeamContext) Unplaced(p models.Placement) {
	if cx.occupant[p.Team] == p {
		delete(cx.occupant, p.Team)
	}
}

func (cx *differentTeamContext) Check(fresh scheduler.ConstraintContext) []string {
	f := fresh.(*differentTeamContext)
	var details []string
	for t, p := range f.occupant {
		if cx.occupant[t] != p {
			details = append(details, fmt.Sprintf("%s: expected %s", t.Name, p))
		}
	}
	if len(f.occupant) != len(cx.occupant) {
		details = append(details, fmt.Sprintf("occupied teams %d != %d", len(cx.occupant), len(f.occupant)))
	}
	return details
}

func (c *DifferentTeam) occupant(a *scheduler.Assignment, t *models.Team) (models.Placement, bool) {
	cx := a.ConstraintContext(c).(*differentTeamContext)
	p, ok := cx.occupant[t]
	return p, ok
}

func (c *DifferentTeam) InConflict(a *scheduler.Assignment, p models.Placement) bool {
	if !c.has(p.Person) {
		return false
	}
	other, ok := c.occupant(a, p.Team)
	return ok && other.Person != p.Person
}

func (c *DifferentTeam) ComputeConflicts(a *scheduler.Assignment, p models.Placement, conflicts *scheduler.Conflicts) {
	if !c.has(p.Person) {
		return
	}
	if other, ok := c.occupant(a, p.Team); ok && other.Person != p.Person {
		conflicts.Add(other)
	}
}

func (c *DifferentTeam) IsConsistent(p1, p2 models.Placement) bool {
	if !c.has(p1.Person) || !c.has(p2.Person) {
		return true
	}
	return p1.Team != p2.Team
}
