package constraints

import (
	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

// InternationalQuota limits the number of international members of a team
type InternationalQuota struct {
	Limit int
}

func NewInternationalQuota(limit int) *InternationalQuota {
	return &InternationalQuota{Limit: limit}
}

func (c *InternationalQuota) Name() string { return "InternationalTeamSize" }

func (c *InternationalQuota) InConflict(a *scheduler.Assignment, p models.Placement) bool {
	if !p.Person.International {
		return false
	}
	cx := a.Context(p.Team)
	return !cx.ContainsInternational(p.Person) && cx.InternationalSize() >= c.Limit
}

func (c *InternationalQuota) ComputeConflicts(a *scheduler.Assignment, p models.Placement, conflicts *scheduler.Conflicts) {
	if !c.InConflict(a, p) {
		return
	}
	cx := a.Context(p.Team)
	if cx.InternationalSize() == 0 {
		// nobody to make room with: take the weakest member of the whole team
		if ranked := rankByScore(a, cx.Members()); len(ranked) > 0 {
			pl, _ := a.Get(ranked[0].person)
			conflicts.Add(pl)
		}
		return
	}
	need := cx.InternationalSize() + 1 - c.Limit
	if !evict(a, cx.InternationalMembers(), need, countOf, conflicts) {
		conflicts.Add(p)
	}
}

func (c *InternationalQuota) IsConsistent(p1, p2 models.Placement) bool { return true }

// InternationalLead keeps international persons out of teams whose lead is not international
type InternationalLead struct{}

func (InternationalLead) Name() string { return "InternationalTeamLead" }

func (InternationalLead) violates(p models.Placement) bool {
	return p.Person.International && p.Team.Lead != nil && !p.Team.Lead.International
}

func (c InternationalLead) InConflict(a *scheduler.Assignment, p models.Placement) bool {
	return c.violates(p)
}

func (c InternationalLead) ComputeConflicts(a *scheduler.Assignment, p models.Placement, conflicts *scheduler.Conflicts) {
	if c.violates(p) {
		conflicts.Add(p)
	}
}

func (c InternationalLead) IsConsistent(p1, p2 models.Placement) bool {
	return !c.violates(p1) && !c.violates(p2)
}
