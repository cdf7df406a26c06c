package constraints

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/arnavshah/team-builder-go/pkg/errors"
	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

// fixedScore scores every placement of a person with a fixed value
type fixedScore map[string]float64

func (f fixedScore) Name() string                                           { return "Fixed" }
func (f fixedScore) Weight() float64                                        { return 1.0 }
func (f fixedScore) Value(_ *scheduler.Assignment, p models.Placement) float64 { return f[p.Person.ID] }
func (f fixedScore) Total(*scheduler.Assignment) float64                    { return 0 }

func person(id string, attrs ...string) *models.Person {
	p := models.NewPerson(id, nil)
	for i := 0; i+1 < len(attrs); i += 2 {
		p.Attributes.Set(attrs[i], attrs[i+1])
	}
	return p
}

func build(t *testing.T, people []*models.Person, teams ...*models.Team) *scheduler.Model {
	t.Helper()
	m, err := scheduler.NewModel(people, teams)
	require.NoError(t, err)
	return m
}

func place(a *scheduler.Assignment, p *models.Person, t *models.Team) {
	a.Assign(models.Placement{Person: p, Team: t})
}

func TestCapacityEvictsHighestScore(t *testing.T) {
	p1, p2, p3, candidate := person("a"), person("b"), person("c"), person("d")
	team := &models.Team{Name: "Team 1", Capacity: 3}
	m := build(t, []*models.Person{p1, p2, p3, candidate}, team)
	capacity := NewCapacity(0)
	m.AddConstraint(capacity)
	m.AddCriterion(fixedScore{"a": 5.0, "b": 2.0, "c": 8.0, "d": 1.0})

	a := m.NewAssignment()
	place(a, p1, team)
	place(a, p2, team)
	place(a, p3, team)

	pl := models.Placement{Person: candidate, Team: team}
	assert.True(t, capacity.InConflict(a, pl))

	conflicts := scheduler.NewConflicts()
	capacity.ComputeConflicts(a, pl, conflicts)
	require.Equal(t, 1, conflicts.Len())
	assert.Equal(t, p3, conflicts.Items()[0].Person)
}

func TestCapacityTieBreakLowestID(t *testing.T) {
	p1, p2, candidate := person("b"), person("a"), person("c")
	team := &models.Team{Name: "Team 1", Capacity: 2}
	m := build(t, []*models.Person{p1, p2, candidate}, team)
	capacity := NewCapacity(0)
	m.AddConstraint(capacity)
	m.AddCriterion(fixedScore{"a": 3.0, "b": 3.0})

	a := m.NewAssignment()
	place(a, p1, team)
	place(a, p2, team)

	conflicts := scheduler.NewConflicts()
	capacity.ComputeConflicts(a, models.Placement{Person: candidate, Team: team}, conflicts)
	require.Equal(t, 1, conflicts.Len())
	assert.Equal(t, "a", conflicts.Items()[0].Person.ID)
}

func TestCapacityRestoresRoom(t *testing.T) {
	people := make([]*models.Person, 0, 6)
	for i := 0; i < 5; i++ {
		people = append(people, person(fmt.Sprintf("p%d", i)))
	}
	heavy := person("heavy")
	heavy.Weight = 2
	people = append(people, heavy)
	team := &models.Team{Name: "Team 1", Capacity: 4}
	m := build(t, people, team)
	capacity := NewCapacity(0)
	m.AddConstraint(capacity)

	a := m.NewAssignment()
	for _, p := range people[:4] {
		place(a, p, team)
	}

	conflicts := m.Conflicts(a, models.Placement{Person: heavy, Team: team})
	freed := 0
	for _, c := range conflicts.Items() {
		freed += c.Person.Weight
	}
	assert.LessOrEqual(t, a.Context(team).Occupancy()-freed+heavy.Weight, 4)
	assert.Equal(t, 2, conflicts.Len())
}

func TestCapacityReportsCandidateThatNeverFits(t *testing.T) {
	big := person("big")
	big.Weight = 5
	team := &models.Team{Name: "Team 1", Capacity: 3}
	m := build(t, []*models.Person{big}, team)
	capacity := NewCapacity(0)
	m.AddConstraint(capacity)
	a := m.NewAssignment()

	pl := models.Placement{Person: big, Team: team}
	conflicts := scheduler.NewConflicts()
	capacity.ComputeConflicts(a, pl, conflicts)
	assert.True(t, conflicts.Contains(pl))
}

func TestInternationalQuota(t *testing.T) {
	i1, i2, i3, local := person("i1"), person("i2"), person("i3"), person("l1")
	i1.International, i2.International, i3.International = true, true, true
	team := &models.Team{Name: "Team 1", Capacity: 10}
	m := build(t, []*models.Person{i1, i2, i3, local}, team)
	quota := NewInternationalQuota(2)
	m.AddConstraint(quota)
	m.AddCriterion(fixedScore{"i1": 1.0, "i2": 4.0})

	a := m.NewAssignment()
	place(a, i1, team)
	place(a, i2, team)

	assert.False(t, quota.InConflict(a, models.Placement{Person: local, Team: team}))
	assert.True(t, quota.InConflict(a, models.Placement{Person: i3, Team: team}))

	conflicts := scheduler.NewConflicts()
	quota.ComputeConflicts(a, models.Placement{Person: i3, Team: team}, conflicts)
	require.Equal(t, 1, conflicts.Len())
	assert.Equal(t, i2, conflicts.Items()[0].Person)
}

func TestInternationalLead(t *testing.T) {
	lead := person("lead")
	intl := person("s1")
	intl.International = true
	team := &models.Team{Name: "Team 1", Capacity: 3, Lead: lead}
	m := build(t, []*models.Person{intl}, team)
	a := m.NewAssignment()
	c := InternationalLead{}

	assert.True(t, c.InConflict(a, models.Placement{Person: intl, Team: team}))
	lead.International = true
	assert.False(t, c.InConflict(a, models.Placement{Person: intl, Team: team}))
}

func TestRequiredFeatureHard(t *testing.T) {
	lead := person("lead", "Date", "Fri")
	fri, sat, none := person("a", "Date", "Fri"), person("b", "Date", "Sat"), person("c")
	team := &models.Team{Name: "Team 1", Capacity: 5, Lead: lead}
	open := &models.Team{Name: "Team 2", Capacity: 5}
	m := build(t, []*models.Person{fri, sat, none}, team, open)
	c := NewRequiredFeature(Hard, "Date")
	m.AddConstraint(c)
	a := m.NewAssignment()

	assert.False(t, c.InConflict(a, models.Placement{Person: fri, Team: team}))
	assert.True(t, c.InConflict(a, models.Placement{Person: sat, Team: team}), "member and lead must agree")
	assert.False(t, c.InConflict(a, models.Placement{Person: none, Team: team}), "missing values are compatible")

	place(a, sat, open)
	conflicts := scheduler.NewConflicts()
	c.ComputeConflicts(a, models.Placement{Person: fri, Team: open}, conflicts)
	require.Equal(t, 1, conflicts.Len())
	assert.Equal(t, sat, conflicts.Items()[0].Person)

	assert.False(t, c.IsConsistent(models.Placement{Person: fri, Team: open}, models.Placement{Person: sat, Team: open}))
	assert.True(t, c.IsConsistent(models.Placement{Person: fri, Team: open}, models.Placement{Person: sat, Team: team}))
	assert.Len(t, m.Criteria(), 0, "hard mode has no companion criterion")
}

func TestRequiredFeatureSoftSupervisors(t *testing.T) {
	lead := person("lead", "Group", "X")
	deviant, x, y := person("a", "Group", "Y"), person("b", "Group", "X"), person("c", "Group", "Z")
	team := &models.Team{Name: "Team 1", Capacity: 5, Lead: lead}
	m := build(t, []*models.Person{deviant, x, y}, team)
	c := NewRequiredFeature(SoftSupervisors, "Group")
	m.AddConstraint(c)
	require.Len(t, m.Criteria(), 1)

	a := m.NewAssignment()
	place(a, deviant, team)

	assert.True(t, c.IsDifferent(models.Placement{Person: deviant, Team: team}))
	assert.False(t, c.InConflict(a, models.Placement{Person: x, Team: team}), "members deviating from the lead are tolerated")
	assert.False(t, c.InConflict(a, models.Placement{Person: y, Team: team}), "a deviating candidate is tolerated")
	assert.Equal(t, 1.0, m.Criteria()[0].Total(a))
}

func TestRequiredFeatureSoftTeams(t *testing.T) {
	lead := person("lead", "Group", "X")
	a1, a2 := person("a", "Group", "Y"), person("b", "Group", "Z")
	team := &models.Team{Name: "Team 1", Capacity: 5, Lead: lead}
	m := build(t, []*models.Person{a1, a2}, team)
	c := NewRequiredFeature(SoftTeams, "Group")
	m.AddConstraint(c)
	a := m.NewAssignment()

	assert.False(t, c.InConflict(a, models.Placement{Person: a1, Team: team}), "the lead is ignored")
	place(a, a1, team)
	assert.True(t, c.InConflict(a, models.Placement{Person: a2, Team: team}))
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("soft_teams")
	require.NoError(t, err)
	assert.Equal(t, SoftTeams, mode)
	_, err = ParseMode("medium")
	assert.Error(t, err)
}

func TestSameFeature(t *testing.T) {
	en, de, blank := person("a", "Lang", "en"), person("b", "Lang", "de"), person("c")
	team := &models.Team{Name: "Team 1", Capacity: 5}
	m := build(t, []*models.Person{en, de, blank}, team)
	c := NewSameFeature("Lang")
	m.AddConstraint(c)
	a := m.NewAssignment()
	place(a, en, team)

	assert.True(t, c.InConflict(a, models.Placement{Person: de, Team: team}))
	assert.False(t, c.InConflict(a, models.Placement{Person: blank, Team: team}))
	assert.True(t, c.Same(blank, de))
}

func TestSameTeamEvictsWholeGroup(t *testing.T) {
	p1, p2, p3, outsider := person("a"), person("b"), person("c"), person("d")
	t1 := &models.Team{Name: "Team 1", Capacity: 5}
	t2 := &models.Team{Name: "Team 2", Capacity: 5}
	m := build(t, []*models.Person{p1, p2, p3, outsider}, t1, t2)
	c := NewSameTeam(p1, p2, p3)
	m.AddConstraint(c)
	a := m.NewAssignment()
	place(a, p1, t1)
	place(a, p2, t1)

	assert.False(t, c.InConflict(a, models.Placement{Person: p3, Team: t1}))
	assert.True(t, c.InConflict(a, models.Placement{Person: p3, Team: t2}))
	assert.False(t, c.InConflict(a, models.Placement{Person: outsider, Team: t2}))

	conflicts := scheduler.NewConflicts()
	c.ComputeConflicts(a, models.Placement{Person: p1, Team: t2}, conflicts)
	require.Equal(t, 1, conflicts.Len(), "the moving member is not its own conflict")
	assert.Equal(t, p2, conflicts.Items()[0].Person)

	a.Unassign(p1)
	a.Unassign(p2)
	assert.False(t, c.InConflict(a, models.Placement{Person: p3, Team: t2}))
	assert.NoError(t, a.Verify())
}

func TestSameTeamVerifyChecksSharedTeam(t *testing.T) {
	p1, p2 := person("a"), person("b")
	t1 := &models.Team{Name: "Team 1", Capacity: 5}
	t2 := &models.Team{Name: "Team 2", Capacity: 5}
	m := build(t, []*models.Person{p1, p2}, t1, t2)
	c := NewSameTeam(p1, p2)
	m.AddConstraint(c)
	a := m.NewAssignment()
	place(a, p1, t1)
	place(a, p2, t1)
	require.NoError(t, a.Verify())

	cx := c.context(a)
	cx.team = t2
	err := a.Verify()
	require.Error(t, err)
	assert.True(t, apperrors.IsDesync(err))

	cx.team = t1
	require.NoError(t, a.Verify())

	a.Unassign(p1)
	a.Unassign(p2)
	cx.team = t1
	assert.Error(t, a.Verify(), "an unplaced group keeps no team")
}

func TestDifferentTeam(t *testing.T) {
	l1, l2 := person("l1"), person("l2")
	t1 := &models.Team{Name: "Team 1", Capacity: 5}
	t2 := &models.Team{Name: "Team 2", Capacity: 5}
	m := build(t, []*models.Person{l1, l2}, t1, t2)
	c := NewDifferentTeam(l1, l2)
	m.AddConstraint(c)
	a := m.NewAssignment()
	place(a, l1, t1)

	assert.True(t, c.InConflict(a, models.Placement{Person: l2, Team: t1}))
	assert.False(t, c.InConflict(a, models.Placement{Person: l2, Team: t2}))
	assert.False(t, c.InConflict(a, models.Placement{Person: l1, Team: t1}))

	place(a, l1, t2)
	assert.False(t, c.InConflict(a, models.Placement{Person: l2, Team: t1}))
	assert.NoError(t, a.Verify())
}
