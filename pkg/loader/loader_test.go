package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/team-builder-go/pkg/config"
	"github.com/arnavshah/team-builder-go/pkg/constraints"
	"github.com/arnavshah/team-builder-go/pkg/criteria"
	apperrors "github.com/arnavshah/team-builder-go/pkg/errors"
	"github.com/arnavshah/team-builder-go/pkg/logger"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

func teamsConfig() config.Teams {
	return config.Teams{
		Variant:         "plain",
		Size:            5,
		QuotaSlack:      1,
		IDAttribute:     "PUID",
		SameAsAttribute: "sameAsId",
		International:   []string{"BGRi=Yes", "TLi=True", "TSi=TRUE"},
		GroupAttribute:  "BGRHallGroup",
		HallAttributes:  []string{"Residence Hall", "ResHall"},
		GroupMode:       "SOFT_TEAMS",
		Features:        []string{"Gender", "Ethnicity", "BGRi", "Residence Hall,ResHall"},
	}
}

func table(t *testing.T, doc string) *Table {
	t.Helper()
	tb, err := ReadTable(strings.NewReader(doc))
	require.NoError(t, err)
	return tb
}

func constraintNames(m *scheduler.Model) []string {
	var names []string
	for _, c := range m.Constraints() {
		names = append(names, c.Name())
	}
	return names
}

func TestReadTable(t *testing.T) {
	tb := table(t, "\ufeffPUID, Gender ,Major\n1,F,CS\n\n2,,ME\n")

	assert.Equal(t, []string{"PUID", "Gender", "Major"}, tb.Header)
	require.Len(t, tb.Rows, 2)
	assert.Equal(t, "F", tb.Rows[0]["Gender"])
	_, ok := tb.Rows[1].Get("Gender")
	assert.False(t, ok, "empty cells are dropped")
	assert.True(t, tb.Has("Major"))
	assert.False(t, tb.Has("Minor"))
}

func TestReadTableErrors(t *testing.T) {
	_, err := ReadTable(strings.NewReader(""))
	assert.True(t, apperrors.IsValidation(err))

	_, err = ReadTable(strings.NewReader("a,b\n1,2,3\n"))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "3 values for 2 columns")
}

func TestPersons(t *testing.T) {
	r := NewReader(teamsConfig(), logger.Discard())
	tb := table(t, "PUID,BGRi,TLi,Residence Hall,ResHall,BGRHallGroup\n"+
		"10,yes,,owen hall,,\n"+
		",,TRUE,,Nowhere Hall,\n"+
		"12,,,Owen Hall,,Custom\n")

	people := r.Persons(tb, "p")
	require.Len(t, people, 3)

	assert.Equal(t, "10", people[0].ID)
	assert.True(t, people[0].International)
	assert.Equal(t, "OOC", people[0].Attributes["BGRHallGroup"])

	assert.Equal(t, "p2", people[1].ID)
	assert.True(t, people[1].International)
	assert.Equal(t, Other, people[1].Attributes["BGRHallGroup"])

	assert.False(t, people[2].International)
	assert.Equal(t, "Custom", people[2].Attributes["BGRHallGroup"])
	assert.Equal(t, 1, people[0].Weight)

	// the table rows stay untouched
	_, ok := tb.Rows[0].Get("BGRHallGroup")
	assert.False(t, ok)
}

func TestParseCriteria(t *testing.T) {
	asked := map[string]bool{}
	weights := func(key string, def float64) float64 {
		asked[key] = true
		if key == "Gender" {
			return 2
		}
		return def
	}
	parsed, err := ParseCriteria("Gender| @Age |^Major|#Room|%Ethnicity|!Campus|?Lang,Language|TeamSize", weights)
	require.NoError(t, err)

	require.Len(t, parsed.Criteria, 6)
	kinds := []criteria.Kind{criteria.Categorical, criteria.Numeric, criteria.Reversed, criteria.Proximity, criteria.Proportional}
	for i, kind := range kinds {
		f, ok := parsed.Criteria[i].(*criteria.Feature)
		require.True(t, ok)
		assert.Equal(t, kind, f.Kind, f.Key())
	}
	assert.Equal(t, 2.0, parsed.Criteria[0].Weight())
	assert.IsType(t, &criteria.TeamSize{}, parsed.Criteria[5])
	assert.True(t, asked["TeamSize"])

	require.Len(t, parsed.Same, 2)
	assert.Equal(t, []string{"Lang", "Language"}, parsed.Same[1].Chain)
	assert.True(t, parsed.Weak["Lang"])
	require.Len(t, parsed.Strict(), 1)
	assert.Equal(t, "Campus", parsed.Strict()[0].Key())
}

func TestParseCriteriaRejectsEmptyChain(t *testing.T) {
	_, err := ParseCriteria("Gender|@ , ", nil)
	assert.True(t, apperrors.IsValidation(err))
}

func TestPlainTeamCount(t *testing.T) {
	var doc strings.Builder
	doc.WriteString("PUID,Gender\n")
	for i := 0; i < 11; i++ {
		doc.WriteString(strings.Repeat("x", i+1) + ",F\n")
	}
	cfg := teamsConfig()
	cfg.Criteria = "Gender"

	build, err := NewBuilder(cfg, nil, logger.Discard()).Build(table(t, doc.String()), nil)
	require.NoError(t, err)
	assert.Len(t, build.Model.Teams, 3)
	assert.Equal(t, "Team 1", build.Model.Teams[0].Name)
	assert.False(t, build.Model.Teams[0].Restricted())
	require.Len(t, build.Features, 1)

	cfg.ExtraTeams = 1
	build, err = NewBuilder(cfg, nil, logger.Discard()).Build(table(t, doc.String()), nil)
	require.NoError(t, err)
	assert.Len(t, build.Model.Teams, 4)
}

func TestPlainSplitsBySameFeature(t *testing.T) {
	cfg := teamsConfig()
	cfg.Size = 3
	cfg.Criteria = "!Campus|Gender"
	tb := table(t, "PUID,Campus,Gender\n"+
		"a1,A,F\na2,A,M\na3,A,F\na4,A,M\na5,A,F\na6,A,M\n"+
		"b1,B,F\nb2,B,M\nb3,B,F\n"+
		"c1,,F\n")

	build, err := NewBuilder(cfg, nil, logger.Discard()).Plain(tb)
	require.NoError(t, err)
	m := build.Model
	// "-" sorts before A and B
	require.Len(t, m.Teams, 4)

	c1, _ := m.Person("c1")
	a1, _ := m.Person("a1")
	b1, _ := m.Person("b1")
	assert.True(t, m.Teams[0].Admits(c1))
	assert.False(t, m.Teams[0].Admits(a1))
	assert.True(t, m.Teams[1].Admits(a1))
	assert.True(t, m.Teams[2].Admits(a1))
	assert.False(t, m.Teams[2].Admits(b1))
	assert.True(t, m.Teams[3].Admits(b1))
	assert.Contains(t, constraintNames(m), "Same Campus")
}

func TestPlainAdmitsLeadersAcrossWeakSplits(t *testing.T) {
	cfg := teamsConfig()
	cfg.Size = 2
	cfg.Criteria = "!Campus|?Lang"
	cfg.LeadAttribute = "Role"
	cfg.LeadValue = "Lead"
	tb := table(t, "PUID,Campus,Lang,Role\n"+
		"a1,A,en,\na2,A,en,\na3,A,fr,\na4,A,fr,\n"+
		"L,A,en,Lead\n"+
		"b1,B,fr,\n")

	build, err := NewBuilder(cfg, nil, logger.Discard()).Plain(tb)
	require.NoError(t, err)
	m := build.Model
	require.Len(t, m.Teams, 3)

	lead, _ := m.Person("L")
	assert.True(t, lead.Leader)
	assert.Equal(t, 0, lead.Weight)
	assert.True(t, m.Teams[0].Admits(lead), "own split")
	assert.True(t, m.Teams[1].Admits(lead), "same campus, other language")
	assert.False(t, m.Teams[2].Admits(lead), "other campus")
	assert.NotContains(t, constraintNames(m), "Same Lang")
}

func TestSameAsLinksGroups(t *testing.T) {
	cfg := teamsConfig()
	cfg.Criteria = "Gender"
	cfg.LeadAttribute = "Role"
	cfg.LeadValue = "Lead"
	cfg.LeadersApart = true
	tb := table(t, "PUID,Gender,sameAsId,Role\n"+
		"a,F,b,\nb,M,,\nc,F,b,\nd,M,e,Lead\ne,F,d,Lead\nf,M,missing,\n")

	build, err := NewBuilder(cfg, nil, logger.Discard()).Plain(tb)
	require.NoError(t, err)

	var linked []*constraints.SameTeam
	var apart []*constraints.DifferentTeam
	for _, c := range build.Model.Constraints() {
		switch c := c.(type) {
		case *constraints.SameTeam:
			linked = append(linked, c)
		case *constraints.DifferentTeam:
			apart = append(apart, c)
		}
	}
	require.Len(t, linked, 2)
	assert.Equal(t, "Same Team 1", linked[0].Name())
	assert.Len(t, linked[0].Persons(), 3)
	assert.Len(t, linked[1].Persons(), 2)
	require.Len(t, apart, 1)
	assert.Equal(t, "Leaders", apart[0].Name())
}

const leadsDoc = "PUID,Gender,TLi,Residence Hall\n" +
	"L1,F,True,Owen Hall\n" +
	"L2,M,,Shreve Hall\n"

func TestLeadsBuild(t *testing.T) {
	people := table(t, "PUID,Gender,BGRi,Residence Hall\n"+
		"1,F,Yes,Owen Hall\n2,M,Yes,Owen Hall\n3,F,,Owen Hall\n4,M,,Earhart Hall\n"+
		"5,F,,Earhart Hall\n6,M,,Owen Hall\n7,F,,Shreve Hall\n")
	cfg := teamsConfig()
	cfg.Variant = "leads"

	build, err := NewBuilder(cfg, nil, logger.Discard()).Build(people, table(t, leadsDoc))
	require.NoError(t, err)

	assert.Equal(t, 5, build.TeamSize)
	assert.Equal(t, 3, build.InternationalSize)
	m := build.Model
	require.Len(t, m.Teams, 2)
	assert.Equal(t, "L1", m.Teams[0].ID)
	assert.True(t, m.Teams[0].InternationalLead())
	assert.Equal(t, "OOC", m.Teams[0].Lead.Attributes["BGRHallGroup"])

	names := constraintNames(m)
	for _, want := range []string{"InternationalTeamLead", "BGRHallGroup", "TeamSize", "InternationalTeamSize"} {
		assert.Contains(t, names, want)
	}
	assert.Len(t, build.Features, 4)

	var criteriaNames []string
	for _, c := range m.Criteria() {
		criteriaNames = append(criteriaNames, c.Name())
	}
	assert.Contains(t, criteriaNames, "Large Team")
	assert.Contains(t, criteriaNames, "International Large Team")

	assert.Contains(t, build.Summary, "Team Size: 5 (7 persons, 2 teams)")
	assert.Contains(t, build.Summary, "- 4 persons in OOC (1 teams, 4.00 average)")
	assert.Contains(t, build.Summary, "- 3 persons in Shrevehart (1 teams, 3.00 average)")
	assert.Empty(t, build.Shortfalls)
}

func TestLeadsShortfall(t *testing.T) {
	people := table(t, "PUID,Gender,Residence Hall\n"+
		"1,F,Owen Hall\n2,M,Owen Hall\n3,F,Owen Hall\n4,M,Owen Hall\n")
	cfg := teamsConfig()
	cfg.Variant = "leads"

	build, err := NewBuilder(cfg, nil, logger.Discard()).Build(people, table(t, leadsDoc))
	require.NoError(t, err)

	assert.Equal(t, 3, build.TeamSize)
	require.Len(t, build.Shortfalls, 1)
	q := build.Shortfalls[0]
	assert.Equal(t, "OOC", q.Group)
	assert.Equal(t, 1, q.Shortfall())
	assert.Equal(t, 1, build.InternationalSize)
}

func TestLeadsNeedsLeadsTable(t *testing.T) {
	cfg := teamsConfig()
	cfg.Variant = "leads"
	_, err := NewBuilder(cfg, nil, logger.Discard()).Build(table(t, "PUID\n1\n"), nil)
	assert.True(t, apperrors.IsValidation(err))
}

func TestTableFromRows(t *testing.T) {
	tb := TableFromRows([]map[string]string{
		{"Gender": "F", "PUID": "1", " Major ": "CS"},
		{"PUID": "2", "Age": "20", "Gender": ""},
	}, "PUID")

	assert.Equal(t, []string{"PUID", "Age", "Gender", "Major"}, tb.Header)
	require.Len(t, tb.Rows, 2)
	assert.Equal(t, "CS", tb.Rows[0]["Major"])
	_, ok := tb.Rows[1].Get("Gender")
	assert.False(t, ok)
}
