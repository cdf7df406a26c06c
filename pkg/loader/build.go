package loader

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/arnavshah/team-builder-go/pkg/config"
	"github.com/arnavshah/team-builder-go/pkg/constraints"
	"github.com/arnavshah/team-builder-go/pkg/criteria"
	apperrors "github.com/arnavshah/team-builder-go/pkg/errors"
	"github.com/arnavshah/team-builder-go/pkg/logger"
	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

// Build is a model ready for the solver together with what the report needs
type Build struct {
	Model   *scheduler.Model
	Variant string

	TeamSize          int
	InternationalSize int

	PersonFields   []string
	LeadFields     []string
	IDAttribute    string
	GroupAttribute string
	// Features lists the feature criteria in configuration order, the report prints their values
	Features []*criteria.Feature

	Summary    []string
	Shortfalls []QuotaShortfall
}

// QuotaShortfall is a group with more persons than its teams can take
type QuotaShortfall struct {
	Group         string
	International bool
	People        int
	Teams         int
	Size          int
}

// Shortfall is the number of persons that cannot be placed within the group
func (q QuotaShortfall) Shortfall() int { return q.People - q.Teams*q.Size }

func (q QuotaShortfall) String() string {
	kind := ""
	if q.International {
		kind = "international "
	}
	return fmt.Sprintf("%d %spersons in %s exceed %d teams of %d by %d", q.People, kind, q.Group, q.Teams, q.Size, q.Shortfall())
}

// Builder creates models from tabular input
type Builder struct {
	cfg     config.Teams
	weights Weights
	reader  *Reader
	log     *logger.Logger
}

func NewBuilder(cfg config.Teams, weights Weights, log *logger.Logger) *Builder {
	if weights == nil {
		weights = DefaultWeights
	}
	return &Builder{cfg: cfg, weights: weights, reader: NewReader(cfg, log), log: log}
}

// Build dispatches on the configured variant; leads may be nil for the plain variant
func (b *Builder) Build(people, leads *Table) (*Build, error) {
	if b.cfg.Variant == "leads" {
		if leads == nil {
			return nil, apperrors.NewValidationError("leads", "the leads variant needs a leads file")
		}
		return b.Leads(people, leads)
	}
	return b.Plain(people)
}

// Plain builds teams of the configured size. Without same-features every
// person may join every team; otherwise the persons are split recursively by
// the values of each same-feature and every split gets its own teams.
func (b *Builder) Plain(table *Table) (*Build, error) {
	people := b.reader.Persons(table, "p")
	if len(people) == 0 {
		return nil, apperrors.ErrNoPeople
	}
	for _, p := range people {
		if b.cfg.LeadAttribute == "" {
			break
		}
		if v, ok := p.Attributes.Get(b.cfg.LeadAttribute); ok && v == b.cfg.LeadValue {
			p.Leader = true
			p.Weight = 0
		}
	}

	parsed, err := ParseCriteria(b.cfg.Criteria, b.weights)
	if err != nil {
		return nil, err
	}

	size := b.cfg.Size
	var teams []*models.Team
	if len(parsed.Same) == 0 {
		n := int(math.Ceil(float64(totalWeight(people))/float64(size))) + b.cfg.ExtraTeams
		for i := 1; i <= n; i++ {
			teams = append(teams, &models.Team{ID: fmt.Sprint(i), Name: fmt.Sprintf("Team %d", i), Capacity: size})
		}
		b.log.WithFields(map[string]interface{}{"people": len(people), "teams": n, "size": size}).Info("teams created")
	} else {
		seeds := make(map[*models.Team]*models.Person)
		teams = b.split(0, parsed.Same, people, nil, seeds, nil)
		if len(parsed.Weak) > 0 {
			b.admitLeaders(people, teams, seeds, parsed)
		}
	}
	if len(teams) == 0 {
		return nil, apperrors.ErrNoTeams
	}

	m, err := scheduler.NewModel(people, teams)
	if err != nil {
		return nil, err
	}
	m.AddConstraint(constraints.NewCapacity(0))
	for _, sf := range parsed.Strict() {
		b.log.WithField("feature", sf.Key()).Info("using same feature constraint")
		m.AddConstraint(sf)
	}
	b.link(m, people)
	if b.cfg.LeadersApart {
		var leaders []*models.Person
		for _, p := range people {
			if p.Leader {
				leaders = append(leaders, p)
			}
		}
		if len(leaders) > 1 {
			apart := constraints.NewDifferentTeam(leaders...)
			apart.Label = "Leaders"
			m.AddConstraint(apart)
		}
	}

	build := &Build{
		Model:          m,
		Variant:        "plain",
		TeamSize:       size,
		PersonFields:   table.Header,
		IDAttribute:    b.cfg.IDAttribute,
		GroupAttribute: b.cfg.GroupAttribute,
	}
	for _, c := range parsed.Criteria {
		b.log.WithFields(map[string]interface{}{"criterion": c.Name(), "weight": c.Weight()}).Info("using criterion")
		m.AddCriterion(c)
		if f, ok := c.(*criteria.Feature); ok {
			build.Features = append(build.Features, f)
		}
	}
	if err := m.Init(); err != nil {
		return nil, err
	}
	build.Summary = append(build.Summary, fmt.Sprintf("Team Size: %d (%d persons, %d teams)", size, len(people), len(teams)))
	return build, nil
}

func totalWeight(people []*models.Person) int {
	total := 0
	for _, p := range people {
		total += p.Weight
	}
	return total
}

// split creates the teams of one branch; path holds the values chosen so far
func (b *Builder) split(idx int, same []*constraints.SameFeature, people []*models.Person, teams []*models.Team, seeds map[*models.Team]*models.Person, path []string) []*models.Team {
	if idx == len(same) {
		n := int(math.Ceil(float64(totalWeight(people))/float64(b.cfg.Size))) + b.cfg.ExtraTeams
		b.log.WithFields(map[string]interface{}{
			"split":  strings.Join(path, ","),
			"people": len(people),
			"leads":  len(people) - totalWeight(people),
			"teams":  n,
		}).Info("teams created")
		for i := 0; i < n; i++ {
			t := &models.Team{ID: fmt.Sprint(len(teams) + 1), Name: fmt.Sprintf("Team %d", len(teams)+1), Capacity: b.cfg.Size}
			t.Admit(people...)
			if len(people) > 0 {
				seeds[t] = people[0]
			}
			teams = append(teams, t)
		}
		return teams
	}
	byValue := make(map[string][]*models.Person)
	for _, p := range people {
		v, ok := same[idx].Property(p)
		if !ok || v == "" {
			v = "-"
		}
		byValue[v] = append(byValue[v], p)
	}
	values := make([]string, 0, len(byValue))
	for v := range byValue {
		values = append(values, v)
	}
	sort.Strings(values)
	for _, v := range values {
		teams = b.split(idx+1, same, byValue[v], teams, seeds, append(path[:len(path):len(path)], v))
	}
	return teams
}

// admitLeaders lets a leader (weight 0) also join the teams that match it on
// every strict same-feature but differ on every weak one
func (b *Builder) admitLeaders(people []*models.Person, teams []*models.Team, seeds map[*models.Team]*models.Person, parsed *Criteria) {
	for _, p := range people {
		if p.Weight != 0 {
			continue
		}
		for _, t := range teams {
			x, ok := seeds[t]
			if !ok {
				continue
			}
			match := true
			for _, sf := range parsed.Same {
				same := sf.Same(p, x)
				if parsed.Weak[sf.Key()] == same {
					match = false
					break
				}
			}
			if match {
				t.Admit(p)
			}
		}
	}
}

// link puts persons naming each other through the same-as attribute into
// one SameTeam constraint per connected group
func (b *Builder) link(m *scheduler.Model, people []*models.Person) {
	if b.cfg.SameAsAttribute == "" {
		return
	}
	groups := make(map[*models.Person]*constraints.SameTeam)
	var order []*constraints.SameTeam
	for _, p := range people {
		otherID, ok := p.Attributes.Get(b.cfg.SameAsAttribute)
		if !ok || otherID == p.ID {
			continue
		}
		other, err := m.Person(otherID)
		if err != nil {
			b.log.WithFields(map[string]interface{}{"person": p.ID, "same_as": otherID}).Warn("same-as person not found")
			continue
		}
		g1, g2 := groups[p], groups[other]
		switch {
		case g1 == nil && g2 == nil:
			g := constraints.NewSameTeam(p, other)
			groups[p], groups[other] = g, g
			order = append(order, g)
		case g1 == nil:
			g2.Add(p)
			groups[p] = g2
		case g2 == nil:
			g1.Add(other)
			groups[other] = g1
		case g1 != g2:
			for _, q := range g2.Persons() {
				g1.Add(q)
				groups[q] = g1
			}
			for i, g := range order {
				if g == g2 {
					order = append(order[:i], order[i+1:]...)
					break
				}
			}
		}
	}
	for i, g := range order {
		g.Label = fmt.Sprintf("Same Team %d", i+1)
		m.AddConstraint(g)
	}
}

// Leads builds one team per lead. The team size is one above the average, the
// international quota is the average international size plus the configured
// slack. Leads are compared with their members on the group attribute by a
// RequiredFeature of the configured mode.
func (b *Builder) Leads(peopleTable, leadsTable *Table) (*Build, error) {
	people := b.reader.Persons(peopleTable, "p")
	if len(people) == 0 {
		return nil, apperrors.ErrNoPeople
	}
	leads := b.reader.Persons(leadsTable, "lead")
	if len(leads) == 0 {
		return nil, apperrors.ErrNoTeams
	}
	teams := make([]*models.Team, len(leads))
	intlTeams := 0
	for i, lead := range leads {
		teams[i] = &models.Team{ID: lead.ID, Name: fmt.Sprintf("Team %d", i+1), Lead: lead}
		if lead.International {
			intlTeams++
		}
	}
	intl := 0
	for _, p := range people {
		if p.International {
			intl++
		}
	}

	avg := float64(len(people)) / float64(len(teams))
	size := 1 + int(math.Ceil(avg))
	intlSize := 0
	if intlTeams > 0 {
		intlSize = b.cfg.QuotaSlack + int(math.Ceil(float64(intl)/float64(intlTeams)))
	}
	for _, t := range teams {
		t.Capacity = size
	}

	m, err := scheduler.NewModel(people, teams)
	if err != nil {
		return nil, err
	}
	build := &Build{
		Model:             m,
		Variant:           "leads",
		TeamSize:          size,
		InternationalSize: intlSize,
		PersonFields:      peopleTable.Header,
		LeadFields:        leadsTable.Header,
		IDAttribute:       b.cfg.IDAttribute,
		GroupAttribute:    b.cfg.GroupAttribute,
	}
	build.Summary = append(build.Summary, fmt.Sprintf("Team Size: %d (%d persons, %d teams)", size, len(people), len(teams)))
	build.report(b.byGroup(people, false), b.teamsByGroup(teams, false), size, false)
	if intlTeams > 0 {
		build.Summary = append(build.Summary, fmt.Sprintf("International Team Size: %d (%d persons, %d teams)", intlSize, intl, intlTeams))
		build.report(b.byGroup(people, true), b.teamsByGroup(teams, true), intlSize, true)
	}
	for _, q := range build.Shortfalls {
		b.log.WithFields(map[string]interface{}{
			"group":         q.Group,
			"international": q.International,
			"shortfall":     q.Shortfall(),
		}).Warn(q.String())
	}

	mode, err := constraints.ParseMode(b.cfg.GroupMode)
	if err != nil {
		return nil, apperrors.NewConfigurationError("teams.group_mode: %v", err)
	}
	m.AddConstraint(constraints.InternationalLead{})
	if b.cfg.GroupAttribute != "" {
		rf := constraints.NewRequiredFeature(mode, b.cfg.GroupAttribute)
		rf.DeviationWeight = b.weights(b.cfg.GroupAttribute, 1.0)
		m.AddConstraint(rf)
	}
	for _, attr := range b.cfg.Required {
		m.AddConstraint(constraints.NewRequiredFeature(constraints.Hard, splitChain(attr)...))
	}
	m.AddConstraint(constraints.NewCapacity(size))
	if intlTeams > 0 && intlSize < size {
		m.AddConstraint(constraints.NewInternationalQuota(intlSize))
	}

	for _, f := range b.cfg.Features {
		chain := splitChain(f)
		if len(chain) == 0 {
			continue
		}
		feature := criteria.NewFeature(criteria.Categorical, b.weights(chain[0], 1.0), chain...)
		m.AddCriterion(feature)
		build.Features = append(build.Features, feature)
	}
	if b.cfg.Criteria != "" {
		parsed, err := ParseCriteria(b.cfg.Criteria, b.weights)
		if err != nil {
			return nil, err
		}
		for _, c := range parsed.Criteria {
			m.AddCriterion(c)
			if f, ok := c.(*criteria.Feature); ok {
				build.Features = append(build.Features, f)
			}
		}
		for _, sf := range parsed.Strict() {
			m.AddConstraint(sf)
		}
	}
	large := criteria.NewLargeTeam(false, int(math.Ceil(avg)), 0)
	small := criteria.NewSmallTeam(false, int(math.Floor(avg)), 0)
	large.W, small.W = b.weights(large.WeightKey(), 1.0), b.weights(small.WeightKey(), 1.0)
	m.AddCriterion(large)
	m.AddCriterion(small)
	if intlTeams > 0 {
		intlAvg := float64(intl) / float64(intlTeams)
		large := criteria.NewLargeTeam(true, int(math.Ceil(intlAvg)), 0)
		small := criteria.NewSmallTeam(true, int(math.Floor(intlAvg)), 0)
		large.W, small.W = b.weights(large.WeightKey(), 1.0), b.weights(small.WeightKey(), 1.0)
		m.AddCriterion(large)
		m.AddCriterion(small)
	}
	b.link(m, people)

	if err := m.Init(); err != nil {
		return nil, err
	}
	b.log.WithFields(map[string]interface{}{
		"people":             len(people),
		"teams":              len(teams),
		"size":               size,
		"international_size": intlSize,
	}).Info("leads model built")
	return build, nil
}

func (b *Builder) group(p *models.Person) string {
	v, _ := p.Attributes.Get(b.cfg.GroupAttribute)
	return v
}

func (b *Builder) byGroup(people []*models.Person, international bool) map[string]int {
	counts := make(map[string]int)
	for _, p := range people {
		if international && !p.International {
			continue
		}
		counts[b.group(p)]++
	}
	return counts
}

func (b *Builder) teamsByGroup(teams []*models.Team, international bool) map[string]int {
	counts := make(map[string]int)
	for _, t := range teams {
		if international && !t.InternationalLead() {
			continue
		}
		counts[b.group(t.Lead)]++
	}
	return counts
}

// report adds a feasibility line per group of teams, recording a shortfall
// where the persons of a group outnumber what its teams can take
func (build *Build) report(people, teams map[string]int, size int, international bool) {
	groups := make([]string, 0, len(teams))
	for g := range teams {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	kind := "persons"
	if international {
		kind = "international persons"
	}
	for _, g := range groups {
		n, t := people[g], teams[g]
		label := g
		if label == "" {
			label = "-"
		}
		build.Summary = append(build.Summary, fmt.Sprintf("- %d %s in %s (%d teams, %.2f average)", n, kind, label, t, float64(n)/float64(t)))
		if n > size*t {
			build.Shortfalls = append(build.Shortfalls, QuotaShortfall{Group: label, International: international, People: n, Teams: t, Size: size})
		}
	}
}
