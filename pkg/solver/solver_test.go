package solver

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/team-builder-go/pkg/config"
	"github.com/arnavshah/team-builder-go/pkg/constraints"
	"github.com/arnavshah/team-builder-go/pkg/criteria"
	apperrors "github.com/arnavshah/team-builder-go/pkg/errors"
	"github.com/arnavshah/team-builder-go/pkg/logger"
	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

func buildModel(t *testing.T, n, teams, capacity int) *scheduler.Model {
	t.Helper()
	people := make([]*models.Person, n)
	for i := range people {
		p := models.NewPerson(fmt.Sprintf("p%02d", i), nil)
		p.Attributes.Set("Gender", []string{"F", "M"}[i%2])
		p.Attributes.Set("Group", []string{"A", "B", "C"}[i%3])
		people[i] = p
	}
	ts := make([]*models.Team, teams)
	for i := range ts {
		ts[i] = &models.Team{ID: fmt.Sprint(i), Name: fmt.Sprintf("Team %d", i+1), Capacity: capacity}
	}
	m, err := scheduler.NewModel(people, ts)
	require.NoError(t, err)
	m.AddConstraint(constraints.NewCapacity(0))
	m.AddCriterion(criteria.NewFeature(criteria.Categorical, 1, "Gender"))
	m.AddCriterion(criteria.NewFeature(criteria.Reversed, 1, "Group"))
	require.NoError(t, m.Init())
	return m
}

func options() Options {
	o := DefaultOptions()
	o.Seed = 11
	o.MaxIterations = 3000
	o.MaxIdle = 0
	o.Timeout = 10 * time.Second
	o.VerifyEvery = 100
	return o
}

func TestSolveAssignsEveryone(t *testing.T) {
	m := buildModel(t, 12, 4, 3)
	s := New(m, options(), WithLogger(logger.Discard()))

	sol, err := s.Solve(context.Background())
	require.NoError(t, err)
	assert.True(t, sol.Complete())
	assert.Empty(t, sol.Unassignable)
	assert.NotEmpty(t, sol.RunID)

	a := sol.Assignment(m)
	require.NoError(t, a.Verify())
	assert.Equal(t, 12, a.NrAssigned())
	assert.InDelta(t, sol.Total, m.TotalValue(a), 1e-9)
	for _, team := range m.Teams {
		assert.LessOrEqual(t, a.Context(team).Occupancy(), 3)
	}
}

func TestSolveDoesNotWorsenConstruction(t *testing.T) {
	m := buildModel(t, 12, 4, 3)
	o := options()
	o.MaxIterations = 0
	o.MaxIdle = 1
	zero, err := New(m, o, WithLogger(logger.Discard())).Solve(context.Background())
	require.NoError(t, err)

	searched, err := New(m, options(), WithLogger(logger.Discard())).Solve(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, searched.Total, zero.Total)
	// twelve persons over four teams of three cannot avoid every gender pair
	assert.Greater(t, searched.Total, 0.0)
}

func TestSolveParallelWorkers(t *testing.T) {
	m := buildModel(t, 18, 6, 3)
	o := options()
	o.Workers = 4
	sol, err := New(m, o, WithLogger(logger.Discard())).Solve(context.Background())
	require.NoError(t, err)
	assert.True(t, sol.Complete())
	assert.GreaterOrEqual(t, sol.Worker, 0)
	assert.Less(t, sol.Worker, 4)
	require.NoError(t, sol.Assignment(m).Verify())
}

func TestSolveReportsUnassignable(t *testing.T) {
	m := buildModel(t, 10, 3, 3)
	var buf bytes.Buffer
	sol, err := New(m, options(), WithLogger(logger.NewWithOutput(&buf, "debug"))).Solve(context.Background())
	require.NoError(t, err)
	assert.False(t, sol.Complete())
	assert.Equal(t, 1, sol.Unassigned)
	require.Len(t, sol.Unassignable, 1)
	assert.NotEmpty(t, sol.Unassignable[0].Reasons)
	assert.Contains(t, buf.String(), "search finished")
}

func TestSolveHonoursCancellation(t *testing.T) {
	m := buildModel(t, 12, 4, 3)
	o := options()
	o.MaxIterations = 0
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol, err := New(m, o, WithLogger(logger.Discard())).Solve(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sol.Iterations)
}

type brokenContext struct{ calls int }

func (b *brokenContext) Placed(models.Placement)   { b.calls++ }
func (b *brokenContext) Unplaced(models.Placement) { b.calls++ }

func (b *brokenContext) Check(fresh scheduler.ConstraintContext) []string {
	if f := fresh.(*brokenContext); f.calls != b.calls {
		return []string{fmt.Sprintf("notified %d times, rebuilt from %d", b.calls, f.calls)}
	}
	return nil
}

// broken counts every notification while a rebuilt context only counts the
// current placements, so the first move makes them disagree
type broken struct{}

func (broken) Name() string { return "broken" }

func (broken) InConflict(*scheduler.Assignment, models.Placement) bool { return false }

func (broken) ComputeConflicts(*scheduler.Assignment, models.Placement, *scheduler.Conflicts) {}

func (broken) IsConsistent(models.Placement, models.Placement) bool { return true }

func (broken) NewContext(a *scheduler.Assignment) scheduler.ConstraintContext {
	return &brokenContext{calls: 1 + a.NrAssigned()}
}

func TestSolveAbortsOnDesync(t *testing.T) {
	m := buildModel(t, 12, 4, 3)
	m.AddConstraint(broken{})
	o := options()
	o.VerifyEvery = 1
	sol, err := New(m, o, WithLogger(logger.Discard())).Solve(context.Background())
	require.Error(t, err)
	assert.Nil(t, sol)
	assert.True(t, apperrors.IsDesync(err), "got %v", err)
}

func TestOptionsFromConfigSeedAttribute(t *testing.T) {
	cfg, err := config.Unmarshal(config.New(""))
	require.NoError(t, err)

	assert.Empty(t, OptionsFromConfig(cfg).SeedAttribute, "plain teams have no lead to seed from")

	cfg.Teams.Variant = "leads"
	assert.Equal(t, "BGRHallGroup", OptionsFromConfig(cfg).SeedAttribute)

	cfg.Teams.SeedAttribute = "Campus"
	assert.Equal(t, "Campus", OptionsFromConfig(cfg).SeedAttribute)
}
