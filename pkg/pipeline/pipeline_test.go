package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/team-builder-go/pkg/config"
	"github.com/arnavshah/team-builder-go/pkg/loader"
	"github.com/arnavshah/team-builder-go/pkg/logger"
)

func table(t *testing.T, doc string) *loader.Table {
	t.Helper()
	tbl, err := loader.ReadTable(strings.NewReader(doc))
	require.NoError(t, err)
	return tbl
}

func leadsConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Unmarshal(config.New(""))
	require.NoError(t, err)
	cfg.Teams.Variant = "leads"
	cfg.Teams.Features = nil
	cfg.Solver.Seed = 5
	cfg.Solver.MaxIterations = 200
	cfg.Solver.MaxIdle = 0
	cfg.Solver.VerifyEvery = 10
	return cfg
}

func TestRunOpensSeededTeamsFirst(t *testing.T) {
	cfg := leadsConfig(t)
	cfg.Teams.GroupAttribute = ""
	cfg.Teams.SeedAttribute = "Campus"

	res, err := Run(context.Background(), cfg,
		table(t, "PUID\n1\n"),
		table(t, "PUID,Campus\nL1,\nL2,West\n"),
		logger.Discard(), nil)
	require.NoError(t, err)

	p, err := res.Build.Model.Person("1")
	require.NoError(t, err)
	team := res.Assignment.TeamOf(p)
	require.NotNil(t, team)
	assert.Equal(t, "L2", team.ID, "the lead without a campus does not open a team first")
}

func TestRunWithoutSeedTakesFirstTeam(t *testing.T) {
	cfg := leadsConfig(t)
	cfg.Teams.GroupAttribute = ""

	res, err := Run(context.Background(), cfg,
		table(t, "PUID\n1\n"),
		table(t, "PUID,Campus\nL1,\nL2,West\n"),
		logger.Discard(), nil)
	require.NoError(t, err)

	p, err := res.Build.Model.Person("1")
	require.NoError(t, err)
	assert.Equal(t, "L1", res.Assignment.TeamOf(p).ID)
}

func TestResponse(t *testing.T) {
	cfg := leadsConfig(t)
	res, err := Run(context.Background(), cfg,
		table(t, "PUID,BGRHallGroup\n1,North\n2,North\n3,South\n"),
		table(t, "PUID,BGRHallGroup\nL1,North\nL2,South\n"),
		logger.Discard(), nil)
	require.NoError(t, err)

	resp := res.Response()
	assert.Equal(t, "leads", resp.Variant)
	assert.Empty(t, resp.Unassigned)
	require.Len(t, resp.Teams, 2)
	members := 0
	for _, team := range resp.Teams {
		members += len(team.Members)
	}
	assert.Equal(t, 3, members)
	assert.NotEmpty(t, resp.RunID)
}
