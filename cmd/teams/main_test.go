package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const peopleCSV = "PUID,Gender\n1,F\n2,M\n3,F\n4,M\n5,F\n6,M\n"

func writePeople(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte(peopleCSV), 0o644))
	return path
}

func TestBuildCommand(t *testing.T) {
	people := writePeople(t)
	assignments := filepath.Join(filepath.Dir(people), "teams.csv")

	var out bytes.Buffer
	cmd := newRootCommand(&out)
	cmd.SetArgs([]string{
		"--people", people,
		"--assignments", assignments,
		"--criteria", "Gender",
		"--seed", "3",
		"--max-iterations", "500",
		"--log-level", "error",
	})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "Team Size: 5 (6 persons, 2 teams)")

	data, err := os.ReadFile(assignments)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "Team,PUID,Gender,BGRHallGroup", lines[0])
	assert.Len(t, lines, 7)
}

func TestValidateCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand(&out)
	cmd.SetArgs([]string{"validate", "--people", writePeople(t), "--size", "3", "--log-level", "error"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Equal(t, "Team Size: 3 (6 persons, 2 teams)\n", out.String())
}

func TestBuildCommandNeedsPeople(t *testing.T) {
	cmd := newRootCommand(&bytes.Buffer{})
	cmd.SetArgs([]string{"--log-level", "error"})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no people file")
}
