package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishiganesh2002/soma-technical-assessment/internal/claude"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/todo"
)

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"3", "#7"})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7}, ids)

	for _, bad := range []string{"", "x", "0", "-2"} {
		_, err := parseID(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestFilterEdges(t *testing.T) {
	todos := []todo.Todo{{ID: 1}, {ID: 2}, {ID: 3}}
	deps := []todo.Dependency{{Parent: 1, Child: 2}}
	ids := map[int]bool{1: true, 2: true, 3: true}

	edges := []claude.DepEdge{
		{ChildID: 3, ParentID: 2},  // ok
		{ChildID: 1, ParentID: 3},  // closes 1 -> 2 -> 3 -> 1
		{ChildID: 3, ParentID: 3},  // self
		{ChildID: 9, ParentID: 1},  // unknown child
		{ChildID: 3, ParentID: 42}, // unknown parent
		{ChildID: 3, ParentID: 1},  // ok
	}

	accepted := filterEdges(edges, ids, todos, deps)
	require.Len(t, accepted, 2)
	assert.Equal(t, 2, accepted[0].ParentID)
	assert.Equal(t, 1, accepted[1].ParentID)
}
