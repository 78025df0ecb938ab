// Package importer reads JSON exported by the todo web application.
//
// The export is either the array returned by GET /api/todos or an object with
// "todos" and optional "dependencies" arrays. Field names are camelCase;
// dependency edges may appear inline on each todo under "dependencies"
// (edges into the todo) and "dependents" (edges out of it).
package importer

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rishiganesh2002/soma-technical-assessment/internal/todo"
)

// Snapshot is the parsed export.
type Snapshot struct {
	Todos        []todo.Todo
	Dependencies []todo.Dependency
}

// Parse extracts todos and deduplicated dependency edges from data.
func Parse(data []byte) (*Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parse export: invalid JSON")
	}

	root := gjson.ParseBytes(data)
	todos := root
	if root.IsObject() {
		todos = root.Get("todos")
	}
	if !todos.IsArray() {
		return nil, fmt.Errorf("parse export: expected an array of todos")
	}

	snap := &Snapshot{}
	seen := make(map[[2]int]bool)
	addEdge := func(r gjson.Result) {
		parent := int(r.Get("parentTodo").Int())
		child := int(r.Get("childTodo").Int())
		if parent == 0 || child == 0 {
			return
		}
		key := [2]int{parent, child}
		if seen[key] {
			return
		}
		seen[key] = true
		snap.Dependencies = append(snap.Dependencies, todo.Dependency{
			ID:        int(r.Get("id").Int()),
			Parent:    parent,
			Child:     child,
			CreatedAt: parseTime(r.Get("createdAt")),
		})
	}

	var parseErr error
	todos.ForEach(func(_, t gjson.Result) bool {
		id := int(t.Get("id").Int())
		if id <= 0 {
			parseErr = fmt.Errorf("parse export: todo without a positive id: %s", t.Raw)
			return false
		}

		status := todo.Status(t.Get("status").String())
		if !status.Valid() {
			status = todo.StatusPending
		}

		item := todo.Todo{
			ID:            id,
			Title:         t.Get("title").String(),
			Status:        status,
			DueDate:       parseTime(t.Get("dueDate")),
			EstimatedDays: int(t.Get("estimatedCompletionDays").Int()),
			CreatedAt:     parseTime(t.Get("createdAt")),
		}
		if start := parseTime(t.Get("earliestPossibleStartDate")); !start.IsZero() {
			item.EarliestStart = &start
		}
		snap.Todos = append(snap.Todos, item)

		t.Get("dependencies").ForEach(func(_, d gjson.Result) bool {
			addEdge(d)
			return true
		})
		t.Get("dependents").ForEach(func(_, d gjson.Result) bool {
			addEdge(d)
			return true
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	if root.IsObject() {
		root.Get("dependencies").ForEach(func(_, d gjson.Result) bool {
			addEdge(d)
			return true
		})
	}

	return snap, nil
}

func parseTime(r gjson.Result) time.Time {
	if r.Type != gjson.String {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, r.String())
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
