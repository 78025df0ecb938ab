package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is matched by every *CycleError.
var ErrCycle = errors.New("dependency cycle detected")

// CycleError reports that the edge set contains a directed cycle.
// Path, when present, starts and ends on the same task.
type CycleError struct {
	Path []TaskID
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return ErrCycle.Error()
	}
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("%s: %s", ErrCycle, strings.Join(parts, " -> "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// ValidateAcyclic fails with a *CycleError if vertices and edges contain a
// directed cycle. Callers check a proposed edge by appending it to edges
// before the call and persisting it only on success.
func ValidateAcyclic(vertices []Vertex, edges []Edge) error {
	if cycle := BuildFromVertices(vertices, edges).DetectCycle(); cycle != nil {
		return &CycleError{Path: cycle}
	}
	return nil
}

// FindCycle returns one offending cycle, or nil if the graph is acyclic.
func FindCycle(vertices []Vertex, edges []Edge) []TaskID {
	return BuildFromVertices(vertices, edges).DetectCycle()
}

type frame struct {
	id   TaskID
	next int // index of the next child to visit
}

// DetectCycle returns a cycle path if one exists, or nil if the model is acyclic.
// DFS tracks visited and recursion-stack membership; roots that have outgoing
// edges are explored first, then every remaining id so that cycles with no
// entry point are still found.
func (m *Model) DetectCycle() []TaskID {
	visited := make(map[TaskID]bool, len(m.Order))
	inStack := make(map[TaskID]bool)

	for _, id := range m.Order {
		if m.Indegree[id] == 0 && len(m.Children[id]) > 0 && !visited[id] {
			if cycle := m.dfs(id, visited, inStack); cycle != nil {
				return cycle
			}
		}
	}

	for _, id := range m.Order {
		if !visited[id] {
			if cycle := m.dfs(id, visited, inStack); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

func (m *Model) dfs(start TaskID, visited, inStack map[TaskID]bool) []TaskID {
	stack := []frame{{id: start}}
	visited[start] = true
	inStack[start] = true

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		children := m.Children[top.id]

		if top.next == len(children) {
			inStack[top.id] = false
			stack = stack[:len(stack)-1]
			continue
		}

		next := children[top.next]
		top.next++

		if !visited[next] {
			visited[next] = true
			inStack[next] = true
			stack = append(stack, frame{id: next})
			continue
		}
		if inStack[next] {
			return cyclePath(stack, next)
		}
	}
	return nil
}

// cyclePath extracts next -> ... -> top -> next from the DFS stack.
func cyclePath(stack []frame, next TaskID) []TaskID {
	start := 0
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].id == next {
			start = i
			break
		}
	}
	path := make([]TaskID, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, f.id)
	}
	return append(path, next)
}
