package cpm

import "github.com/rishiganesh2002/soma-technical-assessment/internal/graph"

// Analyze finds the longest duration-weighted path through the dependency
// graph and marks which tasks and edges lie on it.
//
// The graph is expected to be acyclic; callers run graph.ValidateAcyclic
// first. Given a cycle anyway, Analyze does not fail: when no task is free
// of predecessors it returns a result with nothing marked critical.
func Analyze(vertices []graph.Vertex, edges []graph.Edge) *Result {
	if len(vertices) == 0 {
		return &Result{
			CriticalPath: []graph.TaskID{},
			Nodes:        []NodeMark{},
			Edges:        []EdgeMark{},
		}
	}

	m := graph.BuildFromVertices(vertices, edges)
	durations := graph.Durations(vertices)

	// Start tasks: supplied vertices with no incoming edge at all.
	var starts []graph.TaskID
	for _, v := range vertices {
		if m.Indegree[v.ID] == 0 {
			starts = append(starts, v.ID)
		}
	}

	if len(starts) == 0 {
		return mark(vertices, edges, nil, 0)
	}

	a := &analyzer{
		model:     m,
		durations: durations,
		memo:      make(map[graph.TaskID]longest),
		onPath:    make(map[graph.TaskID]bool),
	}

	var path []graph.TaskID
	maxDuration := 0
	for _, id := range starts {
		best := a.longestFrom(id)
		if best.duration > maxDuration {
			maxDuration = best.duration
			path = a.pathFrom(id)
		}
	}

	// No path could be formed: fall back to the single longest task.
	if len(path) == 0 {
		var longestID graph.TaskID
		longestDur := 0
		for _, v := range vertices {
			if d := durations[v.ID]; d > longestDur {
				longestID, longestDur = v.ID, d
			}
		}
		path = []graph.TaskID{longestID}
		maxDuration = longestDur
	}

	return mark(vertices, edges, path, maxDuration)
}

// mark builds the result, flagging tasks on path and edges joining
// consecutive path members in order.
func mark(vertices []graph.Vertex, edges []graph.Edge, path []graph.TaskID, total int) *Result {
	onPath := make(map[graph.TaskID]bool, len(path))
	for _, id := range path {
		onPath[id] = true
	}
	consecutive := make(map[graph.Edge]bool, len(path))
	for i := 0; i+1 < len(path); i++ {
		consecutive[graph.Edge{From: path[i], To: path[i+1]}] = true
	}

	result := &Result{
		CriticalPath:  append([]graph.TaskID{}, path...),
		TotalDuration: total,
		Nodes:         make([]NodeMark, len(vertices)),
		Edges:         make([]EdgeMark, len(edges)),
	}
	for i, v := range vertices {
		result.Nodes[i] = NodeMark{
			ID:           v.ID,
			DurationDays: graph.NormalizeDuration(v.DurationDays),
			IsCritical:   onPath[v.ID],
		}
	}
	for i, e := range edges {
		result.Edges[i] = EdgeMark{From: e.From, To: e.To, IsCritical: consecutive[e]}
	}
	return result
}

// analyzer holds the per-call memo table. It must not outlive one Analyze call.
type analyzer struct {
	model     *graph.Model
	durations map[graph.TaskID]int
	memo      map[graph.TaskID]longest
	onPath    map[graph.TaskID]bool // tasks on the current DFS branch
}

type pathFrame struct {
	id   graph.TaskID
	next int
	best longest
}

// longestFrom computes the best path starting at start, visiting children in
// adjacency order and keeping the first child that strictly improves the
// duration. An explicit stack replaces recursion.
func (a *analyzer) longestFrom(start graph.TaskID) longest {
	if best, ok := a.memo[start]; ok {
		return best
	}
	if a.onPath[start] || !a.model.Known(start) {
		return longest{}
	}

	stack := []pathFrame{a.enter(start)}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		children := a.model.Children[top.id]

		if top.next < len(children) {
			child := children[top.next]
			top.next++

			if best, ok := a.memo[child]; ok {
				a.consider(top, child, best.duration)
				continue
			}
			if a.onPath[child] || !a.model.Known(child) {
				continue
			}
			stack = append(stack, a.enter(child))
			continue
		}

		done := top.id
		a.memo[done] = top.best
		a.onPath[done] = false
		stack = stack[:len(stack)-1]

		if len(stack) > 0 {
			parent := &stack[len(stack)-1]
			a.consider(parent, done, a.memo[done].duration)
		}
	}

	return a.memo[start]
}

func (a *analyzer) enter(id graph.TaskID) pathFrame {
	a.onPath[id] = true
	return pathFrame{id: id, best: longest{duration: a.durations[id]}}
}

func (a *analyzer) consider(f *pathFrame, child graph.TaskID, sub int) {
	if total := a.durations[f.id] + sub; total > f.best.duration {
		f.best = longest{duration: total, next: child, hasNext: true}
	}
}

// pathFrom follows memoized best-child links from id.
func (a *analyzer) pathFrom(id graph.TaskID) []graph.TaskID {
	path := []graph.TaskID{id}
	for {
		best, ok := a.memo[id]
		if !ok || !best.hasNext {
			return path
		}
		id = best.next
		path = append(path, id)
	}
}
