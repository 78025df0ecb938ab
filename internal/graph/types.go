package graph

// TaskID identifies a todo within one dependency graph.
type TaskID int

// Vertex is a single task as seen by the graph algorithms.
type Vertex struct {
	ID           TaskID `json:"id"`
	DurationDays int    `json:"duration_days"`
}

// Edge is a precedence constraint: From must complete before To starts.
type Edge struct {
	From TaskID `json:"from"` // prerequisite
	To   TaskID `json:"to"`   // dependent
}

// Model is the adjacency view of a vertex set and edge list.
// It is rebuilt for every analysis call and never cached.
type Model struct {
	Children map[TaskID][]TaskID // task -> tasks it blocks, insertion order
	Parents  map[TaskID][]TaskID // task -> tasks that block it
	Indegree map[TaskID]int
	Order    []TaskID // supplied ids first, then ids only seen on edges
	known    map[TaskID]bool
}
