package cpm

import "github.com/rishiganesh2002/soma-technical-assessment/internal/graph"

// Result holds the complete critical path analysis.
type Result struct {
	CriticalPath  []graph.TaskID `json:"critical_path"` // ordered, first task first
	TotalDuration int            `json:"total_duration"`
	Nodes         []NodeMark     `json:"all_nodes"`
	Edges         []EdgeMark     `json:"all_edges"`
}

// NodeMark flags a single task.
type NodeMark struct {
	ID           graph.TaskID `json:"id"`
	DurationDays int          `json:"duration_days"`
	IsCritical   bool         `json:"is_critical"`
}

// EdgeMark flags a single dependency edge.
type EdgeMark struct {
	From       graph.TaskID `json:"from"`
	To         graph.TaskID `json:"to"`
	IsCritical bool         `json:"is_critical"`
}

// IsCritical reports whether id lies on the critical path.
func (r *Result) IsCritical(id graph.TaskID) bool {
	for _, n := range r.CriticalPath {
		if n == id {
			return true
		}
	}
	return false
}

// longest is the memoized best path starting at a task.
type longest struct {
	duration int
	next     graph.TaskID
	hasNext  bool
}
