package todo

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rishiganesh2002/soma-technical-assessment/internal/graph"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/schedule"
)

var (
	ErrNotFound      = errors.New("todo not found")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidTitle  = errors.New("invalid title")
	ErrDuplicateID   = errors.New("todo id already in use")
)

// Status is the workflow state of a todo.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "inProgress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Todo is a persisted task.
type Todo struct {
	ID            int        `json:"id"`
	Title         string     `json:"title"`
	Status        Status     `json:"status"`
	DueDate       time.Time  `json:"due_date"`
	EstimatedDays int        `json:"estimated_completion_days"`
	EarliestStart *time.Time `json:"earliest_possible_start_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Dependency is a persisted edge: Parent must complete before Child starts.
type Dependency struct {
	ID        int       `json:"id"`
	Parent    int       `json:"parent_todo"`
	Child     int       `json:"child_todo"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTodo is the input for creating a todo.
type NewTodo struct {
	Title         string
	DueDate       time.Time
	EstimatedDays int
	Dependencies  []int // parent todo ids
}

// Store persists todos and dependencies. Implementations need not be safe for
// concurrent writers; Service serializes writes.
type Store interface {
	Todos(ctx context.Context) ([]Todo, error)
	Todo(ctx context.Context, id int) (*Todo, error)
	CreateTodo(ctx context.Context, t Todo) (Todo, error)
	DeleteTodo(ctx context.Context, id int) error
	UpdateStatus(ctx context.Context, id int, status Status) error
	SetEarliestStarts(ctx context.Context, starts map[int]time.Time) error
	Dependencies(ctx context.Context) ([]Dependency, error)
	CreateDependency(ctx context.Context, parent, child int) (Dependency, error)
	DeleteDependency(ctx context.Context, parent, child int) (bool, error)
}

// BatchResult reports per-id outcomes of a dependency batch.
type BatchResult struct {
	TodoID     int          `json:"todo_id"`
	Requested  []int        `json:"requested"`
	Successful []int        `json:"successful"`
	Errors     []BatchError `json:"errors"`
}

// BatchError is a single rejected id with the reason it was rejected.
type BatchError struct {
	ID     int    `json:"id"`
	Reason string `json:"reason"`
}

// Rejection reasons reported in BatchError.
const (
	ReasonSelfDependency = "a todo cannot depend on itself"
	ReasonNotFound       = "todo not found"
	ReasonDuplicate      = "dependency already exists"
	ReasonCycle          = "would create a dependency cycle"
	ReasonNoSuchEdge     = "dependency does not exist"
)

// IsPastDue reports whether the todo's due day is before now's day (UTC).
// A todo without a due date is never past due.
func IsPastDue(t Todo, now time.Time) bool {
	if t.DueDate.IsZero() {
		return false
	}
	return schedule.StartOfDay(t.DueDate).Before(schedule.StartOfDay(now))
}

// SortByDueDate returns a copy of todos ordered by due date, earliest first.
// Todos without a due date come last.
func SortByDueDate(todos []Todo) []Todo {
	sorted := append([]Todo(nil), todos...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].DueDate, sorted[j].DueDate
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.Before(b)
	})
	return sorted
}

// Snapshot converts persisted records into the graph inputs, dropping
// duplicate edges.
func Snapshot(todos []Todo, deps []Dependency) ([]graph.Vertex, []graph.Edge) {
	vertices := make([]graph.Vertex, len(todos))
	for i, t := range todos {
		vertices[i] = graph.Vertex{ID: graph.TaskID(t.ID), DurationDays: t.EstimatedDays}
	}
	edges := make([]graph.Edge, len(deps))
	for i, d := range deps {
		edges[i] = graph.Edge{From: graph.TaskID(d.Parent), To: graph.TaskID(d.Child)}
	}
	return vertices, graph.Dedupe(edges)
}
