// Package todo is the service layer around the dependency-graph core. It
// loads snapshots from a Store, runs the graph algorithms and writes results
// back.
package todo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rishiganesh2002/soma-technical-assessment/internal/cpm"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/graph"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/schedule"
)

const maxTitleLen = 255

// Service serializes every write against its store so that a speculative
// cycle check and the write that follows it see the same edge set.
type Service struct {
	store           Store
	log             *log.Logger
	now             func() time.Time
	defaultEstimate int

	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for start-date projection.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDefaultEstimate sets the estimate applied when a new todo has none.
func WithDefaultEstimate(days int) Option {
	return func(s *Service) { s.defaultEstimate = graph.NormalizeDuration(days) }
}

// NewService creates a Service over store.
func NewService(store Store, logger *log.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Service{
		store:           store,
		log:             logger,
		now:             time.Now,
		defaultEstimate: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all todos ordered by due date.
func (s *Service) List(ctx context.Context) ([]Todo, error) {
	todos, err := s.store.Todos(ctx)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return SortByDueDate(todos), nil
}

// Get returns a single todo.
func (s *Service) Get(ctx context.Context, id int) (*Todo, error) {
	return s.store.Todo(ctx, id)
}

// Dependencies returns every persisted dependency edge.
func (s *Service) Dependencies(ctx context.Context) ([]Dependency, error) {
	return s.store.Dependencies(ctx)
}

// Create persists a new todo, then attaches its prerequisites through the same
// per-edge validation as AddDependencies.
func (s *Service) Create(ctx context.Context, in NewTodo) (*Todo, *BatchResult, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || len(title) > maxTitleLen {
		return nil, nil, fmt.Errorf("%w: must be 1-%d characters", ErrInvalidTitle, maxTitleLen)
	}

	estimate := in.EstimatedDays
	if estimate < 1 {
		estimate = s.defaultEstimate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.store.CreateTodo(ctx, Todo{
		Title:         title,
		Status:        StatusPending,
		DueDate:       in.DueDate,
		EstimatedDays: estimate,
		CreatedAt:     s.now(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create todo: %w", err)
	}
	s.log.Info("todo created", "id", created.ID, "title", created.Title, "estimate_days", created.EstimatedDays)

	var batch *BatchResult
	if len(in.Dependencies) > 0 {
		batch, err = s.addDependenciesLocked(ctx, created.ID, in.Dependencies)
		if err != nil {
			return &created, nil, err
		}
	}
	// addDependenciesLocked only refreshes when an edge was saved.
	if batch == nil || len(batch.Successful) == 0 {
		if _, err := s.refreshLocked(ctx); err != nil {
			return &created, batch, err
		}
	}

	t, err := s.store.Todo(ctx, created.ID)
	if err != nil {
		return &created, batch, err
	}
	return t, batch, nil
}

// Delete removes a todo and every dependency touching it.
func (s *Service) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteTodo(ctx, id); err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	s.log.Info("todo deleted", "id", id)

	_, err := s.refreshLocked(ctx)
	return err
}

// UpdateStatus changes a todo's workflow status.
func (s *Service) UpdateStatus(ctx context.Context, id int, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q (use pending, inProgress or completed)", ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("update status of %d: %w", id, err)
	}
	s.log.Debug("status updated", "id", id, "status", status)
	return nil
}

// AddDependencies makes childID depend on each of parentIDs. Every parent is
// judged on its own: rejected ones are reported in Errors and do not stop the
// others from being persisted.
func (s *Service) AddDependencies(ctx context.Context, childID int, parentIDs []int) (*BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addDependenciesLocked(ctx, childID, parentIDs)
}

func (s *Service) addDependenciesLocked(ctx context.Context, childID int, parentIDs []int) (*BatchResult, error) {
	todos, deps, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]bool, len(todos))
	for _, t := range todos {
		byID[t.ID] = true
	}
	if !byID[childID] {
		return nil, fmt.Errorf("add dependencies to %d: %w", childID, ErrNotFound)
	}

	existing := make(map[[2]int]bool, len(deps))
	for _, d := range deps {
		existing[[2]int{d.Parent, d.Child}] = true
	}

	vertices, edges := Snapshot(todos, deps)
	result := &BatchResult{
		TodoID:     childID,
		Requested:  append([]int(nil), parentIDs...),
		Successful: []int{},
		Errors:     []BatchError{},
	}

	reject := func(id int, reason string) {
		result.Errors = append(result.Errors, BatchError{ID: id, Reason: reason})
		s.log.Warn("dependency rejected", "child", childID, "parent", id, "reason", reason)
	}

	for _, parentID := range parentIDs {
		switch {
		case parentID == childID:
			reject(parentID, ReasonSelfDependency)
			continue
		case !byID[parentID]:
			reject(parentID, ReasonNotFound)
			continue
		case existing[[2]int{parentID, childID}]:
			reject(parentID, ReasonDuplicate)
			continue
		}

		candidate := append(edges[:len(edges):len(edges)], graph.Edge{From: graph.TaskID(parentID), To: graph.TaskID(childID)})
		if err := graph.ValidateAcyclic(vertices, candidate); err != nil {
			if !errors.Is(err, graph.ErrCycle) {
				return nil, err
			}
			reject(parentID, ReasonCycle)
			continue
		}

		if _, err := s.store.CreateDependency(ctx, parentID, childID); err != nil {
			return nil, fmt.Errorf("persist dependency %d -> %d: %w", parentID, childID, err)
		}
		edges = candidate
		existing[[2]int{parentID, childID}] = true
		result.Successful = append(result.Successful, parentID)
		s.log.Info("dependency added", "child", childID, "parent", parentID)
	}

	if len(result.Successful) > 0 {
		if _, err := s.refreshLocked(ctx); err != nil {
			return result, err
		}
	}
	return result, nil
}

// RemoveDependencies detaches childID from each of parentIDs.
func (s *Service) RemoveDependencies(ctx context.Context, childID int, parentIDs []int) (*BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &BatchResult{
		TodoID:     childID,
		Requested:  append([]int(nil), parentIDs...),
		Successful: []int{},
		Errors:     []BatchError{},
	}
	for _, parentID := range parentIDs {
		removed, err := s.store.DeleteDependency(ctx, parentID, childID)
		if err != nil {
			return nil, fmt.Errorf("delete dependency %d -> %d: %w", parentID, childID, err)
		}
		if !removed {
			result.Errors = append(result.Errors, BatchError{ID: parentID, Reason: ReasonNoSuchEdge})
			continue
		}
		result.Successful = append(result.Successful, parentID)
		s.log.Info("dependency removed", "child", childID, "parent", parentID)
	}

	if len(result.Successful) > 0 {
		if _, err := s.refreshLocked(ctx); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Import adds todos with their ids preserved, then attaches dependencies
// grouped by child in first-seen order. Edges are validated exactly as in
// AddDependencies; one BatchResult is returned per child.
func (s *Service) Import(ctx context.Context, todos []Todo, deps []Dependency) ([]*BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Todos(ctx)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	taken := make(map[int]bool, len(existing)+len(todos))
	for _, t := range existing {
		taken[t.ID] = true
	}
	for _, t := range todos {
		if t.ID > 0 && taken[t.ID] {
			return nil, fmt.Errorf("import todo %d: %w", t.ID, ErrDuplicateID)
		}
		if t.ID > 0 {
			taken[t.ID] = true
		}
	}

	for _, t := range todos {
		if t.Status == "" {
			t.Status = StatusPending
		}
		if t.EstimatedDays < 1 {
			t.EstimatedDays = s.defaultEstimate
		}
		if _, err := s.store.CreateTodo(ctx, t); err != nil {
			return nil, fmt.Errorf("import todo %d: %w", t.ID, err)
		}
	}
	s.log.Info("todos imported", "count", len(todos))

	var children []int
	parents := make(map[int][]int)
	for _, d := range deps {
		if _, ok := parents[d.Child]; !ok {
			children = append(children, d.Child)
		}
		parents[d.Child] = append(parents[d.Child], d.Parent)
	}

	results := make([]*BatchResult, 0, len(children))
	for _, child := range children {
		result, err := s.addDependenciesLocked(ctx, child, parents[child])
		if errors.Is(err, ErrNotFound) {
			results = append(results, &BatchResult{
				TodoID:     child,
				Requested:  parents[child],
				Successful: []int{},
				Errors:     []BatchError{{ID: child, Reason: ReasonNotFound}},
			})
			continue
		}
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	if _, err := s.refreshLocked(ctx); err != nil {
		return results, err
	}
	return results, nil
}

// PathTodo is a todo annotated with its critical-path flag.
type PathTodo struct {
	ID            int        `json:"id"`
	Title         string     `json:"title"`
	EstimatedDays int        `json:"estimated_completion_days"`
	IsCritical    bool       `json:"is_critical"`
	EarliestStart *time.Time `json:"earliest_possible_start_date"`
}

// CriticalPathView is the critical path analysis joined with todo details.
type CriticalPathView struct {
	CriticalPath  []PathTodo     `json:"critical_path"`
	TotalDuration int            `json:"total_duration"`
	Nodes         []PathTodo     `json:"all_nodes"`
	Edges         []cpm.EdgeMark `json:"all_edges"`
}

// CriticalPath analyzes the stored graph. The graph is validated first, so a
// cyclic store yields a *graph.CycleError rather than a degenerate result.
func (s *Service) CriticalPath(ctx context.Context) (*CriticalPathView, error) {
	s.mu.Lock()
	todos, deps, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	vertices, edges := Snapshot(todos, deps)
	if err := graph.ValidateAcyclic(vertices, edges); err != nil {
		return nil, fmt.Errorf("critical path: %w", err)
	}
	result := cpm.Analyze(vertices, edges)

	byID := make(map[graph.TaskID]Todo, len(todos))
	for _, t := range todos {
		byID[graph.TaskID(t.ID)] = t
	}
	annotate := func(id graph.TaskID, critical bool) PathTodo {
		t, ok := byID[id]
		if !ok {
			return PathTodo{ID: int(id), Title: "Unknown Task", EstimatedDays: 1, IsCritical: critical}
		}
		return PathTodo{
			ID:            t.ID,
			Title:         t.Title,
			EstimatedDays: graph.NormalizeDuration(t.EstimatedDays),
			IsCritical:    critical,
			EarliestStart: t.EarliestStart,
		}
	}

	view := &CriticalPathView{
		CriticalPath:  make([]PathTodo, len(result.CriticalPath)),
		TotalDuration: result.TotalDuration,
		Nodes:         make([]PathTodo, len(result.Nodes)),
		Edges:         result.Edges,
	}
	for i, id := range result.CriticalPath {
		view.CriticalPath[i] = annotate(id, true)
	}
	for i, n := range result.Nodes {
		view.Nodes[i] = annotate(n.ID, n.IsCritical)
	}
	return view, nil
}

// RefreshStartDates projects earliest start dates from now and writes them back.
func (s *Service) RefreshStartDates(ctx context.Context) ([]schedule.StartDate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Service) refreshLocked(ctx context.Context) ([]schedule.StartDate, error) {
	todos, deps, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	vertices, edges := Snapshot(todos, deps)
	starts, err := schedule.Project(vertices, edges, s.now())
	if err != nil {
		return nil, err
	}

	byID := make(map[int]time.Time, len(starts))
	for _, st := range starts {
		byID[int(st.ID)] = st.EarliestStart
	}
	if err := s.store.SetEarliestStarts(ctx, byID); err != nil {
		return nil, fmt.Errorf("write earliest start dates: %w", err)
	}
	s.log.Debug("start dates refreshed", "todos", len(starts))
	return starts, nil
}

func (s *Service) load(ctx context.Context) ([]Todo, []Dependency, error) {
	todos, err := s.store.Todos(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load todos: %w", err)
	}
	deps, err := s.store.Dependencies(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load dependencies: %w", err)
	}
	return todos, deps, nil
}
