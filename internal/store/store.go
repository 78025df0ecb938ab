// Package store persists todos and dependencies as a single JSON document.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rishiganesh2002/soma-technical-assessment/internal/todo"
)

const dataFile = "todos.json"

// document is the on-disk layout.
type document struct {
	NextTodoID   int               `json:"next_todo_id"`
	NextDepID    int               `json:"next_dependency_id"`
	Todos        []todo.Todo       `json:"todos"`
	Dependencies []todo.Dependency `json:"dependencies"`
}

// Store is a todo.Store backed by a JSON file. An empty path keeps the data in
// memory only.
type Store struct {
	mu   sync.Mutex
	path string
	doc  document
	now  func() time.Time
}

var _ todo.Store = (*Store)(nil)

// Open loads the store from dir, creating dir if needed. A missing data file
// yields an empty store.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{path: filepath.Join(dir, dataFile), now: time.Now}
	s.doc.init()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("parse store: %w", err)
	}
	s.doc.init()
	return s, nil
}

// NewMemory returns a store that is never written to disk.
func NewMemory() *Store {
	s := &Store{now: time.Now}
	s.doc.init()
	return s
}

// Path returns the data file path, or "" for a memory store.
func (s *Store) Path() string {
	return s.path
}

func (d *document) init() {
	if d.Todos == nil {
		d.Todos = []todo.Todo{}
	}
	if d.Dependencies == nil {
		d.Dependencies = []todo.Dependency{}
	}
	if d.NextTodoID < 1 {
		d.NextTodoID = 1
		for _, t := range d.Todos {
			if t.ID >= d.NextTodoID {
				d.NextTodoID = t.ID + 1
			}
		}
	}
	if d.NextDepID < 1 {
		d.NextDepID = 1
		for _, dep := range d.Dependencies {
			if dep.ID >= d.NextDepID {
				d.NextDepID = dep.ID + 1
			}
		}
	}
}

// save persists the document. Callers hold s.mu.
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) indexOf(id int) int {
	for i, t := range s.doc.Todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Todos returns a copy of all todos in creation order.
func (s *Store) Todos(ctx context.Context) ([]todo.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]todo.Todo(nil), s.doc.Todos...), nil
}

// Todo returns one todo or todo.ErrNotFound.
func (s *Store) Todo(ctx context.Context, id int) (*todo.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("todo %d: %w", id, todo.ErrNotFound)
	}
	t := s.doc.Todos[i]
	return &t, nil
}

// CreateTodo assigns the next id to t and persists it.
func (s *Store) CreateTodo(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	if err := ctx.Err(); err != nil {
		return todo.Todo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == 0 {
		t.ID = s.doc.NextTodoID
	} else if s.indexOf(t.ID) >= 0 {
		return todo.Todo{}, fmt.Errorf("todo %d already exists", t.ID)
	}
	if t.ID >= s.doc.NextTodoID {
		s.doc.NextTodoID = t.ID + 1
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.doc.Todos = append(s.doc.Todos, t)
	return t, s.save()
}

// DeleteTodo removes the todo and every dependency touching it.
func (s *Store) DeleteTodo(ctx context.Context, id int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("todo %d: %w", id, todo.ErrNotFound)
	}
	s.doc.Todos = append(s.doc.Todos[:i], s.doc.Todos[i+1:]...)

	kept := s.doc.Dependencies[:0]
	for _, d := range s.doc.Dependencies {
		if d.Parent != id && d.Child != id {
			kept = append(kept, d)
		}
	}
	s.doc.Dependencies = kept
	return s.save()
}

// UpdateStatus sets a todo's status.
func (s *Store) UpdateStatus(ctx context.Context, id int, status todo.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("todo %d: %w", id, todo.ErrNotFound)
	}
	s.doc.Todos[i].Status = status
	return s.save()
}

// SetEarliestStarts writes projected start dates; ids absent from starts are
// left untouched.
func (s *Store) SetEarliestStarts(ctx context.Context, starts map[int]time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.doc.Todos {
		if start, ok := starts[s.doc.Todos[i].ID]; ok {
			start := start
			s.doc.Todos[i].EarliestStart = &start
		}
	}
	return s.save()
}

// Dependencies returns a copy of all dependency edges.
func (s *Store) Dependencies(ctx context.Context) ([]todo.Dependency, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]todo.Dependency(nil), s.doc.Dependencies...), nil
}

// CreateDependency persists parent -> child.
func (s *Store) CreateDependency(ctx context.Context, parent, child int) (todo.Dependency, error) {
	if err := ctx.Err(); err != nil {
		return todo.Dependency{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d := todo.Dependency{
		ID:        s.doc.NextDepID,
		Parent:    parent,
		Child:     child,
		CreatedAt: s.now(),
	}
	s.doc.NextDepID++
	s.doc.Dependencies = append(s.doc.Dependencies, d)
	return d, s.save()
}

// DeleteDependency removes every parent -> child edge and reports whether any
// existed.
func (s *Store) DeleteDependency(ctx context.Context, parent, child int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	kept := s.doc.Dependencies[:0]
	for _, d := range s.doc.Dependencies {
		if d.Parent == parent && d.Child == child {
			removed = true
			continue
		}
		kept = append(kept, d)
	}
	s.doc.Dependencies = kept
	if !removed {
		return false, nil
	}
	return true, s.save()
}

// Clean removes the data file.
func (s *Store) Clean() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = document{}
	s.doc.init()
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
