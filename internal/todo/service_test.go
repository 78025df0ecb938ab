package todo_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishiganesh2002/soma-technical-assessment/internal/graph"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/store"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/todo"
)

var jan1 = time.Date(2024, time.January, 1, 9, 30, 0, 0, time.UTC)

func newService(t *testing.T) (*todo.Service, *store.Store) {
	t.Helper()
	st := store.NewMemory()
	svc := todo.NewService(st, nil, todo.WithClock(func() time.Time { return jan1 }))
	return svc, st
}

func mustCreate(t *testing.T, svc *todo.Service, title string, days int, deps ...int) *todo.Todo {
	t.Helper()
	created, _, err := svc.Create(context.Background(), todo.NewTodo{
		Title:         title,
		DueDate:       jan1.AddDate(0, 1, 0),
		EstimatedDays: days,
		Dependencies:  deps,
	})
	require.NoError(t, err)
	return created
}

func TestAddDependencies_PartialBatch(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)

	x := mustCreate(t, svc, "X", 1)
	y := mustCreate(t, svc, "Y", 1)
	c := mustCreate(t, svc, "C", 1)

	// C already blocks Y, so Y -> C would close a loop.
	_, err := svc.AddDependencies(ctx, y.ID, []int{c.ID})
	require.NoError(t, err)

	result, err := svc.AddDependencies(ctx, c.ID, []int{x.ID, y.ID})
	require.NoError(t, err)

	assert.Equal(t, []int{x.ID}, result.Successful)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, y.ID, result.Errors[0].ID)
	assert.Equal(t, todo.ReasonCycle, result.Errors[0].Reason)

	deps, err := st.Dependencies(ctx)
	require.NoError(t, err)
	var persisted bool
	for _, d := range deps {
		if d.Parent == x.ID && d.Child == c.ID {
			persisted = true
		}
		assert.False(t, d.Parent == y.ID && d.Child == c.ID, "rejected edge must not be persisted")
	}
	assert.True(t, persisted, "valid edge persisted despite sibling rejection")
}

func TestAddDependencies_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	a := mustCreate(t, svc, "A", 1)
	b := mustCreate(t, svc, "B", 1, a.ID)

	result, err := svc.AddDependencies(ctx, b.ID, []int{b.ID, 999, a.ID})
	require.NoError(t, err)

	assert.Empty(t, result.Successful)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, todo.ReasonSelfDependency, result.Errors[0].Reason)
	assert.Equal(t, todo.ReasonNotFound, result.Errors[1].Reason)
	assert.Equal(t, todo.ReasonDuplicate, result.Errors[2].Reason)
}

func TestAddDependencies_SameBatchCycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	a := mustCreate(t, svc, "A", 1)
	b := mustCreate(t, svc, "B", 1)
	c := mustCreate(t, svc, "C", 1, b.ID) // B -> C

	// A -> B is fine; then C -> B is checked against the edge set that
	// already contains B -> C.
	result, err := svc.AddDependencies(ctx, b.ID, []int{a.ID, c.ID})
	require.NoError(t, err)
	assert.Equal(t, []int{a.ID}, result.Successful)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, c.ID, result.Errors[0].ID)
}

func TestAddDependencies_UnknownChild(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.AddDependencies(context.Background(), 42, []int{1})
	assert.ErrorIs(t, err, todo.ErrNotFound)
}

func TestCreate_RefreshesStartDates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	a := mustCreate(t, svc, "A", 2)
	b := mustCreate(t, svc, "B", 3, a.ID)

	gotA, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)

	require.NotNil(t, gotA.EarliestStart)
	require.NotNil(t, gotB.EarliestStart)
	assert.True(t, gotA.EarliestStart.Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, gotB.EarliestStart.Equal(time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC)))
}

func TestCreate_InvalidTitle(t *testing.T) {
	svc, _ := newService(t)
	_, _, err := svc.Create(context.Background(), todo.NewTodo{Title: "   "})
	assert.ErrorIs(t, err, todo.ErrInvalidTitle)
}

func TestCreate_DefaultEstimate(t *testing.T) {
	st := store.NewMemory()
	svc := todo.NewService(st, nil, todo.WithDefaultEstimate(3))

	created, _, err := svc.Create(context.Background(), todo.NewTodo{Title: "no estimate"})
	require.NoError(t, err)
	assert.Equal(t, 3, created.EstimatedDays)
}

func TestRemoveDependencies(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)

	a := mustCreate(t, svc, "A", 1)
	b := mustCreate(t, svc, "B", 1, a.ID)

	result, err := svc.RemoveDependencies(ctx, b.ID, []int{a.ID, 77})
	require.NoError(t, err)
	assert.Equal(t, []int{a.ID}, result.Successful)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, todo.ReasonNoSuchEdge, result.Errors[0].Reason)

	deps, err := st.Dependencies(ctx)
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestCriticalPath(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	a := mustCreate(t, svc, "A", 1)
	b := mustCreate(t, svc, "B", 2, a.ID)
	c := mustCreate(t, svc, "C", 1, b.ID)
	mustCreate(t, svc, "Side", 1)

	view, err := svc.CriticalPath(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, view.TotalDuration)
	require.Len(t, view.CriticalPath, 3)
	assert.Equal(t, []int{a.ID, b.ID, c.ID}, []int{view.CriticalPath[0].ID, view.CriticalPath[1].ID, view.CriticalPath[2].ID})
	assert.Equal(t, "B", view.CriticalPath[1].Title)
	assert.NotNil(t, view.CriticalPath[2].EarliestStart)
	assert.Len(t, view.Nodes, 4)
	for _, e := range view.Edges {
		assert.True(t, e.IsCritical, "edge %d->%d", e.From, e.To)
	}
}

func TestCriticalPath_CyclicStoreRejected(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	for _, title := range []string{"A", "B"} {
		_, err := st.CreateTodo(ctx, todo.Todo{Title: title})
		require.NoError(t, err)
	}
	// Written behind the service's back.
	_, err := st.CreateDependency(ctx, 1, 2)
	require.NoError(t, err)
	_, err = st.CreateDependency(ctx, 2, 1)
	require.NoError(t, err)

	svc := todo.NewService(st, nil)
	_, err = svc.CriticalPath(ctx)
	assert.True(t, errors.Is(err, graph.ErrCycle), "got %v", err)

	_, err = svc.RefreshStartDates(ctx)
	assert.True(t, errors.Is(err, graph.ErrCycle), "got %v", err)
}

func TestDelete_RecomputesStarts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	a := mustCreate(t, svc, "A", 5)
	b := mustCreate(t, svc, "B", 1, a.ID)

	require.NoError(t, svc.Delete(ctx, a.ID))

	got, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EarliestStart)
	assert.True(t, got.EarliestStart.Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	a := mustCreate(t, svc, "A", 1)

	require.NoError(t, svc.UpdateStatus(ctx, a.ID, todo.StatusInProgress))
	assert.ErrorIs(t, svc.UpdateStatus(ctx, a.ID, "done"), todo.ErrInvalidStatus)
	assert.ErrorIs(t, svc.UpdateStatus(ctx, 999, todo.StatusCompleted), todo.ErrNotFound)
}

func TestList_SortedByDueDate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, _, err := svc.Create(ctx, todo.NewTodo{Title: "late", DueDate: jan1.AddDate(0, 0, 10)})
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, todo.NewTodo{Title: "early", DueDate: jan1})
	require.NoError(t, err)

	todos, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, todos, 2)
	assert.Equal(t, "early", todos[0].Title)
}

func TestIsPastDue(t *testing.T) {
	now := time.Date(2024, time.January, 5, 8, 0, 0, 0, time.UTC)
	assert.True(t, todo.IsPastDue(todo.Todo{DueDate: time.Date(2024, time.January, 4, 23, 0, 0, 0, time.UTC)}, now))
	assert.False(t, todo.IsPastDue(todo.Todo{DueDate: time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)}, now))
	assert.False(t, todo.IsPastDue(todo.Todo{DueDate: time.Date(2024, time.January, 9, 0, 0, 0, 0, time.UTC)}, now))
	assert.False(t, todo.IsPastDue(todo.Todo{}, now), "no due date")
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)

	todos := []todo.Todo{
		{ID: 10, Title: "A", EstimatedDays: 2},
		{ID: 20, Title: "B", EstimatedDays: 1},
	}
	deps := []todo.Dependency{
		{Parent: 10, Child: 20},
		{Parent: 20, Child: 10}, // would close a loop
		{Parent: 10, Child: 99}, // unknown child
	}

	results, err := svc.Import(ctx, todos, deps)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []int{10}, results[0].Successful)
	assert.Equal(t, todo.ReasonCycle, results[1].Errors[0].Reason)
	assert.Equal(t, todo.ReasonNotFound, results[2].Errors[0].Reason)

	got, err := st.Todo(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, todo.StatusPending, got.Status)
	require.NotNil(t, got.EarliestStart)
	assert.True(t, got.EarliestStart.Equal(time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC)))

	next, _, err := svc.Create(ctx, todo.NewTodo{Title: "after import"})
	require.NoError(t, err)
	assert.Equal(t, 21, next.ID)
}

func TestCreate_AllDependenciesRejectedStillGetsStartDate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	created, batch, err := svc.Create(ctx, todo.NewTodo{
		Title:         "lonely",
		EstimatedDays: 1,
		Dependencies:  []int{999},
	})
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Empty(t, batch.Successful)
	require.Len(t, batch.Errors, 1)
	assert.Equal(t, todo.ReasonNotFound, batch.Errors[0].Reason)

	require.NotNil(t, created.EarliestStart, "created todo has no earliest start date")
	assert.True(t, created.EarliestStart.Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestImport_ClashingIDLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)
	mustCreate(t, svc, "existing", 1)

	_, err := svc.Import(ctx, []todo.Todo{{ID: 50, Title: "new"}, {ID: 1, Title: "clash"}}, nil)
	assert.ErrorIs(t, err, todo.ErrDuplicateID)

	todos, err := st.Todos(ctx)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "existing", todos[0].Title)
}

func TestImport_DuplicateIDWithinBatch(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)

	_, err := svc.Import(ctx, []todo.Todo{{ID: 7, Title: "A"}, {ID: 7, Title: "B"}}, nil)
	assert.ErrorIs(t, err, todo.ErrDuplicateID)

	todos, err := st.Todos(ctx)
	require.NoError(t, err)
	assert.Empty(t, todos)
}

func TestCriticalPath_ConcurrentWithWrites(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	prev := mustCreate(t, svc, "root", 1)
	for i := 0; i < 20; i++ {
		prev = mustCreate(t, svc, "step", 1, prev.ID)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_, err := svc.CriticalPath(ctx)
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			_, _, err := svc.Create(ctx, todo.NewTodo{Title: "extra", Dependencies: []int{prev.ID}})
			assert.NoError(t, err)
		}
	}()
	wg.Wait()
}

func TestList_UndatedTodosLast(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, _, err := svc.Create(ctx, todo.NewTodo{Title: "undated"})
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, todo.NewTodo{Title: "later", DueDate: jan1.AddDate(0, 0, 10)})
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, todo.NewTodo{Title: "sooner", DueDate: jan1})
	require.NoError(t, err)

	todos, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, todos, 3)
	assert.Equal(t, []string{"sooner", "later", "undated"}, []string{todos[0].Title, todos[1].Title, todos[2].Title})
}
