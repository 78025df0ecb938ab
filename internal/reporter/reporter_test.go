package reporter

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rishiganesh2002/soma-technical-assessment/internal/cpm"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/schedule"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/todo"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/ui"
)

func TestMain(m *testing.M) {
	ui.Disable()
	os.Exit(m.Run())
}

var (
	jan1 = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	jan3 = time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC)
)

func makeReporter() *Reporter {
	todos := []todo.Todo{
		{ID: 1, Title: "Design schema", Status: todo.StatusCompleted, DueDate: jan1.AddDate(0, 0, 5), EstimatedDays: 2, EarliestStart: &jan1},
		{ID: 2, Title: "Write API", Status: todo.StatusInProgress, DueDate: jan1.AddDate(0, 0, -1), EstimatedDays: 3, EarliestStart: &jan3},
		{ID: 3, Title: "Write docs", Status: todo.StatusPending, EstimatedDays: 1, EarliestStart: &jan1},
	}
	deps := []todo.Dependency{{ID: 1, Parent: 1, Child: 2}}
	return New(todos, deps, jan1)
}

func makeView() *todo.CriticalPathView {
	return &todo.CriticalPathView{
		CriticalPath: []todo.PathTodo{
			{ID: 1, Title: "Design schema", EstimatedDays: 2, IsCritical: true, EarliestStart: &jan1},
			{ID: 2, Title: "Write API", EstimatedDays: 3, IsCritical: true, EarliestStart: &jan3},
		},
		TotalDuration: 5,
		Nodes: []todo.PathTodo{
			{ID: 1, Title: "Design schema", EstimatedDays: 2, IsCritical: true},
			{ID: 2, Title: "Write API", EstimatedDays: 3, IsCritical: true},
			{ID: 3, Title: `Say "hi"`, EstimatedDays: 1},
		},
		Edges: []cpm.EdgeMark{{From: 1, To: 2, IsCritical: true}},
	}
}

func TestPrintList(t *testing.T) {
	rpt := makeReporter()

	var buf bytes.Buffer
	rpt.PrintList(&buf, map[int]bool{1: true, 2: true})
	output := buf.String()

	if !strings.Contains(output, "3 todos, 1 completed") {
		t.Errorf("expected header counts, got:\n%s", output)
	}
	if !strings.Contains(output, "(1 overdue)") {
		t.Error("expected overdue count")
	}
	if !strings.Contains(output, "after #1") {
		t.Error("expected dependency column for #2")
	}
	if !strings.Contains(output, "no due date") {
		t.Error("expected placeholder for a todo without a due date")
	}
	if strings.Count(output, "⚡") != 2 {
		t.Errorf("expected 2 critical markers, got %d", strings.Count(output, "⚡"))
	}
}

func TestPrintTodo(t *testing.T) {
	rpt := makeReporter()

	var buf bytes.Buffer
	if err := rpt.PrintTodo(&buf, 1); err != nil {
		t.Fatalf("PrintTodo: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "Blocks:     #2 Write API") {
		t.Errorf("expected dependents line, got:\n%s", output)
	}

	if err := rpt.PrintTodo(&buf, 42); err == nil {
		t.Error("expected error for unknown todo")
	}
}

func TestPrintCriticalPath(t *testing.T) {
	var buf bytes.Buffer
	PrintCriticalPath(&buf, makeView())
	output := buf.String()

	if !strings.Contains(output, "#1 → #2") {
		t.Errorf("expected path chain, got:\n%s", output)
	}
	if !strings.Contains(output, "est. 5 days") {
		t.Error("expected total duration")
	}

	buf.Reset()
	PrintCriticalPath(&buf, &todo.CriticalPathView{})
	if !strings.Contains(buf.String(), "No todos.") {
		t.Error("expected empty message")
	}
}

func TestWriteDOT(t *testing.T) {
	var buf bytes.Buffer
	WriteDOT(&buf, makeView())
	output := buf.String()

	if !strings.HasPrefix(output, "digraph todograph {") {
		t.Error("expected digraph header")
	}
	if !strings.Contains(output, `t1 -> t2 [color=red, penwidth=2];`) {
		t.Errorf("expected critical edge, got:\n%s", output)
	}
	if !strings.Contains(output, `Say \"hi\"`) {
		t.Error("expected quotes in titles to be escaped")
	}
	if !strings.Contains(output, `t3 [label="#3\nSay \"hi\"\n1d"];`) {
		t.Error("non-critical node should not be styled")
	}
}

func TestPrintSchedule(t *testing.T) {
	rpt := makeReporter()
	starts := []schedule.StartDate{
		{ID: 1, EarliestStart: jan1, EarliestFinish: jan3},
		{ID: 3, EarliestStart: jan1, EarliestFinish: jan1.AddDate(0, 0, 1)},
		{ID: 2, EarliestStart: jan3, EarliestFinish: jan3.AddDate(0, 0, 3)},
	}

	var buf bytes.Buffer
	rpt.PrintSchedule(&buf, starts, nil)
	output := buf.String()

	if !strings.Contains(output, "Waves:     2") {
		t.Errorf("expected 2 waves, got:\n%s", output)
	}
	if !strings.Contains(output, "Finish:    2024-01-06") {
		t.Error("expected overall finish date")
	}
	if !strings.Contains(output, "Wave 1  2024-01-01  (blocked, 2 todos)") {
		t.Error("expected first wave to be blocked by its pending todo")
	}
	if !strings.Contains(output, "Wave 2  2024-01-03  (running, 1 todos)") {
		t.Error("expected second wave to be running")
	}
}

func TestPrintBatch(t *testing.T) {
	var buf bytes.Buffer
	PrintBatch(&buf, "depends on", &todo.BatchResult{
		TodoID:     3,
		Successful: []int{1},
		Errors:     []todo.BatchError{{ID: 2, Reason: todo.ReasonCycle}},
	})
	output := buf.String()
	if !strings.Contains(output, "✓ #3 depends on #1") {
		t.Errorf("expected success line, got:\n%s", output)
	}
	if !strings.Contains(output, todo.ReasonCycle) {
		t.Error("expected rejection reason")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, makeView()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"total_duration": 5`) {
		t.Errorf("unexpected JSON:\n%s", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 40); got != "short" {
		t.Errorf("expected unchanged title, got %q", got)
	}

	long := strings.Repeat("é", 50)
	got := truncate(long, 40)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated title is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 40 {
		t.Errorf("expected 40 characters, got %d", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis, got %q", got)
	}
}
