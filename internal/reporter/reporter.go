package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rishiganesh2002/soma-technical-assessment/internal/graph"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/schedule"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/todo"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/ui"
)

const dateLayout = "2006-01-02"

// Reporter renders todos and their dependency graph for the terminal.
type Reporter struct {
	Todos []todo.Todo
	Deps  []todo.Dependency
	Now   time.Time

	byID       map[int]todo.Todo
	parents    map[int][]int
	dependents map[int][]int
}

// New creates a Reporter over a snapshot of the store.
func New(todos []todo.Todo, deps []todo.Dependency, now time.Time) *Reporter {
	r := &Reporter{
		Todos:      todos,
		Deps:       deps,
		Now:        now,
		byID:       make(map[int]todo.Todo, len(todos)),
		parents:    make(map[int][]int),
		dependents: make(map[int][]int),
	}
	for _, t := range todos {
		r.byID[t.ID] = t
	}
	for _, d := range deps {
		r.parents[d.Child] = append(r.parents[d.Child], d.Parent)
		r.dependents[d.Parent] = append(r.dependents[d.Parent], d.Child)
	}
	for _, m := range []map[int][]int{r.parents, r.dependents} {
		for id := range m {
			sort.Ints(m[id])
		}
	}
	return r
}

// PrintList writes a terminal-friendly todo table. critical marks todos on
// the critical path and may be nil.
func (r *Reporter) PrintList(w io.Writer, critical map[int]bool) {
	completed, overdue := 0, 0
	for _, t := range r.Todos {
		if t.Status == todo.StatusCompleted {
			completed++
		}
		if todo.IsPastDue(t, r.Now) {
			overdue++
		}
	}

	fmt.Fprintf(w, "📋 %s %d todos, %d completed", ui.BoldCyan("Todos"), len(r.Todos), completed)
	if overdue > 0 {
		fmt.Fprintf(w, " %s", ui.Red(fmt.Sprintf("(%d overdue)", overdue)))
	}
	fmt.Fprint(w, "\n\n")

	for _, t := range r.Todos {
		r.printTodo(w, t, critical[t.ID])
	}
}

func (r *Reporter) printTodo(w io.Writer, t todo.Todo, critical bool) {
	title := truncate(t.Title, 40)

	start := ""
	if t.EarliestStart != nil {
		start = ui.Cyan("start " + t.EarliestStart.Format(dateLayout))
	}

	after := ""
	if ps := r.parents[t.ID]; len(ps) > 0 {
		after = ui.Dim("after " + idList(ps))
	}

	fmt.Fprintf(w, "  %s %-6s %-40s %s %s  %s  %s\n",
		ui.StatusIcon(string(t.Status)), ui.TodoID(t.ID), title, ui.CriticalMark(critical),
		r.due(t), start, after)
}

func (r *Reporter) due(t todo.Todo) string {
	if t.DueDate.IsZero() {
		return ui.Dim("no due date")
	}
	return ui.DueLabel("due "+t.DueDate.Format(dateLayout), todo.IsPastDue(t, r.Now))
}

// PrintTodo writes the detail view of a single todo.
func (r *Reporter) PrintTodo(w io.Writer, id int) error {
	t, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("todo %d: %w", id, todo.ErrNotFound)
	}

	fmt.Fprintf(w, "%s %s  %s\n", ui.StatusIcon(string(t.Status)), ui.TodoID(t.ID), ui.Bold(t.Title))
	fmt.Fprintf(w, "Status:     %s\n", t.Status)
	fmt.Fprintf(w, "Due:        %s\n", r.due(t))
	fmt.Fprintf(w, "Estimate:   %d days\n", t.EstimatedDays)
	if t.EarliestStart != nil {
		fmt.Fprintf(w, "Start:      %s\n", t.EarliestStart.Format(dateLayout))
	}
	if !t.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created:    %s\n", ui.Dim(t.CreatedAt.Format(time.RFC3339)))
	}
	if ps := r.parents[id]; len(ps) > 0 {
		fmt.Fprintf(w, "Depends on: %s\n", r.titled(ps))
	}
	if ds := r.dependents[id]; len(ds) > 0 {
		fmt.Fprintf(w, "Blocks:     %s\n", r.titled(ds))
	}
	return nil
}

func (r *Reporter) titled(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = ui.TodoID(id)
		if t, ok := r.byID[id]; ok {
			parts[i] += " " + t.Title
		}
	}
	return strings.Join(parts, ", ")
}

// PrintCriticalPath writes the critical path summary.
func PrintCriticalPath(w io.Writer, view *todo.CriticalPathView) {
	if len(view.CriticalPath) == 0 {
		fmt.Fprintln(w, ui.Dim("No todos."))
		return
	}

	ids := make([]int, len(view.CriticalPath))
	for i, p := range view.CriticalPath {
		ids[i] = p.ID
	}

	fmt.Fprintf(w, "⚡ Critical path: %s (%d todos, est. %d days)\n\n",
		ui.BoldYellow(idChain(ids)), len(ids), view.TotalDuration)

	for _, p := range view.CriticalPath {
		start := ""
		if p.EarliestStart != nil {
			start = ui.Cyan("start " + p.EarliestStart.Format(dateLayout))
		}
		fmt.Fprintf(w, "  %-6s %-40s %s  %s\n", ui.TodoID(p.ID), truncate(p.Title, 40), ui.Dim(fmt.Sprintf("%dd", p.EstimatedDays)), start)
	}
}

// WriteDOT writes the dependency graph in Graphviz format, critical nodes and
// edges in red.
func WriteDOT(w io.Writer, view *todo.CriticalPathView) {
	fmt.Fprintln(w, "digraph todograph {")
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box, style=rounded];")
	fmt.Fprintln(w)

	for _, n := range view.Nodes {
		label := fmt.Sprintf(`#%d\n%s\n%dd`, n.ID, escapeDOT(n.Title), n.EstimatedDays)
		attrs := fmt.Sprintf(`label="%s"`, label)
		if n.IsCritical {
			attrs += `, style="rounded,bold", color=red`
		}
		fmt.Fprintf(w, "  t%d [%s];\n", n.ID, attrs)
	}

	fmt.Fprintln(w)

	for _, e := range view.Edges {
		style := ""
		if e.IsCritical {
			style = ` [color=red, penwidth=2]`
		}
		fmt.Fprintf(w, "  t%d -> t%d%s;\n", e.From, e.To, style)
	}

	fmt.Fprintln(w, "}")
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// PrintSchedule writes the projected start dates grouped into waves of todos
// that can begin on the same day.
func (r *Reporter) PrintSchedule(w io.Writer, starts []schedule.StartDate, critical map[int]bool) {
	waves := schedule.Waves(starts)
	finish := make(map[graph.TaskID]time.Time, len(starts))
	var end time.Time
	for _, s := range starts {
		finish[s.ID] = s.EarliestFinish
		if s.EarliestFinish.After(end) {
			end = s.EarliestFinish
		}
	}

	fmt.Fprintf(w, "🗓  %s\n", ui.BoldCyan("Projected schedule"))
	fmt.Fprintln(w, ui.Cyan("══════════════════"))
	fmt.Fprintf(w, "Todos:     %d\n", len(starts))
	fmt.Fprintf(w, "Waves:     %d\n", len(waves))
	if !end.IsZero() {
		fmt.Fprintf(w, "Finish:    %s\n", ui.Bold(end.Format(dateLayout)))
	}
	fmt.Fprintln(w)

	for _, wave := range waves {
		fmt.Fprintf(w, "  🌊 %s %d  %s  (%s, %d todos)\n",
			ui.BoldWhite("Wave"), wave.Index+1, wave.Start.Format(dateLayout),
			ui.WaveStatus(r.waveStatus(wave)), len(wave.TaskIDs))

		for _, id := range wave.TaskIDs {
			t := r.byID[int(id)]
			fmt.Fprintf(w, "    %s %-6s %-40s %s  %s\n",
				ui.StatusIcon(string(t.Status)), ui.TodoID(int(id)), truncate(t.Title, 40),
				ui.CriticalMark(critical[int(id)]),
				ui.Dim("until "+finish[id].Format(dateLayout)))
		}
		fmt.Fprintln(w)
	}
}

// waveStatus derives a wave's status from its todos: done when all are
// completed, running when any is in progress, otherwise blocked.
func (r *Reporter) waveStatus(wave schedule.Wave) string {
	allDone := true
	anyRunning := false
	for _, id := range wave.TaskIDs {
		switch r.byID[int(id)].Status {
		case todo.StatusCompleted:
		case todo.StatusInProgress:
			anyRunning = true
			allDone = false
		default:
			allDone = false
		}
	}
	if allDone {
		return "done"
	}
	if anyRunning {
		return "running"
	}
	return "blocked"
}

// PrintBatch writes the per-parent outcome of a dependency batch.
func PrintBatch(w io.Writer, verb string, result *todo.BatchResult) {
	for _, id := range result.Successful {
		fmt.Fprintf(w, "  %s %s %s %s\n", ui.Green("✓"), ui.TodoID(result.TodoID), verb, ui.TodoID(id))
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s %s %s %s  %s\n", ui.Red("✗"), ui.TodoID(result.TodoID), verb, ui.TodoID(e.ID), ui.Red(e.Reason))
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// truncate shortens s to at most n characters, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func idList(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, ", ")
}

func idChain(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, " → ")
}
