// Package schedule projects earliest start dates forward through an acyclic
// dependency graph.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/rishiganesh2002/soma-technical-assessment/internal/graph"
)

// StartDate is the projected window for one task.
type StartDate struct {
	ID             graph.TaskID `json:"id"`
	EarliestStart  time.Time    `json:"earliest_start_date"`
	EarliestFinish time.Time    `json:"earliest_finish_date"`
}

// Wave groups tasks that can start on the same day.
type Wave struct {
	Index   int            `json:"index"`
	Start   time.Time      `json:"start"`
	TaskIDs []graph.TaskID `json:"task_ids"`
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays adds whole calendar days, keeping the result at midnight UTC.
func AddDays(t time.Time, days int) time.Time {
	return StartOfDay(StartOfDay(t).AddDate(0, 0, days))
}

// Project computes each task's earliest start date with Kahn's algorithm.
// A task starts on the later of the start of now's day and the latest
// earliest-finish among its prerequisites, and finishes DurationDays later.
// Edges touching unknown ids are ignored. Project fails with a
// *graph.CycleError if the graph is not acyclic.
func Project(vertices []graph.Vertex, edges []graph.Edge, now time.Time) ([]StartDate, error) {
	if len(vertices) == 0 {
		return []StartDate{}, nil
	}

	if err := graph.ValidateAcyclic(vertices, edges); err != nil {
		return nil, fmt.Errorf("compute earliest start dates: %w", err)
	}

	t0 := StartOfDay(now)
	durations := graph.Durations(vertices)

	known := make([]graph.Edge, 0, len(edges))
	for _, e := range edges {
		_, fromOK := durations[e.From]
		_, toOK := durations[e.To]
		if fromOK && toOK {
			known = append(known, e)
		}
	}
	m := graph.BuildFromVertices(vertices, known)

	indegree := make(map[graph.TaskID]int, len(m.Indegree))
	for id, deg := range m.Indegree {
		indegree[id] = deg
	}

	queue := m.Roots()
	earliestStart := make(map[graph.TaskID]time.Time, len(m.Order))
	earliestFinish := make(map[graph.TaskID]time.Time, len(m.Order))

	processed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed++

		start := t0
		for _, parent := range m.Parents[id] {
			if finish, ok := earliestFinish[parent]; ok && finish.After(start) {
				start = finish
			}
		}
		earliestStart[id] = start
		earliestFinish[id] = AddDays(start, durations[id])

		for _, child := range m.Children[id] {
			indegree[child]--
			if indegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if processed != len(m.Order) {
		return nil, fmt.Errorf("compute earliest start dates: %w (%d of %d tasks scheduled)",
			&graph.CycleError{}, processed, len(m.Order))
	}

	result := make([]StartDate, 0, len(vertices))
	seen := make(map[graph.TaskID]bool, len(vertices))
	for _, v := range vertices {
		if seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		result = append(result, StartDate{
			ID:             v.ID,
			EarliestStart:  earliestStart[v.ID],
			EarliestFinish: earliestFinish[v.ID],
		})
	}
	return result, nil
}

// Waves groups projected tasks by earliest start date, earliest first.
func Waves(starts []StartDate) []Wave {
	groups := make(map[time.Time][]graph.TaskID)
	for _, s := range starts {
		groups[s.EarliestStart] = append(groups[s.EarliestStart], s.ID)
	}

	days := make([]time.Time, 0, len(groups))
	for day := range groups {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	waves := make([]Wave, len(days))
	for i, day := range days {
		ids := groups[day]
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
		waves[i] = Wave{Index: i, Start: day, TaskIDs: ids}
	}
	return waves
}
