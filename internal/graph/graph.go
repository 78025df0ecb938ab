package graph

// Build constructs the adjacency model for the given ids and edges.
// Edge endpoints missing from ids are added to the maps rather than
// rejected; Known reports whether an id came from the supplied set.
func Build(ids []TaskID, edges []Edge) *Model {
	m := &Model{
		Children: make(map[TaskID][]TaskID),
		Parents:  make(map[TaskID][]TaskID),
		Indegree: make(map[TaskID]int),
		known:    make(map[TaskID]bool, len(ids)),
	}

	for _, id := range ids {
		if m.known[id] {
			continue
		}
		m.known[id] = true
		m.touch(id)
	}

	for _, e := range edges {
		m.touch(e.From)
		m.touch(e.To)
		m.Children[e.From] = append(m.Children[e.From], e.To)
		m.Parents[e.To] = append(m.Parents[e.To], e.From)
		m.Indegree[e.To]++
	}

	return m
}

// BuildFromVertices is Build over the ids of vertices.
func BuildFromVertices(vertices []Vertex, edges []Edge) *Model {
	return Build(IDs(vertices), edges)
}

func (m *Model) touch(id TaskID) {
	if _, ok := m.Indegree[id]; ok {
		return
	}
	m.Indegree[id] = 0
	m.Order = append(m.Order, id)
}

// Known reports whether id was part of the supplied vertex set.
func (m *Model) Known(id TaskID) bool {
	return m.known[id]
}

// Roots returns ids with no incoming edges, in model order.
func (m *Model) Roots() []TaskID {
	var roots []TaskID
	for _, id := range m.Order {
		if m.Indegree[id] == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// IDs returns the ids of vertices in the supplied order.
func IDs(vertices []Vertex) []TaskID {
	ids := make([]TaskID, len(vertices))
	for i, v := range vertices {
		ids[i] = v.ID
	}
	return ids
}

// Durations maps each vertex to its normalized duration in days.
func Durations(vertices []Vertex) map[TaskID]int {
	d := make(map[TaskID]int, len(vertices))
	for _, v := range vertices {
		d[v.ID] = NormalizeDuration(v.DurationDays)
	}
	return d
}

// NormalizeDuration coerces missing or non-positive estimates to one day.
func NormalizeDuration(days int) int {
	if days < 1 {
		return 1
	}
	return days
}

// Dedupe drops repeated (from, to) pairs, keeping first occurrences.
func Dedupe(edges []Edge) []Edge {
	seen := make(map[Edge]bool, len(edges))
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
