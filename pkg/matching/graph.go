package matching

import (
	"context"
	"slices"

	"github.com/Ramsey-B/nettle/internal/tracing"
	"github.com/Ramsey-B/nettle/pkg/models"
)

// MatchGraph is an undirected graph over entity indices. Adjacency is a set,
// so connecting the same pair twice is a no-op.
type MatchGraph struct {
	adjacency map[int]map[int]struct{}
	nodes     []int
}

// NewMatchGraph creates an empty graph
func NewMatchGraph() *MatchGraph {
	return &MatchGraph{adjacency: make(map[int]map[int]struct{})}
}

// BuildGraph adds every recorded match of a stage, walking workers in reverse
// and rows in descending order. Components do not depend on that order.
func BuildGraph(set *MatchSet) *MatchGraph {
	g := NewMatchGraph()
	for w := len(set.Workers) - 1; w >= 0; w-- {
		matches := set.Workers[w].Matches
		rows := make([]int, 0, len(matches))
		for i := range matches {
			rows = append(rows, i)
		}
		slices.Sort(rows)
		slices.Reverse(rows)
		for _, i := range rows {
			for _, j := range matches[i] {
				g.Connect(i, j)
			}
		}
	}
	return g
}

func (g *MatchGraph) addNode(i int) {
	if _, ok := g.adjacency[i]; ok {
		return
	}
	g.adjacency[i] = make(map[int]struct{})
	g.nodes = append(g.nodes, i)
}

// Connect adds an undirected edge between i and j
func (g *MatchGraph) Connect(i, j int) {
	g.addNode(i)
	g.addNode(j)
	if i == j {
		return
	}
	g.adjacency[i][j] = struct{}{}
	g.adjacency[j][i] = struct{}{}
}

// Nodes returns the nodes in insertion order
func (g *MatchGraph) Nodes() []int {
	return append([]int(nil), g.nodes...)
}

// Neighbors returns the neighbours of i in ascending order
func (g *MatchGraph) Neighbors(i int) []int {
	neighbors := make([]int, 0, len(g.adjacency[i]))
	for j := range g.adjacency[i] {
		neighbors = append(neighbors, j)
	}
	slices.Sort(neighbors)
	return neighbors
}

// Components returns the connected components in breadth-first order. The
// first node of each component is its root.
func (g *MatchGraph) Components() [][]int {
	visited := make(map[int]bool, len(g.nodes))
	var components [][]int
	for _, root := range g.nodes {
		if visited[root] {
			continue
		}
		visited[root] = true
		component := []int{root}
		queue := []int{root}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			for _, neighbor := range g.Neighbors(current) {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				component = append(component, neighbor)
				queue = append(queue, neighbor)
			}
		}
		components = append(components, component)
	}
	return components
}

// MergeComponents collapses every component into its root entity and returns
// the surviving entities in their original order, plus the number absorbed.
func MergeComponents(ctx context.Context, entities []*models.Entity, g *MatchGraph) ([]*models.Entity, int) {
	_, span := tracing.StartSpan(ctx, "matching.MergeComponents")
	defer span.End()

	absorbed := make(map[int]bool)
	for _, component := range g.Components() {
		root := entities[component[0]]
		for _, member := range component[1:] {
			root.Merge(entities[member])
			absorbed[member] = true
		}
	}

	merged := make([]*models.Entity, 0, len(entities)-len(absorbed))
	for i, entity := range entities {
		if !absorbed[i] {
			merged = append(merged, entity)
		}
	}
	return merged, len(absorbed)
}
