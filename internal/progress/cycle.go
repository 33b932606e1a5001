package progress

import "sort"

// FindCycle returns the lessons that sit on or behind a prerequisite cycle,
// using Kahn's algorithm over the valid edges. An empty slice means the graph
// is acyclic.
func FindCycle(orders []int, edges []Edge) []int {
	g := BuildGraph(orders, edges)

	degree := make(map[int]int, len(g.InDegree))
	for order, d := range g.InDegree {
		degree[order] = d
	}

	queue := g.Roots()
	visited := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		visited++
		for _, req := range g.Adjacency[current] {
			degree[req.TargetOrder]--
			if degree[req.TargetOrder] == 0 {
				queue = append(queue, req.TargetOrder)
			}
		}
	}

	if visited == len(g.Orders) {
		return nil
	}

	blocked := make([]int, 0, len(g.Orders)-visited)
	for order, d := range degree {
		if d > 0 {
			blocked = append(blocked, order)
		}
	}
	sort.Ints(blocked)
	return blocked
}
