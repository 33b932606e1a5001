// Package progress computes which lessons of a course a learner can access,
// given the course's prerequisite edges and the learner's lesson grades.
package progress

import "sort"

// Edge is a prerequisite between two lessons of the same course, addressed by order.
type Edge struct {
	SourceOrder        int
	TargetOrder        int
	RequiredPercentage float64
}

// Requirement is the outgoing half of an edge: the target lesson and the grade
// the source lesson must reach for the edge to count.
type Requirement struct {
	TargetOrder        int
	RequiredPercentage float64
}

// Graph holds the valid prerequisite edges of a course.
type Graph struct {
	Orders    []int
	Adjacency map[int][]Requirement
	InDegree  map[int]int
}

// BuildGraph indexes the edges whose endpoints are both existing lesson orders.
// Edges pointing at missing lessons and self-loops are dropped without error.
func BuildGraph(orders []int, edges []Edge) Graph {
	known := make(map[int]struct{}, len(orders))
	unique := make([]int, 0, len(orders))
	for _, order := range orders {
		if _, seen := known[order]; seen {
			continue
		}
		known[order] = struct{}{}
		unique = append(unique, order)
	}
	sort.Ints(unique)

	g := Graph{
		Orders:    unique,
		Adjacency: make(map[int][]Requirement),
		InDegree:  make(map[int]int, len(unique)),
	}

	for _, edge := range edges {
		if edge.SourceOrder == edge.TargetOrder {
			continue
		}
		if _, ok := known[edge.SourceOrder]; !ok {
			continue
		}
		if _, ok := known[edge.TargetOrder]; !ok {
			continue
		}
		g.Adjacency[edge.SourceOrder] = append(g.Adjacency[edge.SourceOrder], Requirement{
			TargetOrder:        edge.TargetOrder,
			RequiredPercentage: edge.RequiredPercentage,
		})
		g.InDegree[edge.TargetOrder]++
	}

	return g
}

// Roots returns the lessons without prerequisites, in ascending order.
func (g Graph) Roots() []int {
	roots := make([]int, 0, len(g.Orders))
	for _, order := range g.Orders {
		if g.InDegree[order] == 0 {
			roots = append(roots, order)
		}
	}
	return roots
}

// HasPrerequisites reports whether any valid edge points at the lesson.
func (g Graph) HasPrerequisites(order int) bool {
	return g.InDegree[order] > 0
}
