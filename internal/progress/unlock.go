package progress

// Result is the outcome of an unlock propagation run.
type Result struct {
	Grades   map[int]float64
	Unlocked map[int]bool
}

// IsUnlocked reports whether the lesson at order is reachable.
func (r Result) IsUnlocked(order int) bool {
	return r.Unlocked[order]
}

// Propagate walks the graph breadth-first from every lesson without
// prerequisites. An edge counts once its source is unlocked and the source
// grade meets the edge threshold; a lesson unlocks when all of its edges count.
// Lessons on a cycle never unlock. Missing grades count as 0.
func Propagate(g Graph, grades map[int]float64) Result {
	result := Result{
		Grades:   make(map[int]float64, len(g.Orders)),
		Unlocked: make(map[int]bool, len(g.Orders)),
	}
	for _, order := range g.Orders {
		result.Grades[order] = ClampPercentage(grades[order])
		result.Unlocked[order] = false
	}

	remaining := make(map[int]int, len(g.InDegree))
	for order, degree := range g.InDegree {
		remaining[order] = degree
	}

	queue := g.Roots()
	for _, order := range queue {
		result.Unlocked[order] = true
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		grade := result.Grades[current]
		for _, req := range g.Adjacency[current] {
			if !MeetsRequirement(grade, req.RequiredPercentage) {
				continue
			}
			remaining[req.TargetOrder]--
			if remaining[req.TargetOrder] == 0 && !result.Unlocked[req.TargetOrder] {
				result.Unlocked[req.TargetOrder] = true
				queue = append(queue, req.TargetOrder)
			}
		}
	}

	return result
}
