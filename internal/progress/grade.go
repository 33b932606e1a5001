package progress

import "math"

// Epsilon absorbs floating point noise when comparing grades against thresholds.
const Epsilon = 0.01

// ClampPercentage bounds a grade to [0, 100]. NaN is treated as 0.
func ClampPercentage(value float64) float64 {
	switch {
	case math.IsNaN(value):
		return 0
	case value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}

// MeetsRequirement reports whether grade satisfies a prerequisite threshold.
// Grades strictly inside the Epsilon band below the threshold still count, so
// 69.995 meets 70 while 69.99 does not.
func MeetsRequirement(grade, required float64) bool {
	return grade > required-Epsilon
}

// PercentageChanged reports whether two stored grades differ beyond Epsilon.
func PercentageChanged(previous, current float64) bool {
	return math.Abs(previous-current) > Epsilon
}

// WeightedItem is one gradable piece of a lesson: its weight and the best
// fraction of it the learner has achieved.
type WeightedItem struct {
	Weight    float64
	BestRatio float64
}

// WeightedPercentage combines lesson items into a 0-100 grade. Lessons without
// weighted content grade as 0.
func WeightedPercentage(items []WeightedItem) float64 {
	var earned, total float64
	for _, item := range items {
		if item.Weight <= 0 {
			continue
		}
		ratio := item.BestRatio
		if math.IsNaN(ratio) || ratio < 0 {
			ratio = 0
		}
		if ratio > 1 {
			ratio = 1
		}
		earned += item.Weight * ratio
		total += item.Weight
	}
	if total == 0 {
		return 0
	}
	return ClampPercentage(100 * earned / total)
}
