package progress

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func chain(required float64, orders ...int) []Edge {
	edges := make([]Edge, 0, len(orders))
	for i := 1; i < len(orders); i++ {
		edges = append(edges, Edge{SourceOrder: orders[i-1], TargetOrder: orders[i], RequiredPercentage: required})
	}
	return edges
}

func TestPropagateWithoutPrerequisitesUnlocksEverything(t *testing.T) {
	g := BuildGraph([]int{1, 2, 3}, nil)
	result := Propagate(g, map[int]float64{1: 0, 2: 12.5})

	for _, order := range []int{1, 2, 3} {
		require.True(t, result.IsUnlocked(order), "lesson %d", order)
	}
}

func TestPropagateThresholdBoundary(t *testing.T) {
	edges := []Edge{{SourceOrder: 1, TargetOrder: 2, RequiredPercentage: 70}}
	g := BuildGraph([]int{1, 2}, edges)

	require.False(t, Propagate(g, map[int]float64{1: 69.99}).IsUnlocked(2))
	require.True(t, Propagate(g, map[int]float64{1: 69.995}).IsUnlocked(2))
	require.True(t, Propagate(g, map[int]float64{1: 70}).IsUnlocked(2))
}

func TestPropagateChainStopsAtUnmetLesson(t *testing.T) {
	g := BuildGraph([]int{1, 2, 3}, chain(70, 1, 2, 3))
	result := Propagate(g, map[int]float64{1: 80, 2: 0})

	require.True(t, result.IsUnlocked(1))
	require.True(t, result.IsUnlocked(2))
	require.False(t, result.IsUnlocked(3))
}

func TestPropagateRequiresAllPrerequisites(t *testing.T) {
	edges := []Edge{
		{SourceOrder: 1, TargetOrder: 3, RequiredPercentage: 70},
		{SourceOrder: 2, TargetOrder: 3, RequiredPercentage: 80},
	}
	g := BuildGraph([]int{1, 2, 3}, edges)

	require.False(t, Propagate(g, map[int]float64{1: 90, 2: 50}).IsUnlocked(3))
	require.False(t, Propagate(g, map[int]float64{1: 10, 2: 95}).IsUnlocked(3))
	require.True(t, Propagate(g, map[int]float64{1: 70, 2: 80}).IsUnlocked(3))
}

func TestPropagateLockedSourceDoesNotCount(t *testing.T) {
	// Lesson 2 has a high grade from before it was gated, but lesson 1 is unmet.
	g := BuildGraph([]int{1, 2, 3}, chain(70, 1, 2, 3))
	result := Propagate(g, map[int]float64{1: 10, 2: 100})

	require.False(t, result.IsUnlocked(2))
	require.False(t, result.IsUnlocked(3))
}

func TestPropagateIgnoresOrphanedEdges(t *testing.T) {
	edges := append(chain(70, 1, 2), Edge{SourceOrder: 4, TargetOrder: 3, RequiredPercentage: 100})
	g := BuildGraph([]int{1, 2, 3}, edges)
	result := Propagate(g, map[int]float64{1: 75})

	require.True(t, result.IsUnlocked(2))
	require.True(t, result.IsUnlocked(3))
}

func TestPropagateCycleStaysLocked(t *testing.T) {
	edges := []Edge{
		{SourceOrder: 1, TargetOrder: 2, RequiredPercentage: 0},
		{SourceOrder: 2, TargetOrder: 3, RequiredPercentage: 0},
		{SourceOrder: 3, TargetOrder: 2, RequiredPercentage: 0},
	}
	g := BuildGraph([]int{1, 2, 3}, edges)
	result := Propagate(g, map[int]float64{1: 100, 2: 100, 3: 100})

	require.True(t, result.IsUnlocked(1))
	require.False(t, result.IsUnlocked(2))
	require.False(t, result.IsUnlocked(3))
}

func TestPropagateClampsGrades(t *testing.T) {
	g := BuildGraph([]int{1, 2}, chain(100, 1, 2))
	result := Propagate(g, map[int]float64{1: 140, 2: -5})

	require.Equal(t, 100.0, result.Grades[1])
	require.Equal(t, 0.0, result.Grades[2])
	require.True(t, result.IsUnlocked(2))
}

func TestPropagateIsDeterministic(t *testing.T) {
	g := BuildGraph([]int{1, 2, 3, 4}, []Edge{
		{SourceOrder: 1, TargetOrder: 2, RequiredPercentage: 50},
		{SourceOrder: 1, TargetOrder: 3, RequiredPercentage: 50},
		{SourceOrder: 2, TargetOrder: 4, RequiredPercentage: 50},
		{SourceOrder: 3, TargetOrder: 4, RequiredPercentage: 50},
	})
	grades := map[int]float64{1: 60, 2: 55, 3: 49}

	first := Propagate(g, grades)
	second := Propagate(g, grades)
	require.Equal(t, first, second)
	require.False(t, first.IsUnlocked(4))
}
