package progress

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindCycleAcyclic(t *testing.T) {
	require.Empty(t, FindCycle([]int{1, 2, 3}, chain(70, 1, 2, 3)))
}

func TestFindCycleReportsBlockedLessons(t *testing.T) {
	edges := append(chain(70, 1, 2, 3), Edge{SourceOrder: 3, TargetOrder: 2, RequiredPercentage: 70})
	require.Equal(t, []int{2, 3}, FindCycle([]int{1, 2, 3}, edges))
}

func TestFindCycleIgnoresOrphans(t *testing.T) {
	edges := []Edge{{SourceOrder: 7, TargetOrder: 1, RequiredPercentage: 50}, {SourceOrder: 1, TargetOrder: 7, RequiredPercentage: 50}}
	require.Empty(t, FindCycle([]int{1, 2}, edges))
}
