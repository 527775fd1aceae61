package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// sample has the loops 0-1-4, 2-3-7 and 5-6, and a diamond below 9.
var sample = Of(func(i int) []int {
	return map[int][]int{
		0:  {1, 8},
		1:  {4, 5, 2},
		2:  {6, 3, 9},
		3:  {2, 7},
		4:  {0, 5},
		5:  {6},
		6:  {5},
		7:  {3, 6},
		9:  {10, 11},
		10: {12, 13},
		11: {12, 13},
	}[i]
})

func TestReachable(t *testing.T) {
	assert.Equal(t, []int{9, 10, 11, 12, 13}, sample.Reachable(9))
	assert.Equal(t, []int{5, 6}, sample.Reachable(5))
	assert.Len(t, sample.Reachable(0), 14)
}

func TestDominators(t *testing.T) {
	dom := sample.Dominators(0)

	idoms := map[int]int{
		1: 0, 8: 0, 4: 1, 2: 1, 5: 1, 6: 1,
		3: 2, 9: 2, 7: 3, 10: 9, 11: 9, 12: 9, 13: 9,
	}
	for n, want := range idoms {
		got, ok := dom.Idom(n)
		if assert.True(t, ok, "%d has an immediate dominator", n) {
			assert.Equal(t, want, got, "idom(%d)", n)
		}
	}
	_, ok := dom.Idom(0)
	assert.False(t, ok, "the root has no immediate dominator")

	assert.True(t, dom.Dominates(2, 7))
	assert.True(t, dom.Dominates(6, 6))
	assert.False(t, dom.Dominates(5, 6))
	assert.False(t, dom.Dominates(4, 0))

	assert.Equal(t, 0, dom.Common(1, 8))
	assert.Equal(t, 2, dom.Common(3, 9))
	assert.Equal(t, 1, dom.Common(5, 6))
	assert.Equal(t, 9, dom.Common(12, 13))

	assert.Panics(t, func() { dom.Idom(42) })
}
