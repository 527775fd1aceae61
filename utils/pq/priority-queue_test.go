package pq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func drain(q *PriorityQueue[int]) (got []int) {
	for !q.IsEmpty() {
		got = append(got, q.GetNext())
	}
	return
}

func TestOrderAndDedup(t *testing.T) {
	q := Empty(func(a, b int) bool { return a < b })
	for _, x := range []int{5, 1, 4, 1, 3, 5} {
		q.Add(x)
	}

	assert.Equal(t, 4, q.Len())
	assert.True(t, q.Contains(4))
	assert.False(t, q.Contains(2))
	assert.Equal(t, []int{1, 3, 4, 5}, drain(&q))

	// Popped elements may be queued again.
	q.Add(1)
	assert.Equal(t, 1, q.GetNext())
}

func TestFix(t *testing.T) {
	prio := map[string]int{"a": 1, "b": 2, "c": 3}
	q := Empty(func(a, b string) bool { return prio[a] < prio[b] })
	for s := range prio {
		q.Add(s)
	}

	prio["c"] = 0
	assert.True(t, q.Fix("c"))
	assert.False(t, q.Fix("d"))
	assert.Equal(t, "c", q.GetNext())
	assert.Equal(t, "a", q.GetNext())
}
