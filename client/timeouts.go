package client

import (
	"container/heap"
	"time"
)

// timeoutIndex orders calls with a deadline by (deadline, seq id, admission
// order). Each call records its heap position so it can leave in O(log n)
// the moment it finishes.
type timeoutIndex []*Call

func (t timeoutIndex) Len() int { return len(t) }

func (t timeoutIndex) Less(i, j int) bool {
	a, b := t[i], t[j]
	if !a.deadline.Equal(b.deadline) {
		return a.deadline.Before(b.deadline)
	}
	if a.seqID != b.seqID {
		return a.seqID < b.seqID
	}
	return a.admitted < b.admitted
}

func (t timeoutIndex) Swap(i, j int) {
	t[i], t[j] = t[j], t[i]
	t[i].heapIndex = i
	t[j].heapIndex = j
}

func (t *timeoutIndex) Push(x any) {
	c := x.(*Call)
	c.heapIndex = len(*t)
	*t = append(*t, c)
}

func (t *timeoutIndex) Pop() any {
	old := *t
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	c.heapIndex = -1
	*t = old[:n-1]
	return c
}

func (t *timeoutIndex) insert(c *Call) {
	heap.Push(t, c)
}

func (t *timeoutIndex) remove(c *Call) {
	if c.heapIndex < 0 || c.heapIndex >= len(*t) || (*t)[c.heapIndex] != c {
		return
	}
	heap.Remove(t, c.heapIndex)
}

// peek returns the call with the nearest deadline, or nil.
func (t timeoutIndex) peek() *Call {
	if len(t) == 0 {
		return nil
	}
	return t[0]
}

// popExpired removes and returns the nearest call if its deadline is not
// after now.
func (t *timeoutIndex) popExpired(now time.Time) *Call {
	c := t.peek()
	if c == nil || c.deadline.After(now) {
		return nil
	}
	heap.Pop(t)
	return c
}

// next returns how long until the nearest deadline, zero if one is overdue,
// or -1 when nothing is tracked.
func (t timeoutIndex) next(now time.Time) time.Duration {
	c := t.peek()
	if c == nil {
		return -1
	}
	if d := c.deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}
