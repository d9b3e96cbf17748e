// Package indexheap provides a binary heap of slot indices ordered
// largest-first, so the hole nearest the occupied tail surfaces at the
// top.
package indexheap

import "container/heap"

// intHeap implements heap.Interface so that the largest index
// surfaces first.
type intHeap []int

func (h intHeap) Len() int            { return len(h) }
func (h intHeap) Less(i, j int) bool  { return h[i] > h[j] }
func (h intHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *intHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *intHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Heap is a largest-first heap of int indices. The zero value is an
// empty heap ready to use.
type Heap struct {
	h intHeap
}

// Push adds idx to the heap.
func (m *Heap) Push(idx int) {
	heap.Push(&m.h, idx)
}

// Pop removes and returns the largest index.
func (m *Heap) Pop() (int, bool) {
	if len(m.h) == 0 {
		return 0, false
	}
	return heap.Pop(&m.h).(int), true
}

// Peek returns the largest index without removing it.
func (m *Heap) Peek() (int, bool) {
	if len(m.h) == 0 {
		return 0, false
	}
	return m.h[0], true
}

// TakeAny removes and returns an arbitrary index in O(1). It takes the
// last element of the backing array, which keeps the heap ordering
// intact without a sift.
func (m *Heap) TakeAny() (int, bool) {
	n := len(m.h)
	if n == 0 {
		return 0, false
	}
	idx := m.h[n-1]
	m.h = m.h[:n-1]
	return idx, true
}

// Size returns the number of indices in the heap.
func (m *Heap) Size() int {
	return len(m.h)
}

// Clear empties the heap keeping the backing array.
func (m *Heap) Clear() {
	m.h = m.h[:0]
}
