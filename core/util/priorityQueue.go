package util

import (
	"container/heap"
)

// PriorityQueue is a min-heap ordered by the less function it was built with.
type PriorityQueue[T any] struct {
	items []T
	less  func(a, b T) bool
}

func NewPriorityQueue[T any](capa int, less func(a, b T) bool) *PriorityQueue[T] {
	return &PriorityQueue[T]{items: make([]T, 0, capa), less: less}
}

type pqHeap[T any] struct{ *PriorityQueue[T] }

func (h pqHeap[T]) Len() int           { return len(h.items) }
func (h pqHeap[T]) Less(i, j int) bool { return h.less(h.items[i], h.items[j]) }
func (h pqHeap[T]) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h pqHeap[T]) Push(x interface{}) { h.items = append(h.items, x.(T)) }
func (h pqHeap[T]) Pop() interface{} {
	n := len(h.items)
	ans := h.items[n-1]
	h.items = h.items[0 : n-1]
	return ans
}

func (pq *PriorityQueue[T]) Len() int { return len(pq.items) }

func (pq *PriorityQueue[T]) Push(x T) { heap.Push(pqHeap[T]{pq}, x) }

func (pq *PriorityQueue[T]) Pop() T { return heap.Pop(pqHeap[T]{pq}).(T) }

func (pq *PriorityQueue[T]) Top() T { return pq.items[0] }

// UpdateTop restores heap order after the top element changed in place.
func (pq *PriorityQueue[T]) UpdateTop() T {
	heap.Fix(pqHeap[T]{pq}, 0)
	return pq.items[0]
}

func (pq *PriorityQueue[T]) Clear() { pq.items = pq.items[:0] }
