// Package minheap provides a binary min-heap with a position index, so that
// membership is O(1) and any queued element can be removed in O(log n).
//
// Priorities are read live through a cost function. A queued element's cost
// must not change while it sits in the heap: to lower it, Remove the element,
// change the cost, then Insert it again (decrease-key). Update does both steps
// for a cost that was already changed, since removal never compares the
// removed element.
package minheap

import "errors"

var (
	// ErrAlreadyQueued is returned when inserting an element that is present.
	ErrAlreadyQueued = errors.New("minheap: element already queued")

	// ErrNotQueued is returned when updating an element that is absent.
	ErrNotQueued = errors.New("minheap: element not queued")
)

// Heap is an indexed min-heap over keys of type K ordered by cost alone.
// Ties are broken arbitrarily.
type Heap[K comparable] struct {
	items []K
	index map[K]int
	cost  func(K) float64
}

// New creates an empty heap. capacity is a sizing hint.
func New[K comparable](cost func(K) float64, capacity int) *Heap[K] {
	if capacity < 0 {
		capacity = 0
	}
	return &Heap[K]{
		items: make([]K, 0, capacity),
		index: make(map[K]int, capacity),
		cost:  cost,
	}
}

// Len returns the number of queued elements
func (h *Heap[K]) Len() int {
	return len(h.items)
}

// Contains reports whether k is queued
func (h *Heap[K]) Contains(k K) bool {
	_, ok := h.index[k]
	return ok
}

// Insert queues k at its current cost.
func (h *Heap[K]) Insert(k K) error {
	if _, ok := h.index[k]; ok {
		return ErrAlreadyQueued
	}
	h.items = append(h.items, k)
	last := len(h.items) - 1
	h.index[k] = last
	h.up(last)
	return nil
}

// Peek returns the minimum-cost element without removing it
func (h *Heap[K]) Peek() (K, bool) {
	if len(h.items) == 0 {
		var zero K
		return zero, false
	}
	return h.items[0], true
}

// ExtractMin removes and returns the minimum-cost element
func (h *Heap[K]) ExtractMin() (K, bool) {
	if len(h.items) == 0 {
		var zero K
		return zero, false
	}
	return h.removeAt(0), true
}

// Remove drops k from the heap. It reports false if k was not queued.
func (h *Heap[K]) Remove(k K) bool {
	i, ok := h.index[k]
	if !ok {
		return false
	}
	h.removeAt(i)
	return true
}

// Update re-positions k after the caller changed its cost.
func (h *Heap[K]) Update(k K) error {
	if !h.Remove(k) {
		return ErrNotQueued
	}
	return h.Insert(k)
}

// Reset empties the heap, keeping allocated storage
func (h *Heap[K]) Reset() {
	clear(h.index)
	h.items = h.items[:0]
}

// removeAt swaps position i with the last slot, shrinks the heap and restores
// order around the moved element. The moved element can violate the heap
// property in either direction, so sift down first and sift up only when it
// stayed put.
func (h *Heap[K]) removeAt(i int) K {
	last := len(h.items) - 1
	k := h.items[i]
	if i != last {
		h.swap(i, last)
	}
	var zero K
	h.items[last] = zero
	h.items = h.items[:last]
	delete(h.index, k)

	if i != last {
		if !h.down(i) {
			h.up(i)
		}
	}
	return k
}

func (h *Heap[K]) less(i, j int) bool {
	return h.cost(h.items[i]) < h.cost(h.items[j])
}

func (h *Heap[K]) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.index[h.items[i]] = i
	h.index[h.items[j]] = j
}

func (h *Heap[K]) up(j int) {
	for j > 0 {
		i := (j - 1) / 2
		if !h.less(j, i) {
			break
		}
		h.swap(i, j)
		j = i
	}
}

// down reports whether the element at i0 moved.
func (h *Heap[K]) down(i0 int) bool {
	n := len(h.items)
	i := i0
	for {
		l := 2*i + 1
		if l >= n {
			break
		}
		j := l
		if r := l + 1; r < n && h.less(r, l) {
			j = r
		}
		if !h.less(j, i) {
			break
		}
		h.swap(i, j)
		i = j
	}
	return i > i0
}
