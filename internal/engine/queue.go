package engine

import (
	"container/heap"
	"sync"
)

// Admission is one entry of the admission stream: a request from Source to
// Destination entering the network at simulated time Time.
type Admission struct {
	Time        float64 `json:"time" yaml:"time"`
	Source      string  `json:"source" yaml:"source"`
	Destination string  `json:"destination" yaml:"destination"`

	seq uint64
}

// AdmissionQueue is a priority queue of admissions ordered by time, then by
// the order they were scheduled in.
type AdmissionQueue struct {
	items []Admission
	next  uint64
	mu    sync.RWMutex
}

// NewAdmissionQueue creates a new admission queue
func NewAdmissionQueue() *AdmissionQueue {
	q := &AdmissionQueue{
		items: make([]Admission, 0),
	}
	heap.Init(q)
	return q
}

// Len returns the number of admissions in the queue
func (q *AdmissionQueue) Len() int {
	return len(q.items)
}

// Less compares two admissions by time and scheduling order
func (q *AdmissionQueue) Less(i, j int) bool {
	if q.items[i].Time != q.items[j].Time {
		return q.items[i].Time < q.items[j].Time
	}
	return q.items[i].seq < q.items[j].seq
}

// Swap swaps two admissions in the queue
func (q *AdmissionQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

// Push adds an admission to the queue
func (q *AdmissionQueue) Push(x interface{}) {
	q.items = append(q.items, x.(Admission))
}

// Pop removes and returns the last admission of the backing slice
func (q *AdmissionQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	a := old[n-1]
	q.items = old[0 : n-1]
	return a
}

// Schedule adds an admission to the queue (thread-safe)
func (q *AdmissionQueue) Schedule(a Admission) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.next++
	a.seq = q.next
	heap.Push(q, a)
}

// ScheduleAll adds admissions in slice order
func (q *AdmissionQueue) ScheduleAll(as []Admission) {
	for _, a := range as {
		q.Schedule(a)
	}
}

// Next removes and returns the earliest admission (thread-safe)
func (q *AdmissionQueue) Next() (Admission, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Len() == 0 {
		return Admission{}, false
	}
	return heap.Pop(q).(Admission), true
}

// Peek returns the earliest admission without removing it (thread-safe)
func (q *AdmissionQueue) Peek() (Admission, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.Len() == 0 {
		return Admission{}, false
	}
	return q.items[0], true
}

// Clear removes all admissions from the queue (thread-safe)
func (q *AdmissionQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = make([]Admission, 0)
	heap.Init(q)
}

// Size returns the current queue size (thread-safe)
func (q *AdmissionQueue) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.Len()
}

// IsEmpty returns true if the queue is empty (thread-safe)
func (q *AdmissionQueue) IsEmpty() bool {
	return q.Size() == 0
}
