// Package queue holds the per-doctor priority queues and the wait-time estimate derived from them.
package queue

import (
	"container/heap"
	"sort"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
)

// Less reports whether a should be seen before b: higher priority first, then the earlier
// scheduled time, then creation order, then id. The order is total so draining is deterministic.
func Less(a, b *entities.Patient) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.ScheduledAt.Equal(b.ScheduledAt) {
		return a.ScheduledAt.Before(b.ScheduledAt)
	}
	if a.Sequence != b.Sequence {
		return a.Sequence < b.Sequence
	}
	return a.ID < b.ID
}

// patientHeap adapts a slice of patients to container/heap using Less.
type patientHeap []*entities.Patient

func (h patientHeap) Len() int           { return len(h) }
func (h patientHeap) Less(i, j int) bool { return Less(h[i], h[j]) }
func (h patientHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *patientHeap) Push(x any) {
	*h = append(*h, x.(*entities.Patient))
}

func (h *patientHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return p
}

// PatientQueue is a max-priority queue of patients. It is not safe for concurrent use;
// DoctorQueue adds the locking.
type PatientQueue struct {
	items patientHeap
}

// NewPatientQueue returns an empty queue
func NewPatientQueue() *PatientQueue {
	return &PatientQueue{}
}

// Push adds a patient in O(log n)
func (q *PatientQueue) Push(p *entities.Patient) {
	heap.Push(&q.items, p)
}

// PopHighest removes and returns the patient that should be seen next.
// The boolean is false when the queue is empty.
func (q *PatientQueue) PopHighest() (*entities.Patient, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	return heap.Pop(&q.items).(*entities.Patient), true
}

// Peek returns the next patient without removing it
func (q *PatientQueue) Peek() (*entities.Patient, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[0], true
}

// Size returns the number of queued patients
func (q *PatientQueue) Size() int {
	return len(q.items)
}

// Snapshot returns copies of the queued patients in consultation order without
// modifying the queue.
func (q *PatientQueue) Snapshot() []entities.Patient {
	out := make([]entities.Patient, len(q.items))
	for i, p := range q.items {
		out[i] = *p
	}
	sort.Slice(out, func(i, j int) bool { return Less(&out[i], &out[j]) })
	return out
}
