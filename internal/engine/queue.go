package engine

import (
	"github.com/roach88/contractcfg/internal/ir"
)

// dirtyQueue holds the (node, line) pairs awaiting recomputation.
//
// One bucket per compute node, indexed by scheduling position. Marking an
// already dirty pair is a no-op, so a line is recomputed once per node no
// matter how many of its inputs changed in between.
//
// dirtyQueue is not safe for concurrent use; it lives inside one
// transaction.
type dirtyQueue struct {
	buckets []map[ir.LineID]struct{}
	size    int
}

// newDirtyQueue creates an empty queue for a graph of n nodes.
func newDirtyQueue(n int) *dirtyQueue {
	q := &dirtyQueue{buckets: make([]map[ir.LineID]struct{}, n)}
	for i := range q.buckets {
		q.buckets[i] = make(map[ir.LineID]struct{})
	}
	return q
}

// Mark adds the pair. Returns false if it was already present.
func (q *dirtyQueue) Mark(node int, id ir.LineID) bool {
	if _, ok := q.buckets[node][id]; ok {
		return false
	}
	q.buckets[node][id] = struct{}{}
	q.size++
	return true
}

// First returns the earliest node with pending lines.
// Returns (-1, false) when the queue is empty.
func (q *dirtyQueue) First() (int, bool) {
	if q.size == 0 {
		return -1, false
	}
	for i, b := range q.buckets {
		if len(b) > 0 {
			return i, true
		}
	}
	return -1, false
}

// Lines returns the pending lines of a node in no particular order.
func (q *dirtyQueue) Lines(node int) []ir.LineID {
	out := make([]ir.LineID, 0, len(q.buckets[node]))
	for id := range q.buckets[node] {
		out = append(out, id)
	}
	return out
}

// Take removes the pair.
func (q *dirtyQueue) Take(node int, id ir.LineID) {
	if _, ok := q.buckets[node][id]; ok {
		delete(q.buckets[node], id)
		q.size--
	}
}

// Drop removes a line from every bucket. Used when the line is deleted.
func (q *dirtyQueue) Drop(id ir.LineID) {
	for _, b := range q.buckets {
		if _, ok := b[id]; ok {
			delete(b, id)
			q.size--
		}
	}
}

// Len returns the number of pending pairs.
func (q *dirtyQueue) Len() int {
	return q.size
}
