package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/contractcfg/internal/forest"
	"github.com/roach88/contractcfg/internal/ir"
)

// txn is the working state of one mutating engine call.
//
// It owns a private clone of the committed forest, the dirty queue and the
// step quota. The engine swaps the clone in only after the mutation and its
// flush both succeed.
type txn struct {
	f       *forest.Forest
	graph   *DepGraph
	queue   *dirtyQueue
	quota   *QuotaEnforcer
	guard   *CycleGuard
	catalog Catalog
	pricer  Pricer
	ranks   []ChildTypeRank
	logger  *slog.Logger

	// pins are (line, field) pairs supplied explicitly in this call; compute
	// nodes leave them alone.
	pins map[pin]struct{}

	// structural is set when lines were created, removed or relinked.
	structural bool
}

type pin struct {
	id    ir.LineID
	field Field
}

// touch records that field changed on line id and marks every dependent
// (node, line) pair dirty.
func (tx *txn) touch(id ir.LineID, field Field) {
	l := tx.f.Get(id)
	if l == nil {
		return
	}
	for _, c := range tx.graph.consumers[field] {
		switch c.rel {
		case RelSelf:
			tx.queue.Mark(c.node, id)
		case RelParent:
			for _, cid := range tx.f.ChildIDs(id) {
				tx.queue.Mark(c.node, cid)
			}
		case RelChildren:
			if p := l.ParentOptionID(); !p.IsZero() {
				tx.queue.Mark(c.node, p)
			}
		case RelDescendants:
			for _, a := range tx.f.Ancestors(id) {
				tx.queue.Mark(c.node, a)
			}
		}
	}
}

// touchChildren records a change of the child set of id.
func (tx *txn) touchChildren(id ir.LineID) {
	if id.IsZero() {
		return
	}
	tx.structural = true
	tx.touch(id, FieldChildren)
}

// markAll marks every node dirty for the line.
func (tx *txn) markAll(id ir.LineID) {
	for i := range tx.graph.nodes {
		tx.queue.Mark(i, id)
	}
}

// markNode marks a single node dirty for the line.
func (tx *txn) markNode(name string, id ir.LineID) {
	if i := tx.graph.index(name); i >= 0 {
		tx.queue.Mark(i, id)
	}
}

func (tx *txn) pin(id ir.LineID, field Field) {
	tx.pins[pin{id, field}] = struct{}{}
}

func (tx *txn) pinned(id ir.LineID, field Field) bool {
	_, ok := tx.pins[pin{id, field}]
	return ok
}

// next picks the pair to evaluate: the earliest dirty node in topological
// order, then the shallowest (top-down) or deepest (bottom-up) of its
// lines, ties broken by arena order.
func (tx *txn) next() (int, ir.LineID, bool) {
	for {
		node, ok := tx.queue.First()
		if !ok {
			return -1, "", false
		}

		type cand struct {
			id    ir.LineID
			depth int
			rank  int64
		}
		var cands []cand
		for _, id := range tx.queue.Lines(node) {
			if !tx.f.Has(id) {
				tx.queue.Take(node, id)
				continue
			}
			cands = append(cands, cand{id: id, depth: tx.f.Depth(id), rank: tx.f.Rank(id)})
		}
		if len(cands) == 0 {
			continue
		}

		dir := tx.graph.nodes[node].Direction
		best := slices.MinFunc(cands, func(a, b cand) int {
			if a.depth != b.depth {
				if dir == BottomUp {
					return b.depth - a.depth
				}
				return a.depth - b.depth
			}
			switch {
			case a.rank < b.rank:
				return -1
			case a.rank > b.rank:
				return 1
			}
			return 0
		})
		return node, best.id, true
	}
}

// flush evaluates dirty pairs until the queue is empty or the step quota
// runs out.
func (tx *txn) flush() error {
	for {
		node, id, ok := tx.next()
		if !ok {
			return nil
		}
		tx.queue.Take(node, id)

		n := &tx.graph.nodes[node]
		if err := tx.quota.Check(n.Name); err != nil {
			return fmt.Errorf("flush: %w", err)
		}

		l := tx.f.Get(id)
		before := make([]any, len(n.Outputs))
		for i, out := range n.Outputs {
			before[i] = fieldValue(l, out)
		}

		n.compute(tx, l)

		for i, out := range n.Outputs {
			after := fieldValue(l, out)
			if sameValue(before[i], after) {
				continue
			}
			tx.logger.Debug("field recomputed",
				"node", n.Name,
				"line", id,
				"field", out,
				"value", after,
			)
			tx.touch(id, out)
		}
	}
}
