package engine

import (
	"github.com/roach88/contractcfg/internal/forest"
	"github.com/roach88/contractcfg/internal/ir"
)

// DefaultMaxDepth is the default maximum option nesting depth.
// A root line has depth 0, its options depth 1 and so on.
const DefaultMaxDepth = 8

// CycleGuard validates option links before they are written.
//
// A link that would close a loop makes every recursive traversal of the
// tree (aggregation, sequencing, cascade removal) diverge; a link that nests
// options deeper than the limit is rejected for the same reason.
//
// CRITICAL DISTINCTION from the step quota:
//   - Cycle guard: "Would this link make the tree shape invalid?" (static)
//   - Step quota: "Is recomputation failing to settle?" (dynamic)
type CycleGuard struct {
	maxDepth int
}

// NewCycleGuard creates a guard with the given depth limit.
// A limit of zero or less disables the depth check.
func NewCycleGuard(maxDepth int) *CycleGuard {
	return &CycleGuard{maxDepth: maxDepth}
}

// CheckLink reports whether moving id (with its whole subtree) under parent
// keeps the forest acyclic and within the depth limit. A zero parent moves
// the line to the root level and is always valid.
func (g *CycleGuard) CheckLink(f *forest.Forest, id, parent ir.LineID) error {
	if parent.IsZero() {
		return nil
	}
	if f.WouldCycle(id, parent) {
		return NewCycleError(id, parent)
	}
	depth := f.Depth(parent) + 1 + f.SubtreeHeight(id)
	if g.maxDepth > 0 && depth > g.maxDepth {
		return NewDepthError(id, depth, g.maxDepth)
	}
	return nil
}

// CheckInsert reports whether a new leaf may be created under parent.
func (g *CycleGuard) CheckInsert(f *forest.Forest, parent ir.LineID) error {
	if parent.IsZero() {
		return nil
	}
	depth := f.Depth(parent) + 1
	if g.maxDepth > 0 && depth > g.maxDepth {
		return NewDepthError(parent, depth, g.maxDepth)
	}
	return nil
}
