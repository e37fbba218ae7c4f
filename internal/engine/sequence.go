package engine

import (
	"slices"

	"github.com/roach88/contractcfg/internal/forest"
	"github.com/roach88/contractcfg/internal/ir"
)

// ChildTypeRank maps a child type to its sequencing priority.
// Lower ranks are placed first under their parent.
type ChildTypeRank struct {
	Rank int
	Type ir.ChildType
}

// DefaultChildTypes is the priority table of the base configurator.
var DefaultChildTypes = []ChildTypeRank{{Rank: 20, Type: ir.ChildTypeOption}}

// syncSequence renumbers every line of the forest from 0 so that ordering
// by sequence lists each root immediately followed by its subtree.
//
// Roots keep their relative order (sequence, then arena order). Under each
// line the children are grouped by ascending rank, sorted by their previous
// sequence within a group, and each is followed by its own subtree.
// Children whose type has no rank follow the ranked groups in their
// previous order. Running the pass twice yields the same numbering.
func syncSequence(f *forest.Forest, ranks []ChildTypeRank) {
	buckets := slices.Clone(ranks)
	slices.SortStableFunc(buckets, func(a, b ChildTypeRank) int { return a.Rank - b.Rank })

	byPrevious := func(a, b *ir.Line) int {
		if a.Sequence != b.Sequence {
			return a.Sequence - b.Sequence
		}
		switch ra, rb := f.Rank(a.ID), f.Rank(b.ID); {
		case ra < rb:
			return -1
		case ra > rb:
			return 1
		}
		return 0
	}

	next := 0
	done := make(map[ir.LineID]bool, f.Len())

	var place func(l *ir.Line)
	place = func(l *ir.Line) {
		if done[l.ID] {
			return
		}
		done[l.ID] = true
		l.Sequence = next
		next++

		children := f.Children(l.ID)
		slices.SortStableFunc(children, byPrevious)

		ranked := make(map[ir.ChildType]bool, len(buckets))
		for _, b := range buckets {
			ranked[b.Type] = true
			for _, c := range children {
				if c.ChildType() == b.Type {
					place(c)
				}
			}
		}
		for _, c := range children {
			if !ranked[c.ChildType()] {
				place(c)
			}
		}
	}

	roots := f.Roots()
	slices.SortStableFunc(roots, byPrevious)
	for _, r := range roots {
		place(r)
	}
}
