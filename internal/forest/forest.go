package forest

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/contractcfg/internal/ir"
)

// Forest is the arena holding one contract's lines.
//
// Lines are keyed by LineID and never reference each other by pointer.
// Children are resolved through an index keyed by the explicit option link
// (ParentOptionID), so a line is listed exactly once under its parent
// whether it is persisted or pending.
//
// INVARIANTS:
//   - every ParentOptionID names a line of the same forest
//   - children lists are kept in arena (insertion) order
//   - rank values are unique and only grow
//
// Forest is not safe for concurrent use. The engine owns one forest per
// contract and mutates it from a single goroutine.
type Forest struct {
	contract ir.Contract
	lines    map[ir.LineID]*ir.Line
	order    []ir.LineID
	rank     map[ir.LineID]int64
	children map[ir.LineID][]ir.LineID
	nextRank int64
	clock    *Clock
}

// New creates an empty forest for the contract.
func New(contract ir.Contract) *Forest {
	return &Forest{
		contract: contract,
		lines:    make(map[ir.LineID]*ir.Line),
		rank:     make(map[ir.LineID]int64),
		children: make(map[ir.LineID][]ir.LineID),
		clock:    NewClock(),
	}
}

// Load builds a forest from already persisted lines, in the given order.
//
// Lines keep their ids. Links to missing parents and option cycles are
// rejected. The pending-id clock resumes after the highest
// pending id present so that new drafts never collide with loaded ones.
func Load(contract ir.Contract, lines []ir.Line) (*Forest, error) {
	f := New(contract)

	var maxPending int64
	for _, l := range lines {
		if l.ID.IsZero() {
			return nil, fmt.Errorf("load forest: line without id")
		}
		if _, dup := f.lines[l.ID]; dup {
			return nil, fmt.Errorf("load forest: duplicate line id %s", l.ID)
		}
		if l.ID.IsPending() {
			n, err := strconv.ParseInt(strings.TrimPrefix(string(l.ID), ir.PendingPrefix), 10, 64)
			if err == nil && n > maxPending {
				maxPending = n
			}
		}
		f.add(l.Clone())
	}
	f.clock = NewClockAt(maxPending)

	for _, id := range f.order {
		parent := f.lines[id].ParentOptionID()
		if parent.IsZero() {
			continue
		}
		if _, ok := f.lines[parent]; !ok {
			return nil, fmt.Errorf("load forest: line %s references missing parent %s", id, parent)
		}
		f.children[parent] = append(f.children[parent], id)
	}

	// Every parent exists, so a chain that does not end at a root loops.
	for _, id := range f.order {
		top := id
		if chain := f.Ancestors(id); len(chain) > 0 {
			top = chain[len(chain)-1]
		}
		if !f.lines[top].ParentOptionID().IsZero() {
			return nil, fmt.Errorf("load forest: line %s is part of an option cycle", id)
		}
	}
	return f, nil
}

// add appends a line to the arena without touching the child index.
func (f *Forest) add(l ir.Line) {
	if l.ContractID == "" {
		l.ContractID = f.contract.ID
	}
	f.nextRank++
	f.lines[l.ID] = &l
	f.order = append(f.order, l.ID)
	f.rank[l.ID] = f.nextRank
}

// Contract returns the contract header.
func (f *Forest) Contract() ir.Contract {
	return f.contract
}

// SetContract replaces the contract header.
func (f *Forest) SetContract(c ir.Contract) {
	f.contract = c
}

// Len returns the number of lines.
func (f *Forest) Len() int {
	return len(f.order)
}

// Has reports whether the line exists.
func (f *Forest) Has(id ir.LineID) bool {
	_, ok := f.lines[id]
	return ok
}

// Get returns the live line for in-place mutation, or nil.
// Only the engine should mutate lines obtained this way.
func (f *Forest) Get(id ir.LineID) *ir.Line {
	return f.lines[id]
}

// Line returns a copy of the line.
func (f *Forest) Line(id ir.LineID) (ir.Line, bool) {
	l, ok := f.lines[id]
	if !ok {
		return ir.Line{}, false
	}
	return l.Clone(), true
}

// Rank returns the arena position key of a line (insertion order).
func (f *Forest) Rank(id ir.LineID) int64 {
	return f.rank[id]
}

// Insert adds a line to the arena and returns its id.
//
// A line without an id receives the next pending id. The option link, if
// any, must name an existing line.
func (f *Forest) Insert(l ir.Line) (ir.LineID, error) {
	if l.ID.IsZero() {
		l.ID = ir.PendingID(f.clock.Next())
	}
	if _, dup := f.lines[l.ID]; dup {
		return "", fmt.Errorf("insert line: duplicate id %s", l.ID)
	}
	parent := l.ParentOptionID()
	if !parent.IsZero() {
		if _, ok := f.lines[parent]; !ok {
			return "", fmt.Errorf("insert line %s: parent %s not found", l.ID, parent)
		}
	}

	f.add(l.Clone())
	if !parent.IsZero() {
		f.children[parent] = append(f.children[parent], l.ID)
	}
	return l.ID, nil
}

// Remove deletes a leaf line. Lines that still have children are rejected;
// cascading is the caller's responsibility.
func (f *Forest) Remove(id ir.LineID) error {
	l, ok := f.lines[id]
	if !ok {
		return fmt.Errorf("remove line: %s not found", id)
	}
	if len(f.children[id]) > 0 {
		return fmt.Errorf("remove line %s: still has %d children", id, len(f.children[id]))
	}

	f.unlink(id, l.ParentOptionID())
	delete(f.children, id)
	delete(f.lines, id)
	delete(f.rank, id)
	f.order = slices.DeleteFunc(f.order, func(x ir.LineID) bool { return x == id })
	return nil
}

// SetParentOption moves a line under parent (or to the root level when
// parent is zero) and keeps the child index in sync. The option capability
// is attached if the line did not carry it yet.
func (f *Forest) SetParentOption(id, parent ir.LineID) error {
	l, ok := f.lines[id]
	if !ok {
		return fmt.Errorf("set parent option: line %s not found", id)
	}
	if !parent.IsZero() {
		if _, ok := f.lines[parent]; !ok {
			return fmt.Errorf("set parent option of %s: parent %s not found", id, parent)
		}
	}

	old := l.ParentOptionID()
	if old == parent {
		return nil
	}
	f.unlink(id, old)
	l.Configurable().ParentOptionID = parent
	if !parent.IsZero() {
		f.children[parent] = append(f.children[parent], id)
		slices.SortFunc(f.children[parent], func(a, b ir.LineID) int {
			return int(f.rank[a] - f.rank[b])
		})
	}
	return nil
}

func (f *Forest) unlink(id, parent ir.LineID) {
	if parent.IsZero() {
		return
	}
	f.children[parent] = slices.DeleteFunc(f.children[parent], func(x ir.LineID) bool { return x == id })
	if len(f.children[parent]) == 0 {
		delete(f.children, parent)
	}
}

// ChildIDs returns the ids of the direct option children, in arena order.
func (f *Forest) ChildIDs(id ir.LineID) []ir.LineID {
	return slices.Clone(f.children[id])
}

// Children returns the live direct children of a line, in arena order.
func (f *Forest) Children(id ir.LineID) []*ir.Line {
	ids := f.children[id]
	out := make([]*ir.Line, 0, len(ids))
	for _, cid := range ids {
		out = append(out, f.lines[cid])
	}
	return out
}

// HasChildren reports whether the line has at least one child.
func (f *Forest) HasChildren(id ir.LineID) bool {
	return len(f.children[id]) > 0
}

// Descendants returns every line below id in pre-order.
func (f *Forest) Descendants(id ir.LineID) []*ir.Line {
	var out []*ir.Line
	seen := map[ir.LineID]bool{id: true}
	var walk func(ir.LineID)
	walk = func(p ir.LineID) {
		for _, cid := range f.children[p] {
			if seen[cid] {
				continue
			}
			seen[cid] = true
			out = append(out, f.lines[cid])
			walk(cid)
		}
	}
	walk(id)
	return out
}

// Ancestors returns the chain of option parents of id, nearest first.
// The walk stops if it meets a line twice, so a corrupted link cannot loop.
func (f *Forest) Ancestors(id ir.LineID) []ir.LineID {
	var out []ir.LineID
	seen := map[ir.LineID]bool{id: true}
	l := f.lines[id]
	for l != nil {
		p := l.ParentOptionID()
		if p.IsZero() || seen[p] {
			break
		}
		seen[p] = true
		out = append(out, p)
		l = f.lines[p]
	}
	return out
}

// Depth returns the number of ancestors of id (0 for roots).
func (f *Forest) Depth(id ir.LineID) int {
	return len(f.Ancestors(id))
}

// WouldCycle reports whether linking id under parent would create a cycle.
func (f *Forest) WouldCycle(id, parent ir.LineID) bool {
	if parent.IsZero() {
		return false
	}
	if parent == id {
		return true
	}
	return slices.Contains(f.Ancestors(parent), id)
}

// SubtreeHeight returns the number of levels below id (0 for leaves).
func (f *Forest) SubtreeHeight(id ir.LineID) int {
	h := 0
	for _, cid := range f.children[id] {
		if ch := f.SubtreeHeight(cid) + 1; ch > h {
			h = ch
		}
	}
	return h
}

// Lines returns the live lines in arena order.
func (f *Forest) Lines() []*ir.Line {
	out := make([]*ir.Line, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.lines[id])
	}
	return out
}

// IDs returns every line id in arena order.
func (f *Forest) IDs() []ir.LineID {
	return slices.Clone(f.order)
}

// Roots returns the live lines without option parent, in arena order.
func (f *Forest) Roots() []*ir.Line {
	var out []*ir.Line
	for _, id := range f.order {
		if l := f.lines[id]; l.ParentOptionID().IsZero() {
			out = append(out, l)
		}
	}
	return out
}

// Ordered returns copies of every line ordered by sequence, ties broken
// by arena order.
func (f *Forest) Ordered() []ir.Line {
	out := make([]ir.Line, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.lines[id].Clone())
	}
	slices.SortStableFunc(out, func(a, b ir.Line) int {
		if a.Sequence != b.Sequence {
			return a.Sequence - b.Sequence
		}
		return int(f.rank[a.ID] - f.rank[b.ID])
	})
	return out
}

// MainLines returns copies of the root lines ordered by sequence.
func (f *Forest) MainLines() []ir.Line {
	var out []ir.Line
	for _, l := range f.Ordered() {
		if l.ParentOptionID().IsZero() {
			out = append(out, l)
		}
	}
	return out
}

// Clone returns an independent deep copy of the forest.
// The clone continues the pending-id clock from the current position.
func (f *Forest) Clone() *Forest {
	c := &Forest{
		contract: f.contract,
		lines:    make(map[ir.LineID]*ir.Line, len(f.lines)),
		order:    slices.Clone(f.order),
		rank:     make(map[ir.LineID]int64, len(f.rank)),
		children: make(map[ir.LineID][]ir.LineID, len(f.children)),
		nextRank: f.nextRank,
		clock:    NewClockAt(f.clock.Current()),
	}
	for id, l := range f.lines {
		cl := l.Clone()
		c.lines[id] = &cl
	}
	for id, r := range f.rank {
		c.rank[id] = r
	}
	for id, kids := range f.children {
		c.children[id] = slices.Clone(kids)
	}
	return c
}

// Promote replaces every pending id by a durable id from gen and rewrites
// all option links that pointed at it. Lines are promoted in arena order.
// Returns the mapping from pending to durable ids.
func (f *Forest) Promote(gen IDGenerator) map[ir.LineID]ir.LineID {
	mapping := make(map[ir.LineID]ir.LineID)
	for _, id := range f.order {
		if id.IsPending() {
			mapping[id] = ir.LineID(gen.Generate())
		}
	}
	if len(mapping) == 0 {
		return mapping
	}

	remap := func(id ir.LineID) ir.LineID {
		if to, ok := mapping[id]; ok {
			return to
		}
		return id
	}

	lines := make(map[ir.LineID]*ir.Line, len(f.lines))
	rank := make(map[ir.LineID]int64, len(f.rank))
	children := make(map[ir.LineID][]ir.LineID, len(f.children))
	for i, id := range f.order {
		l := f.lines[id]
		l.ID = remap(id)
		if c := l.Config; c != nil {
			c.ParentOptionID = remap(c.ParentOptionID)
			c.ParentID = remap(c.ParentID)
		}
		lines[l.ID] = l
		rank[l.ID] = f.rank[id]
		f.order[i] = l.ID
	}
	for parent, kids := range f.children {
		mapped := make([]ir.LineID, len(kids))
		for i, k := range kids {
			mapped[i] = remap(k)
		}
		children[remap(parent)] = mapped
	}

	f.lines = lines
	f.rank = rank
	f.children = children
	return mapping
}
