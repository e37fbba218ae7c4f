package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/contractcfg/internal/ir"
)

// Field names a line attribute that takes part in dependency tracking.
type Field string

const (
	FieldQuantity                Field = "quantity"
	FieldOptionUnitQty           Field = "option_unit_qty"
	FieldOptionQtyType           Field = "option_qty_type"
	FieldParentOptionID          Field = "parent_option_id"
	FieldParentID                Field = "parent_id"
	FieldChildType               Field = "child_type"
	FieldProductID               Field = "product_id"
	FieldProductOptionID         Field = "product_option_id"
	FieldPriceUnit               Field = "price_unit"
	FieldPriceSubtotal           Field = "price_subtotal"
	FieldPriceConfigSubtotal     Field = "price_config_subtotal"
	FieldReportLineIsEmptyParent Field = "report_line_is_empty_parent"
	FieldHideSubtotal            Field = "hide_subtotal"
	FieldIsConfigurable          Field = "is_configurable"

	// FieldChildren is a pseudo-field touched whenever the set of direct
	// children of a line changes.
	FieldChildren Field = "children"
)

// Relation says whose field a compute node reads, relative to the line it
// computes.
type Relation int

const (
	// RelSelf reads the line itself.
	RelSelf Relation = iota
	// RelParent reads the option parent.
	RelParent
	// RelChildren reads the direct children.
	RelChildren
	// RelDescendants reads every line below.
	RelDescendants
)

// String returns the relation name used in logs and errors.
func (r Relation) String() string {
	switch r {
	case RelSelf:
		return "self"
	case RelParent:
		return "parent"
	case RelChildren:
		return "children"
	case RelDescendants:
		return "descendants"
	default:
		return fmt.Sprintf("relation(%d)", int(r))
	}
}

// Direction is the depth order in which a node visits dirty lines.
type Direction int

const (
	// TopDown visits parents before children.
	TopDown Direction = iota
	// BottomUp visits children before parents.
	BottomUp
)

// Input is one dependency of a compute node.
type Input struct {
	Rel   Relation
	Field Field
}

// computeFunc recomputes the outputs of a node for one line in place.
type computeFunc func(tx *txn, l *ir.Line)

// Node is a compute node of the dependency graph.
type Node struct {
	Name      string
	Outputs   []Field
	Inputs    []Input
	Direction Direction

	compute computeFunc
}

// consumer is a (node, relation) pair reading a given field.
type consumer struct {
	node int
	rel  Relation
}

// DepGraph is the static, topologically sorted set of compute nodes.
//
// INVARIANTS:
//   - nodes are stored in topological order: a node never reads a field
//     produced by a node that sorts after it
//   - every field has at most one producing node
type DepGraph struct {
	nodes     []Node
	consumers map[Field][]consumer
}

// NewDepGraph validates the nodes and sorts them topologically (Kahn).
//
// An edge runs from the producer of a field to every node reading it, over
// any relation. A node reading its own output does not create an edge; it is
// re-evaluated until its output stops changing. Nodes with no ordering
// constraint between them keep their declaration order.
func NewDepGraph(nodes []Node) (*DepGraph, error) {
	producer := make(map[Field]int)
	for i, n := range nodes {
		if n.Name == "" {
			return nil, fmt.Errorf("dependency graph: node %d has no name", i)
		}
		for _, out := range n.Outputs {
			if prev, dup := producer[out]; dup {
				return nil, fmt.Errorf("dependency graph: field %q produced by both %s and %s",
					out, nodes[prev].Name, n.Name)
			}
			producer[out] = i
		}
	}

	edges := make([][]int, len(nodes))
	indegree := make([]int, len(nodes))
	for i, n := range nodes {
		seen := make(map[int]bool)
		for _, in := range n.Inputs {
			p, ok := producer[in.Field]
			if !ok || p == i || seen[p] {
				continue
			}
			seen[p] = true
			edges[p] = append(edges[p], i)
			indegree[i]++
		}
	}

	order := make([]int, 0, len(nodes))
	var ready []int
	for i := range nodes {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}
	for len(ready) > 0 {
		slices.Sort(ready)
		cur := ready[0]
		ready = ready[1:]
		order = append(order, cur)
		for _, next := range edges[cur] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	if len(order) != len(nodes) {
		var stuck []string
		for i, d := range indegree {
			if d > 0 {
				stuck = append(stuck, nodes[i].Name)
			}
		}
		return nil, fmt.Errorf("dependency graph: cycle between nodes %s", strings.Join(stuck, ", "))
	}

	g := &DepGraph{
		nodes:     make([]Node, len(order)),
		consumers: make(map[Field][]consumer),
	}
	for pos, idx := range order {
		g.nodes[pos] = nodes[idx]
	}
	for pos, n := range g.nodes {
		for _, in := range n.Inputs {
			g.consumers[in.Field] = append(g.consumers[in.Field], consumer{node: pos, rel: in.Rel})
		}
	}
	return g, nil
}

// Nodes returns the node names in scheduling order.
func (g *DepGraph) Nodes() []string {
	out := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.Name
	}
	return out
}

// index returns the scheduling position of a node, or -1.
func (g *DepGraph) index(name string) int {
	for i, n := range g.nodes {
		if n.Name == name {
			return i
		}
	}
	return -1
}

// defaultNodes declares the derived fields of a configurable line.
func defaultNodes() []Node {
	return []Node{
		{
			Name:    "parent",
			Outputs: []Field{FieldParentID, FieldChildType},
			Inputs:  []Input{{RelSelf, FieldParentOptionID}},
			compute: computeParent,
		},
		{
			Name:    "product_option",
			Outputs: []Field{FieldProductOptionID},
			Inputs: []Input{
				{RelSelf, FieldProductID},
				{RelSelf, FieldParentOptionID},
				{RelParent, FieldProductID},
			},
			compute: computeProductOption,
		},
		{
			Name:    "option_qty_type",
			Outputs: []Field{FieldOptionQtyType},
			Inputs:  []Input{{RelSelf, FieldProductOptionID}},
			compute: computeOptionQtyType,
		},
		{
			Name:    "is_configurable",
			Outputs: []Field{FieldIsConfigurable},
			Inputs:  []Input{{RelSelf, FieldProductID}},
			compute: computeIsConfigurable,
		},
		{
			Name:    "quantity",
			Outputs: []Field{FieldQuantity},
			Inputs: []Input{
				{RelSelf, FieldQuantity},
				{RelSelf, FieldOptionUnitQty},
				{RelSelf, FieldOptionQtyType},
				{RelSelf, FieldParentOptionID},
				{RelParent, FieldQuantity},
			},
			Direction: TopDown,
			compute:   computeQuantity,
		},
		{
			Name:    "price_unit",
			Outputs: []Field{FieldPriceUnit},
			Inputs: []Input{
				{RelSelf, FieldQuantity},
				{RelSelf, FieldChildType},
				{RelSelf, FieldProductID},
			},
			Direction: TopDown,
			compute:   computePriceUnit,
		},
		{
			Name:    "price_subtotal",
			Outputs: []Field{FieldPriceSubtotal},
			Inputs: []Input{
				{RelSelf, FieldQuantity},
				{RelSelf, FieldPriceUnit},
			},
			compute: computeSubtotal,
		},
		{
			Name:    "config_amount",
			Outputs: []Field{FieldPriceConfigSubtotal},
			Inputs: []Input{
				{RelSelf, FieldPriceSubtotal},
				{RelSelf, FieldParentID},
				{RelSelf, FieldChildren},
				{RelDescendants, FieldPriceSubtotal},
				{RelDescendants, FieldChildren},
			},
			Direction: BottomUp,
			compute:   computeConfigAmount,
		},
		{
			Name:    "empty_parent",
			Outputs: []Field{FieldReportLineIsEmptyParent},
			Inputs: []Input{
				{RelSelf, FieldPriceUnit},
				{RelSelf, FieldChildren},
			},
			compute: computeEmptyParent,
		},
		{
			Name:    "hide_subtotal",
			Outputs: []Field{FieldHideSubtotal},
			Inputs: []Input{
				{RelSelf, FieldPriceUnit},
				{RelSelf, FieldParentID},
				{RelSelf, FieldChildren},
			},
			compute: computeHideSubtotal,
		},
	}
}

// fieldValue reads a tracked field of a line. Fields of the option
// capability read as zero values on plain lines.
func fieldValue(l *ir.Line, f Field) any {
	cfg := l.Config
	if cfg == nil {
		cfg = &ir.ConfigurableLine{}
	}
	switch f {
	case FieldQuantity:
		return l.Quantity
	case FieldPriceUnit:
		return l.PriceUnit
	case FieldPriceSubtotal:
		return l.PriceSubtotal
	case FieldProductID:
		return l.ProductID
	case FieldOptionUnitQty:
		return cfg.OptionUnitQty
	case FieldOptionQtyType:
		return cfg.OptionQtyType
	case FieldParentOptionID:
		return cfg.ParentOptionID
	case FieldParentID:
		return cfg.ParentID
	case FieldChildType:
		return cfg.ChildType
	case FieldProductOptionID:
		return cfg.ProductOptionID
	case FieldPriceConfigSubtotal:
		return cfg.PriceConfigSubtotal
	case FieldReportLineIsEmptyParent:
		return cfg.ReportLineIsEmptyParent
	case FieldHideSubtotal:
		return cfg.HideSubtotal
	case FieldIsConfigurable:
		return cfg.IsConfigurable
	default:
		return nil
	}
}

// sameValue compares two values returned by fieldValue.
// Decimals compare numerically so that 6 and 6.00 are the same value.
func sameValue(a, b any) bool {
	da, ok := a.(decimal.Decimal)
	if ok {
		db, ok := b.(decimal.Decimal)
		return ok && da.Equal(db)
	}
	return a == b
}
