package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/contractcfg/internal/ir"
)

func noop(*txn, *ir.Line) {}

func TestDepGraph_DefaultOrder(t *testing.T) {
	g, err := NewDepGraph(defaultNodes())
	require.NoError(t, err)

	order := g.Nodes()
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}

	// Producers run before consumers.
	assert.Less(t, pos["parent"], pos["config_amount"])
	assert.Less(t, pos["product_option"], pos["option_qty_type"])
	assert.Less(t, pos["option_qty_type"], pos["quantity"])
	assert.Less(t, pos["quantity"], pos["price_unit"])
	assert.Less(t, pos["price_unit"], pos["price_subtotal"])
	assert.Less(t, pos["price_subtotal"], pos["config_amount"])
	assert.Less(t, pos["price_unit"], pos["empty_parent"])
	assert.Less(t, pos["price_unit"], pos["hide_subtotal"])
}

func TestDepGraph_Deterministic(t *testing.T) {
	g1, err := NewDepGraph(defaultNodes())
	require.NoError(t, err)
	g2, err := NewDepGraph(defaultNodes())
	require.NoError(t, err)

	assert.Equal(t, g1.Nodes(), g2.Nodes())
}

func TestDepGraph_RejectsCycle(t *testing.T) {
	_, err := NewDepGraph([]Node{
		{Name: "a", Outputs: []Field{"x"}, Inputs: []Input{{RelSelf, "y"}}, compute: noop},
		{Name: "b", Outputs: []Field{"y"}, Inputs: []Input{{RelParent, "x"}}, compute: noop},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestDepGraph_SelfReadIsNotACycle(t *testing.T) {
	g, err := NewDepGraph([]Node{
		{Name: "q", Outputs: []Field{"q"}, Inputs: []Input{{RelSelf, "q"}, {RelParent, "q"}}, compute: noop},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"q"}, g.Nodes())
}

func TestDepGraph_RejectsDuplicateProducer(t *testing.T) {
	_, err := NewDepGraph([]Node{
		{Name: "a", Outputs: []Field{"x"}, compute: noop},
		{Name: "b", Outputs: []Field{"x"}, compute: noop},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "produced by both")
}

func TestDepGraph_Consumers(t *testing.T) {
	g, err := NewDepGraph(defaultNodes())
	require.NoError(t, err)

	var rels []Relation
	for _, c := range g.consumers[FieldPriceSubtotal] {
		if g.nodes[c.node].Name == "config_amount" {
			rels = append(rels, c.rel)
		}
	}
	assert.ElementsMatch(t, []Relation{RelSelf, RelDescendants}, rels)
	assert.Equal(t, -1, g.index("missing"))
}

func TestSameValue(t *testing.T) {
	assert.True(t, sameValue(dec("6"), dec("6.00")))
	assert.False(t, sameValue(dec("6"), dec("6.01")))
	assert.True(t, sameValue(ir.LineID("a"), ir.LineID("a")))
	assert.False(t, sameValue(true, false))
}

func TestRelationString(t *testing.T) {
	assert.Equal(t, "descendants", RelDescendants.String())
	assert.Equal(t, "relation(9)", Relation(9).String())
}

func TestFieldValue_PlainLine(t *testing.T) {
	l := &ir.Line{Quantity: dec("2")}
	assert.Equal(t, ir.LineID(""), fieldValue(l, FieldParentOptionID))
	assert.True(t, sameValue(dec("2"), fieldValue(l, FieldQuantity)))
	assert.Nil(t, fieldValue(l, FieldChildren))
}
