package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/contractcfg/internal/forest"
	"github.com/roach88/contractcfg/internal/ir"
)

// chain builds root -> l1 -> ... -> l<n> and returns the ids, root first.
func chain(t *testing.T, n int) (*forest.Forest, []ir.LineID) {
	t.Helper()
	f := forest.New(testContract)
	root, err := f.Insert(ir.Line{Name: "root"})
	require.NoError(t, err)
	ids := []ir.LineID{root}
	for i := 0; i < n; i++ {
		l := ir.Line{Name: "opt"}
		l.Configurable().ParentOptionID = ids[len(ids)-1]
		id, err := f.Insert(l)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return f, ids
}

func TestCycleGuard_CheckLink(t *testing.T) {
	f, ids := chain(t, 3)
	g := NewCycleGuard(DefaultMaxDepth)

	assert.NoError(t, g.CheckLink(f, ids[3], ""))
	assert.NoError(t, g.CheckLink(f, ids[3], ids[0]))

	err := g.CheckLink(f, ids[0], ids[3])
	assert.True(t, IsCycleError(err))

	err = g.CheckLink(f, ids[1], ids[1])
	assert.True(t, IsCycleError(err))
}

func TestCycleGuard_Depth(t *testing.T) {
	f, ids := chain(t, 3)
	g := NewCycleGuard(3)

	assert.True(t, IsDepthError(g.CheckInsert(f, ids[3])))
	assert.NoError(t, g.CheckInsert(f, ids[2]))
	assert.NoError(t, g.CheckInsert(f, ""))

	other, err := f.Insert(ir.Line{Name: "other"})
	require.NoError(t, err)
	assert.NoError(t, g.CheckLink(f, other, ids[2]))
	assert.True(t, IsCycleError(g.CheckLink(f, ids[1], ids[2])))

	child := ir.Line{Name: "other child"}
	child.Configurable().ParentOptionID = other
	childID, err := f.Insert(child)
	require.NoError(t, err)
	// depth(child)=1, plus the link, plus the two levels below ids[1]
	assert.True(t, IsDepthError(g.CheckLink(f, ids[1], childID)))
}

func TestCycleGuard_ZeroDisablesDepth(t *testing.T) {
	f, ids := chain(t, 12)
	g := NewCycleGuard(0)

	assert.NoError(t, g.CheckInsert(f, ids[len(ids)-1]))
	assert.True(t, IsCycleError(g.CheckLink(f, ids[0], ids[5])), "cycles are always rejected")
}
