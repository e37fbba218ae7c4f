package forest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/contractcfg/internal/ir"
)

func option(parent ir.LineID) ir.Line {
	l := ir.Line{}
	l.Configurable().ParentOptionID = parent
	return l
}

func TestInsert_AllocatesPendingIDs(t *testing.T) {
	f := New(ir.Contract{ID: "c1"})

	a, err := f.Insert(ir.Line{Name: "a"})
	require.NoError(t, err)
	b, err := f.Insert(ir.Line{Name: "b"})
	require.NoError(t, err)

	assert.Equal(t, ir.LineID("new-1"), a)
	assert.Equal(t, ir.LineID("new-2"), b)
	l, ok := f.Line(a)
	require.True(t, ok)
	assert.Equal(t, "c1", l.ContractID, "contract id defaults to the forest's")
}

func TestInsert_RejectsDuplicateAndMissingParent(t *testing.T) {
	f := New(ir.Contract{ID: "c1"})
	_, err := f.Insert(ir.Line{ID: "x"})
	require.NoError(t, err)

	_, err = f.Insert(ir.Line{ID: "x"})
	assert.Error(t, err)

	_, err = f.Insert(option("ghost"))
	assert.Error(t, err)
	assert.Equal(t, 1, f.Len())
}

func TestChildren_ResolvedByIndex(t *testing.T) {
	f := New(ir.Contract{ID: "c1"})
	root, _ := f.Insert(ir.Line{Name: "root"})
	o1, _ := f.Insert(option(root))
	o2, _ := f.Insert(option(root))
	g1, _ := f.Insert(option(o1))

	assert.Equal(t, []ir.LineID{o1, o2}, f.ChildIDs(root))
	assert.True(t, f.HasChildren(root))
	assert.False(t, f.HasChildren(o2))

	var desc []ir.LineID
	for _, l := range f.Descendants(root) {
		desc = append(desc, l.ID)
	}
	assert.Equal(t, []ir.LineID{o1, g1, o2}, desc, "descendants are pre-order")

	assert.Equal(t, []ir.LineID{o1, root}, f.Ancestors(g1))
	assert.Equal(t, 2, f.Depth(g1))
	assert.Equal(t, 2, f.SubtreeHeight(root))
	assert.Len(t, f.Roots(), 1)
}

func TestSetParentOption_MovesAndKeepsArenaOrder(t *testing.T) {
	f := New(ir.Contract{ID: "c1"})
	a, _ := f.Insert(ir.Line{})
	b, _ := f.Insert(ir.Line{})
	x, _ := f.Insert(option(b))
	y, _ := f.Insert(ir.Line{})

	require.NoError(t, f.SetParentOption(y, a))
	require.NoError(t, f.SetParentOption(x, a))

	assert.Equal(t, []ir.LineID{x, y}, f.ChildIDs(a), "children keep arena order")
	assert.Empty(t, f.ChildIDs(b))

	require.NoError(t, f.SetParentOption(x, ""))
	assert.Equal(t, []ir.LineID{y}, f.ChildIDs(a))
	assert.Len(t, f.Roots(), 3)

	assert.Error(t, f.SetParentOption(x, "ghost"))
}

func TestWouldCycle(t *testing.T) {
	f := New(ir.Contract{ID: "c1"})
	a, _ := f.Insert(ir.Line{})
	b, _ := f.Insert(option(a))
	c, _ := f.Insert(option(b))

	assert.True(t, f.WouldCycle(a, a))
	assert.True(t, f.WouldCycle(a, c))
	assert.False(t, f.WouldCycle(c, a))
	assert.False(t, f.WouldCycle(a, ""))
}

func TestRemove_LeafOnly(t *testing.T) {
	f := New(ir.Contract{ID: "c1"})
	a, _ := f.Insert(ir.Line{})
	b, _ := f.Insert(option(a))

	assert.Error(t, f.Remove(a), "parent with children cannot be removed directly")
	require.NoError(t, f.Remove(b))
	require.NoError(t, f.Remove(a))
	assert.Equal(t, 0, f.Len())
	assert.Error(t, f.Remove(a))
}

func TestOrdered_BySequenceThenArena(t *testing.T) {
	f := New(ir.Contract{ID: "c1"})
	a, _ := f.Insert(ir.Line{Sequence: 5})
	b, _ := f.Insert(ir.Line{Sequence: 1})
	c, _ := f.Insert(ir.Line{Sequence: 5})
	_, _ = f.Insert(func() ir.Line { l := option(b); l.Sequence = 2; return l }())

	var got []ir.LineID
	for _, l := range f.Ordered() {
		got = append(got, l.ID)
	}
	assert.Equal(t, []ir.LineID{b, "new-4", a, c}, got)

	var mains []ir.LineID
	for _, l := range f.MainLines() {
		mains = append(mains, l.ID)
	}
	assert.Equal(t, []ir.LineID{b, a, c}, mains)
}

func TestClone_IsIndependent(t *testing.T) {
	f := New(ir.Contract{ID: "c1"})
	a, _ := f.Insert(ir.Line{Name: "a"})
	_, _ = f.Insert(option(a))

	c := f.Clone()
	c.Get(a).Name = "changed"
	next, err := c.Insert(option(a))
	require.NoError(t, err)

	assert.Equal(t, "a", f.Get(a).Name)
	assert.Len(t, f.ChildIDs(a), 1)
	assert.Len(t, c.ChildIDs(a), 2)
	assert.Equal(t, ir.LineID("new-3"), next, "clone continues the clock")
}

func TestPromote_RewritesLinks(t *testing.T) {
	f := New(ir.Contract{ID: "c1"})
	root, _ := f.Insert(ir.Line{ID: "durable-root"})
	o, _ := f.Insert(option(root))
	g, _ := f.Insert(option(o))
	f.Get(g).Config.ParentID = o

	mapping := f.Promote(NewFixedGenerator("id-1", "id-2"))

	assert.Equal(t, map[ir.LineID]ir.LineID{o: "id-1", g: "id-2"}, mapping)
	assert.False(t, f.Has(o))
	promoted, ok := f.Line("id-2")
	require.True(t, ok)
	assert.Equal(t, ir.LineID("id-1"), promoted.ParentOptionID())
	assert.Equal(t, ir.LineID("id-1"), promoted.ParentID())
	assert.Equal(t, []ir.LineID{"id-1"}, f.ChildIDs(root))
	assert.Equal(t, []ir.LineID{"id-2"}, f.ChildIDs("id-1"))
	assert.Equal(t, []ir.LineID{root, "id-1", "id-2"}, f.IDs())
}

func TestLoad_ValidatesAndResumesClock(t *testing.T) {
	parent := ir.Line{ID: "p"}
	child := option("p")
	child.ID = "new-9"

	f, err := Load(ir.Contract{ID: "c1"}, []ir.Line{parent, child})
	require.NoError(t, err)
	assert.Equal(t, []ir.LineID{"new-9"}, f.ChildIDs("p"))

	id, err := f.Insert(ir.Line{})
	require.NoError(t, err)
	assert.Equal(t, ir.LineID("new-10"), id)

	orphan := option("missing")
	orphan.ID = "o"
	_, err = Load(ir.Contract{ID: "c1"}, []ir.Line{orphan})
	assert.Error(t, err)

	_, err = Load(ir.Contract{ID: "c1"}, []ir.Line{parent, parent})
	assert.Error(t, err)
}

func TestLoad_RejectsCycle(t *testing.T) {
	line := func(id, parent ir.LineID) ir.Line {
		l := option(parent)
		l.ID = id
		return l
	}
	root := ir.Line{ID: "r"}

	tests := []struct {
		name  string
		lines []ir.Line
	}{
		{"two lines", []ir.Line{root, line("a", "b"), line("b", "a")}},
		{"self link", []ir.Line{root, line("c", "c")}},
		{"loop below a chain", []ir.Line{root, line("x", "y"), line("y", "z"), line("z", "y")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(ir.Contract{ID: "c1"}, tt.lines)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "option cycle")
		})
	}

	f, err := Load(ir.Contract{ID: "c1"}, []ir.Line{root, line("a", "r"), line("b", "a")})
	require.NoError(t, err)
	assert.Equal(t, 2, f.SubtreeHeight("r"))
}

func TestPromote_FollowsArenaOrder(t *testing.T) {
	f := New(ir.Contract{ID: "c1"})
	a, _ := f.Insert(ir.Line{Name: "a"})
	o, _ := f.Insert(option(a))
	b, _ := f.Insert(ir.Line{Name: "b"})

	mapping := f.Promote(NewFixedGenerator("id-1", "id-2", "id-3"))

	assert.Equal(t, map[ir.LineID]ir.LineID{a: "id-1", o: "id-2", b: "id-3"}, mapping,
		"an option inserted before a later root is promoted first")
}
