package ir

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{
		"b": 1,
		"a": "x",
		"c": true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":true}`, string(out))
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+E000 sorts before U+1F600 in UTF-8 but after it in UTF-16
	out, err := MarshalCanonical(map[string]any{
		"\U0001F600": 1,
		"\uE000":     2,
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"\uE000\":2}", string(out))
}

func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	out, err := MarshalCanonical("<a&b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(out))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	// "e" + combining acute accent normalizes to a single code point
	out, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(out))
}

func TestMarshalCanonical_Decimal(t *testing.T) {
	out, err := MarshalCanonical([]any{decimal.RequireFromString("12.50"), LineID("new-1")})
	require.NoError(t, err)
	assert.Equal(t, `["12.5","new-1"]`, string(out))
}

func TestMarshalCanonical_RejectsFloatsAndNil(t *testing.T) {
	_, err := MarshalCanonical(1.5)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"x": nil})
	assert.Error(t, err)
}

func TestSnapshotHash_Deterministic(t *testing.T) {
	line := Line{
		ID:            "l1",
		Name:          "Desk",
		Quantity:      decimal.NewFromInt(2),
		PriceSubtotal: decimal.RequireFromString("10"),
		Kind:          LineKindConfigurable,
		Config:        NewConfigurableLine(),
	}

	h1, err := SnapshotHash([]Line{line})
	require.NoError(t, err)
	h2, err := SnapshotHash([]Line{line.Clone()})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	// Scale differences of equal amounts hash identically
	line.PriceSubtotal = decimal.RequireFromString("10.000")
	h3, err := SnapshotHash([]Line{line})
	require.NoError(t, err)
	assert.Equal(t, h1, h3)

	line.Sequence = 4
	h4, err := SnapshotHash([]Line{line})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h4)
}

func TestLineID_Pending(t *testing.T) {
	assert.Equal(t, LineID("new-7"), PendingID(7))
	assert.True(t, PendingID(1).IsPending())
	assert.False(t, LineID("0190a5c4-aaaa").IsPending())
	assert.True(t, LineID("").IsZero())
}

func TestLine_CloneIsDeep(t *testing.T) {
	l := Line{ID: "a"}
	cfg := l.Configurable()
	cfg.OptionQtyType = QtyTypeIndependent

	c := l.Clone()
	c.Config.OptionQtyType = QtyTypeProportional

	assert.Equal(t, QtyTypeIndependent, l.Config.OptionQtyType)
	assert.Equal(t, LineKindConfigurable, l.Kind)
}

func TestLine_Accessors_NoCapability(t *testing.T) {
	l := Line{ID: "plain", Kind: LineKindPlain}
	assert.True(t, l.IsRoot())
	assert.Equal(t, ChildTypeNone, l.ChildType())
	assert.True(t, l.ParentOptionID().IsZero())
}

func TestQtyType_Valid(t *testing.T) {
	assert.True(t, QtyTypeProportional.Valid())
	assert.True(t, QtyTypeIndependent.Valid())
	assert.False(t, QtyType("").Valid())
	assert.False(t, QtyType("per_seat").Valid())
}
