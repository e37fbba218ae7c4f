package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/contractcfg/internal/engine"
	"github.com/roach88/contractcfg/internal/forest"
	"github.com/roach88/contractcfg/internal/ir"
)

func TestFormatAmount(t *testing.T) {
	p := message.NewPrinter(language.English)

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"0.00", "0.00"},
		{"999.99", "999.99"},
		{"1234.50", "1,234.50"},
		{"-1234567.00", "-1,234,567.00"},
		{"12", "12"},
		{"n/a", "n/a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatAmount(p, tt.in), "formatAmount(%q)", tt.in)
	}
}

func TestBuildReport(t *testing.T) {
	// Without a pricer the engine keeps the amounts it is given.
	eng, err := engine.New(forest.New(ir.Contract{ID: "K1", Name: "Kit order"}))
	require.NoError(t, err)

	_, err = eng.CreateLineTree(
		ir.LineSpec{
			Name:     "Kit",
			Quantity: ir.Amount("2"),
			Options: []ir.LineSpec{
				{
					Name:          "Part",
					OptionUnitQty: ir.Amount("3"),
					OptionQtyType: ir.QtyTypeProportional,
					PriceUnit:     ir.Amount("1500"),
					PriceSubtotal: ir.Amount("9000"),
				},
			},
		},
		ir.LineSpec{Name: "Standalone", Quantity: ir.Amount("1"), PriceUnit: ir.Amount("10"), PriceSubtotal: ir.Amount("10")},
		ir.LineSpec{Name: "Fee", Plain: true, Quantity: ir.Amount("1"), PriceUnit: ir.Amount("5"), PriceSubtotal: ir.Amount("5")},
	)
	require.NoError(t, err)

	r := buildReport(eng)
	assert.Equal(t, "K1", r.Contract)
	assert.Empty(t, r.Date)
	require.Len(t, r.Lines, 4)

	kit := r.Lines[0]
	assert.Equal(t, "Kit", kit.Name)
	assert.Empty(t, kit.Subtotal, "structural parents without a price hide their subtotal")
	assert.NotEmpty(t, kit.ConfigSubtotal)

	part := r.Lines[1]
	assert.Equal(t, kit.ID, part.ParentID)
	assert.Equal(t, 1, part.Depth)
	assert.Equal(t, "9000.00", part.Subtotal)
	assert.Empty(t, part.ConfigSubtotal)

	standalone := r.Lines[2]
	assert.Equal(t, "10.00", standalone.Subtotal, "standalone configurable lines keep their amount")
	assert.Empty(t, standalone.ConfigSubtotal)

	fee := r.Lines[3]
	assert.Equal(t, "5.00", fee.Subtotal)

	assert.Equal(t, "9015.00", r.Total)

	out := r.String()
	assert.Contains(t, out, "Contract K1 - Kit order")
	assert.NotContains(t, out, "Partner:")
	assert.Contains(t, out, "  Part")
	assert.Contains(t, out, "9,000.00")
	assert.Contains(t, out, "Total: 9,015.00")
}

func TestContractListString(t *testing.T) {
	assert.Equal(t, "No contracts found.", ContractList{}.String())
}
